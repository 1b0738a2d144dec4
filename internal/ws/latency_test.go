package ws

import (
	"math"
	"testing"
)

func TestLatencyTrackerFirstSample(t *testing.T) {
	lt := newLatencyTracker()
	lt.Observe("conn-a", 120)

	if got := lt.AverageMs([]string{"conn-a"}); got != 120 {
		t.Fatalf("first sample should be taken as-is, got %v", got)
	}
}

func TestLatencyTrackerSmoothing(t *testing.T) {
	lt := newLatencyTracker()
	lt.Observe("conn-a", 100)
	lt.Observe("conn-a", 200)

	// 0.3*200 + 0.7*100
	if got := lt.AverageMs([]string{"conn-a"}); math.Abs(got-130) > 1e-9 {
		t.Fatalf("expected smoothed 130ms, got %v", got)
	}
}

func TestLatencyTrackerAverage(t *testing.T) {
	lt := newLatencyTracker()
	lt.Observe("conn-a", 100)
	lt.Observe("conn-b", 300)

	if got := lt.AverageMs([]string{"conn-a", "conn-b"}); got != 200 {
		t.Fatalf("expected average 200ms, got %v", got)
	}

	// Unsampled connections count as zero.
	if got := lt.AverageMs([]string{"conn-a", "conn-b", "conn-c", "conn-d"}); got != 100 {
		t.Fatalf("expected average 100ms with two unsampled conns, got %v", got)
	}

	if got := lt.AverageMs(nil); got != 0 {
		t.Fatalf("expected 0 for no connections, got %v", got)
	}
}

func TestLatencyTrackerForget(t *testing.T) {
	lt := newLatencyTracker()
	lt.Observe("conn-a", 250)
	lt.Forget("conn-a")

	if got := lt.AverageMs([]string{"conn-a"}); got != 0 {
		t.Fatalf("forgotten connection should contribute 0, got %v", got)
	}

	lt.Observe("conn-a", -5)
	if got := lt.AverageMs([]string{"conn-a"}); got != 0 {
		t.Fatalf("negative samples should be dropped, got %v", got)
	}
}
