package ws

import "sync"

const ewmaWeight = 0.3

// latencyTracker keeps an exponentially weighted moving average of each
// connection's round-trip time, in milliseconds. It feeds the coordinator's
// adaptive question timer.
type latencyTracker struct {
	mu   sync.Mutex
	rtts map[string]float64
}

func newLatencyTracker() *latencyTracker {
	return &latencyTracker{rtts: make(map[string]float64)}
}

func (t *latencyTracker) Observe(connID string, rttMs float64) {
	if rttMs < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.rtts[connID]; ok {
		t.rtts[connID] = ewmaWeight*rttMs + (1-ewmaWeight)*prev
	} else {
		t.rtts[connID] = rttMs
	}
}

func (t *latencyTracker) Forget(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rtts, connID)
}

// AverageMs implements game.LatencyProbe. Connections without a sample yet
// contribute zero, which keeps a fresh lobby at the minimum time limit.
func (t *latencyTracker) AverageMs(connIDs []string) float64 {
	if len(connIDs) == 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	sum := 0.0
	for _, id := range connIDs {
		sum += t.rtts[id]
	}
	return sum / float64(len(connIDs))
}
