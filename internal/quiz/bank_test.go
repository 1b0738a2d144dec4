package quiz

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func corpus(n int) []Question {
	questions := make([]Question, n)
	for i := range questions {
		questions[i] = Question{
			ID:            i + 1,
			Text:          fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: i % 4,
		}
	}
	return questions
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `[
		{"id": 1, "question": "What is 2+2?", "options": ["3", "4", "5", "6"], "correctOption": 1},
		{"id": 2, "question": "Capital of France?", "options": ["Berlin", "Madrid", "Paris", "Rome"], "correctOption": 2}
	]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("should load a valid corpus: %v", err)
	}
	if bank.Size() != 2 {
		t.Fatalf("expected 2 questions, got %d", bank.Size())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing corpus file")
	}
}

func TestNewRejectsBadEntries(t *testing.T) {
	bad := corpus(2)
	bad[1].Options = []string{"a", "b", "c"}
	if _, err := New(bad); err == nil {
		t.Fatal("expected error for wrong option count")
	}

	bad = corpus(2)
	bad[0].CorrectOption = 4
	if _, err := New(bad); err == nil {
		t.Fatal("expected error for out-of-range correct option")
	}

	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty corpus")
	}
}

func TestDrawDistinct(t *testing.T) {
	bank, err := New(corpus(20))
	if err != nil {
		t.Fatalf("should build bank: %v", err)
	}

	drawn, err := bank.Draw(10)
	if err != nil {
		t.Fatalf("should draw 10 questions: %v", err)
	}
	if len(drawn) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(drawn))
	}

	seen := make(map[int]bool)
	for _, q := range drawn {
		if seen[q.ID] {
			t.Fatalf("question %d drawn twice", q.ID)
		}
		seen[q.ID] = true
		if q.ID < 1 || q.ID > 20 {
			t.Fatalf("question %d not from corpus", q.ID)
		}
	}
}

func TestDrawTooMany(t *testing.T) {
	bank, err := New(corpus(5))
	if err != nil {
		t.Fatalf("should build bank: %v", err)
	}
	if _, err := bank.Draw(6); err == nil {
		t.Fatal("expected error drawing more questions than the corpus holds")
	}
}
