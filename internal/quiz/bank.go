package quiz

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

const optionCount = 4

// Question is a single corpus entry. Never mutated after load.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// Bank holds the static question corpus loaded once at startup.
type Bank struct {
	questions []Question
}

// Load reads the corpus file and validates every entry. Any defect here is a
// configuration error and should abort startup.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question corpus: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse question corpus %s: %w", path, err)
	}
	return New(questions)
}

func New(questions []Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("question corpus is empty")
	}
	for i, q := range questions {
		if len(q.Options) != optionCount {
			return nil, fmt.Errorf("question %d (id %d): expected %d options, got %d", i, q.ID, optionCount, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return nil, fmt.Errorf("question %d (id %d): correct option %d out of range", i, q.ID, q.CorrectOption)
		}
	}
	return &Bank{questions: questions}, nil
}

func (b *Bank) Size() int {
	return len(b.questions)
}

// Draw returns n distinct questions chosen uniformly at random.
func (b *Bank) Draw(n int) ([]Question, error) {
	if n > len(b.questions) {
		return nil, fmt.Errorf("cannot draw %d questions from a corpus of %d", n, len(b.questions))
	}
	idx := rand.Perm(len(b.questions))
	out := make([]Question, n)
	for i := 0; i < n; i++ {
		out[i] = b.questions[idx[i]]
	}
	return out, nil
}
