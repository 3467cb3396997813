// Package questions supplies multiple-choice questions to contest
// sessions. Questions come from a JSON file on disk; when the file is
// missing or unparsable a single built-in sample question is used so
// the server always has something to serve.
package questions

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
)

// Question is a full question record, correct index included. Only the
// contest core may see it; the public view is built in the api package.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answerIndex"`
}

// Bank is a fixed pool of questions drawn uniformly at random with
// replacement.
type Bank struct {
	questions []Question
}

// Load reads a question bank from a JSON file.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return NewBank(qs)
}

// NewBank builds a bank from an already loaded pool.
func NewBank(qs []Question) (*Bank, error) {
	for _, q := range qs {
		if len(q.Choices) == 0 {
			return nil, fmt.Errorf("question %q has no choices", q.ID)
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Choices) {
			return nil, fmt.Errorf("question %q has out of range answer index %d", q.ID, q.AnswerIndex)
		}
	}
	return &Bank{questions: qs}, nil
}

// Fallback returns the built-in single question bank.
func Fallback() *Bank {
	return &Bank{
		questions: []Question{
			{
				ID:          "default",
				Text:        "Sample question: What is 2+2?",
				Choices:     []string{"3", "4", "5", "6"},
				AnswerIndex: 1,
			},
		},
	}
}

// Draw picks one question from the pool. The second return value is
// false when the pool is empty.
func (b *Bank) Draw() (Question, bool) {
	if len(b.questions) == 0 {
		return Question{}, false
	}
	return b.questions[rand.IntN(len(b.questions))], true
}

// Len returns the pool size.
func (b *Bank) Len() int {
	return len(b.questions)
}
