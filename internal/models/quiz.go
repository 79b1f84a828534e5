package models

import (
	"encoding/json"
	"fmt"
	"strings"

	interrors "github.com/streed/study-notes/internal/errors"
)

// OptionsPerQuestion is the number of choices every generated question carries.
const OptionsPerQuestion = 4

// Quiz is the multiple-choice quiz stored alongside a note. Storage keeps the
// serialized form opaque; only grading decodes it.
type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Validate checks the shape produced by the quiz generator.
func (q *Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return interrors.Validation("quiz has no questions")
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.Question) == "" {
			return interrors.Validation("question %d has no text", i+1)
		}
		if len(question.Options) != OptionsPerQuestion {
			return interrors.Validation("question %d has %d options, want %d", i+1, len(question.Options), OptionsPerQuestion)
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
			return interrors.Validation("question %d has out of range correct_answer %d", i+1, question.CorrectAnswer)
		}
	}
	return nil
}

// Encode serializes the quiz for storage.
func (q *Quiz) Encode() (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("failed to encode quiz: %w", err)
	}
	return string(data), nil
}

// DecodeQuiz parses and validates a stored quiz payload.
func DecodeQuiz(payload string) (*Quiz, error) {
	var quiz Quiz
	if err := json.Unmarshal([]byte(payload), &quiz); err != nil {
		return nil, interrors.Validation("quiz payload is not valid JSON: %v", err)
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	return &quiz, nil
}
