package services

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/streed/study-notes/internal/constants"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/models"
)

// QuizResult is the outcome of grading one attempt at a note's quiz.
type QuizResult struct {
	NoteID  int64            `json:"note_id"`
	Title   string           `json:"title"`
	Total   int              `json:"total"`
	Correct int              `json:"correct"`
	Score   float64          `json:"score"` // percent, one decimal
	Results []QuestionResult `json:"results"`
}

type QuestionResult struct {
	Question      string `json:"question"`
	Selected      int    `json:"selected"`
	CorrectAnswer int    `json:"correct_answer"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation"`
	CorrectOption string `json:"correct_option"`
}

// GetQuiz decodes the quiz stored with a note.
func (s *NoteService) GetQuiz(ctx context.Context, noteID int64) (*models.Quiz, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !note.HasQuiz() {
		return nil, interrors.ErrNoQuiz
	}
	return models.DecodeQuiz(*note.Quiz)
}

// GradeQuiz scores answers against the quiz of a note. answers holds one
// option index per question; constants.Unanswered marks a skipped question.
func (s *NoteService) GradeQuiz(ctx context.Context, noteID int64, answers []int) (*QuizResult, error) {
	quiz, err := s.GetQuiz(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if len(answers) != len(quiz.Questions) {
		return nil, interrors.Validation("expected %d answers, got %d", len(quiz.Questions), len(answers))
	}

	result := &QuizResult{
		NoteID:  noteID,
		Title:   quiz.Title,
		Total:   len(quiz.Questions),
		Results: make([]QuestionResult, 0, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		selected := answers[i]
		if selected != constants.Unanswered && (selected < 0 || selected >= len(q.Options)) {
			return nil, interrors.Validation("answer %d for question %d is out of range", selected, i+1)
		}

		correct := selected == q.CorrectAnswer
		if correct {
			result.Correct++
		}
		result.Results = append(result.Results, QuestionResult{
			Question:      q.Question,
			Selected:      selected,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       correct,
			Explanation:   q.Explanation,
			CorrectOption: q.Options[q.CorrectAnswer],
		})
	}

	result.Score = math.Round(float64(result.Correct)/float64(result.Total)*1000) / 10
	return result, nil
}

// ParseAnswers reads a comma separated list of option indexes such as "0,2,-1".
func ParseAnswers(raw string) ([]int, error) {
	answers := []int{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, interrors.Validation("invalid answer %q: answers must be integers", part)
		}
		answers = append(answers, n)
	}
	return answers, nil
}
