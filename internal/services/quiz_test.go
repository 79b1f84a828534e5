package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/study-notes/internal/constants"
	interrors "github.com/streed/study-notes/internal/errors"
)

func TestGradeQuiz(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	note, err := f.svc.CreateFromText(ctx, "Lecture", "body", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		answers []int
		correct int
		score   float64
	}{
		{"all correct", []int{0, 3}, 2, 100},
		{"half", []int{0, 1}, 1, 50},
		{"none", []int{2, 2}, 0, 0},
		{"skipped counts as wrong", []int{constants.Unanswered, 3}, 1, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.GradeQuiz(ctx, note.ID, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, note.ID, result.NoteID)
			assert.Equal(t, 2, result.Total)
			assert.Equal(t, tt.correct, result.Correct)
			assert.Equal(t, tt.score, result.Score)
			require.Len(t, result.Results, 2)
			assert.Equal(t, "z", result.Results[1].CorrectOption)
			assert.Equal(t, tt.answers[0], result.Results[0].Selected)
		})
	}
}

func TestGradeQuizRoundsToOneDecimal(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	quiz := `{"title":"Three","questions":[
		{"question":"a","options":["1","2","3","4"],"correct_answer":0},
		{"question":"b","options":["1","2","3","4"],"correct_answer":0},
		{"question":"c","options":["1","2","3","4"],"correct_answer":0}]}`
	id, err := f.notes.Insert(ctx, "Three", "body", nil, &quiz)
	require.NoError(t, err)

	result, err := f.svc.GradeQuiz(ctx, id, []int{0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 33.3, result.Score)
}

func TestGradeQuizErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	note, err := f.svc.CreateFromText(ctx, "Lecture", "body", nil)
	require.NoError(t, err)

	_, err = f.svc.GradeQuiz(ctx, note.ID, []int{0})
	assert.ErrorIs(t, err, interrors.ErrValidation, "answer count mismatch")

	_, err = f.svc.GradeQuiz(ctx, note.ID, []int{0, 4})
	assert.ErrorIs(t, err, interrors.ErrValidation, "answer out of range")

	_, err = f.svc.GradeQuiz(ctx, 999, []int{0, 0})
	assert.ErrorIs(t, err, interrors.ErrNotFound)

	noQuiz, err := f.notes.Insert(ctx, "Plain", "body", nil, nil)
	require.NoError(t, err)
	_, err = f.svc.GradeQuiz(ctx, noQuiz, nil)
	assert.ErrorIs(t, err, interrors.ErrNoQuiz)

	garbage := "{not json"
	broken, err := f.notes.Insert(ctx, "Broken", "body", nil, &garbage)
	require.NoError(t, err)
	_, err = f.svc.GradeQuiz(ctx, broken, []int{0})
	assert.ErrorIs(t, err, interrors.ErrValidation)
}

func TestGetQuiz(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	note, err := f.svc.CreateFromText(ctx, "Lecture", "body", nil)
	require.NoError(t, err)

	quiz, err := f.svc.GetQuiz(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quiz", quiz.Title)
	assert.Len(t, quiz.Questions, 2)
}
