package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/study-notes/internal/database"
	interrors "github.com/streed/study-notes/internal/errors"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.Conn()
}

func TestNoteRepositoryInsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	quiz := `{"title":"Q","questions":[]}`
	id, err := repo.Insert(ctx, "Lecture 1", "Cells are the unit of life", []string{" bio ", "", "lecture"}, &quiz)
	require.NoError(t, err)
	assert.Positive(t, id)

	note, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, note.ID)
	assert.Equal(t, "Lecture 1", note.Title)
	assert.Equal(t, "Cells are the unit of life", note.Note)
	assert.Equal(t, []string{"bio", "lecture"}, note.Tags)
	require.NotNil(t, note.Quiz)
	assert.Equal(t, quiz, *note.Quiz)
	assert.True(t, note.HasQuiz())
	assert.False(t, note.CreatedAt.IsZero())
}

func TestNoteRepositoryInsertWithoutTagsOrQuiz(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	id, err := repo.Insert(ctx, "Bare", "just text", nil, nil)
	require.NoError(t, err)

	note, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, note.Tags)
	assert.Empty(t, note.Tags)
	assert.Nil(t, note.Quiz)
	assert.False(t, note.HasQuiz())
}

func TestNoteRepositoryInsertValidation(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	_, err := repo.Insert(ctx, "  ", "body", nil, nil)
	assert.ErrorIs(t, err, interrors.ErrValidation)

	_, err = repo.Insert(ctx, "title", "", nil, nil)
	assert.ErrorIs(t, err, interrors.ErrValidation)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNoteRepositoryGetByID_NotFound(t *testing.T) {
	repo := NewNoteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, interrors.ErrNoteNotFound)
	assert.ErrorIs(t, err, interrors.ErrNotFound)
}

func TestNoteRepositoryIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewNoteRepository(db)

	first, err := repo.Insert(ctx, "a", "a", nil, nil)
	require.NoError(t, err)

	// rows are never deleted by the application, but AUTOINCREMENT must still hold if they are
	_, err = db.Exec("DELETE FROM notes WHERE id = ?", first)
	require.NoError(t, err)

	second, err := repo.Insert(ctx, "b", "b", nil, nil)
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestNoteRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	var ids []int64
	for i := 1; i <= 5; i++ {
		id, err := repo.Insert(ctx, fmt.Sprintf("Note %d", i), fmt.Sprintf("Body %d", i), nil, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := repo.List(ctx, DefaultListLimit, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, note := range all {
		assert.Equal(t, ids[len(ids)-1-i], note.ID, "newest first")
	}

	page, err := repo.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	past, err := repo.List(ctx, 10, 10)
	require.NoError(t, err)
	assert.NotNil(t, past)
	assert.Empty(t, past)
}

func TestNoteRepositoryListInvalidArgs(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	_, err := repo.List(ctx, 0, 0)
	assert.ErrorIs(t, err, interrors.ErrValidation)

	_, err = repo.List(ctx, 10, -1)
	assert.ErrorIs(t, err, interrors.ErrValidation)
}

func TestNoteRepositorySearch(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	notes := []struct {
		title string
		body  string
		tags  []string
	}{
		{"Calc", "Derivatives measure change", []string{"mathematics", "calc"}},
		{"Cells", "Mitochondria and change in cells", []string{"bio"}},
		{"Algebra", "Groups and rings", []string{"math"}},
		{"Percent", "Growth of 50% per year", nil},
	}
	for _, n := range notes {
		_, err := repo.Insert(ctx, n.title, n.body, n.tags, nil)
		require.NoError(t, err)
	}

	titles := func(ns []*Note) []string {
		out := []string{}
		for _, n := range ns {
			out = append(out, n.Title)
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		tags  []string
		want  []string
	}{
		{"substring of body", "change", nil, []string{"Cells", "Calc"}},
		{"case sensitive", "mitochondria", nil, []string{}},
		{"empty query matches all", "", nil, []string{"Percent", "Algebra", "Cells", "Calc"}},
		{"tag substring", "", []string{"math"}, []string{"Algebra", "Calc"}},
		{"query and tag", "change", []string{"math"}, []string{"Calc"}},
		{"any of several tags", "", []string{"bio", "calc"}, []string{"Cells", "Calc"}},
		{"blank tags ignored", "Groups", []string{" ", ""}, []string{"Algebra"}},
		{"percent is literal", "50%", nil, []string{"Percent"}},
		{"underscore is literal", "_", nil, []string{}},
		{"no match", "nonexistent", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.Search(ctx, tt.query, tt.tags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(results))
		})
	}
}

func TestNoteRepositoryAllTags(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	tags, err := repo.AllTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = repo.Insert(ctx, "a", "a", []string{"lecture", "bio"}, nil)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "b", "b", []string{"bio", "chem"}, nil)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "c", "c", nil, nil)
	require.NoError(t, err)

	tags, err = repo.AllTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bio", "chem", "lecture"}, tags)
}

func TestNoteRepositoryConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(setupTestDB(t))

	const workers = 10
	var wg sync.WaitGroup
	ids := make(chan int64, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := repo.Insert(ctx, "Concurrent", fmt.Sprintf("Content %d", i), []string{"load"}, nil)
			if err != nil {
				errs <- err
				return
			}
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("Failed to insert note concurrently: %v", err)
	}

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers, count)
}

func TestTagHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, NormalizeTags([]string{" a, b", "", "c "}))
	assert.Equal(t, "a,b", JoinTags([]string{"a", " ", "b"}))
	assert.Equal(t, []string{}, SplitTags(""))
	assert.Equal(t, []string{"x", "y"}, SplitTags("x,y"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestTemplateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(setupTestDB(t))

	id, err := repo.Save(ctx, "Cornell", "Cue column | Notes | Summary")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = repo.Save(ctx, "Cornell", "something else")
	assert.ErrorIs(t, err, interrors.ErrConflict)

	_, err = repo.Save(ctx, "Outline", "I. II. III.")
	require.NoError(t, err)

	// names are case-sensitive
	_, err = repo.Save(ctx, "cornell", "lowercase variant")
	require.NoError(t, err)

	templates, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 3)
	assert.Equal(t, "Cornell", templates[0].Name)
	assert.Equal(t, "Cue column | Notes | Summary", templates[0].Content)
	assert.Equal(t, "Outline", templates[1].Name)
	assert.Equal(t, "cornell", templates[2].Name)

	tmpl, err := repo.GetByName(ctx, "Outline")
	require.NoError(t, err)
	assert.Equal(t, "I. II. III.", tmpl.Content)

	_, err = repo.GetByName(ctx, "Missing")
	assert.ErrorIs(t, err, interrors.ErrNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTemplateRepositoryValidation(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(setupTestDB(t))

	_, err := repo.Save(ctx, "", "content")
	assert.ErrorIs(t, err, interrors.ErrValidation)
	_, err = repo.Save(ctx, "name", "  ")
	assert.ErrorIs(t, err, interrors.ErrValidation)
}

func TestTemplateRepositoryConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(setupTestDB(t))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Save(ctx, "Shared", fmt.Sprintf("content %d", i))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, interrors.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
}
