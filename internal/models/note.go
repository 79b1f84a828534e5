package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/streed/study-notes/internal/constants"
	interrors "github.com/streed/study-notes/internal/errors"
)

// DefaultListLimit is the page size used when callers don't pass one.
const DefaultListLimit = constants.DefaultListLimit

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Note      string    `json:"note"`
	Tags      []string  `json:"tags"`
	Quiz      *string   `json:"quiz"`
	CreatedAt time.Time `json:"created_at"`
}

// HasQuiz reports whether a quiz payload was stored with the note.
func (n *Note) HasQuiz() bool {
	return n.Quiz != nil && strings.TrimSpace(*n.Quiz) != ""
}

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = "id, title, note, tags, quiz, created_at"

// Insert stores a note and returns its ID. Tags are normalized before being joined.
func (r *NoteRepository) Insert(ctx context.Context, title, body string, tags []string, quiz *string) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, interrors.ErrEmptyTitle
	}
	if strings.TrimSpace(body) == "" {
		return 0, interrors.ErrEmptyContent
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (title, note, tags, quiz) VALUES (?, ?, ?, ?)",
		title, body, JoinTags(tags), quiz,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

func (r *NoteRepository) GetByID(ctx context.Context, id int64) (*Note, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", interrors.ErrNoteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// List returns a page of notes, newest first.
func (r *NoteRepository) List(ctx context.Context, limit, offset int) ([]*Note, error) {
	if limit < 1 {
		return nil, interrors.ErrInvalidLimit
	}
	if offset < 0 {
		return nil, interrors.ErrInvalidOffset
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return collectNotes(rows)
}

// Search matches query as a case-sensitive substring of the note body. When tags
// is non-empty a note must also contain at least one of them as a substring of
// its stored tag string.
func (r *NoteRepository) Search(ctx context.Context, query string, tags []string) ([]*Note, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + noteColumns + ` FROM notes WHERE note LIKE ? ESCAPE '\'`)
	args := []interface{}{likePattern(query)}

	tags = NormalizeTags(tags)
	if len(tags) > 0 {
		conds := make([]string, len(tags))
		for i, tag := range tags {
			conds[i] = `tags LIKE ? ESCAPE '\'`
			args = append(args, likePattern(tag))
		}
		sb.WriteString(" AND (" + strings.Join(conds, " OR ") + ")")
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	return collectNotes(rows)
}

// AllTags returns the distinct tags used by any note, sorted.
func (r *NoteRepository) AllTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT tags FROM notes WHERE tags IS NOT NULL AND tags != ''")
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var joined string
		if err := rows.Scan(&joined); err != nil {
			return nil, fmt.Errorf("failed to scan tags: %w", err)
		}
		for _, tag := range SplitTags(joined) {
			seen[tag] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *NoteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(s scanner) (*Note, error) {
	var note Note
	var tags, quiz sql.NullString
	if err := s.Scan(&note.ID, &note.Title, &note.Note, &tags, &quiz, &note.CreatedAt); err != nil {
		return nil, err
	}
	note.Tags = SplitTags(tags.String)
	if quiz.Valid {
		note.Quiz = &quiz.String
	}
	return &note, nil
}

func collectNotes(rows *sql.Rows) ([]*Note, error) {
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return notes, nil
}

// NormalizeTags trims every tag, splits values that contain commas and drops
// empty entries. Order is preserved.
func NormalizeTags(tags []string) []string {
	out := []string{}
	for _, raw := range tags {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				out = append(out, tag)
			}
		}
	}
	return out
}

// JoinTags is the persisted form of a tag list.
func JoinTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), ",")
}

// SplitTags parses the persisted form back into a list. Never returns nil.
func SplitTags(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return NormalizeTags([]string{joined})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
