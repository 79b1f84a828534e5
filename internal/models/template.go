package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	interrors "github.com/streed/study-notes/internal/errors"
)

// Template is a named formatting instruction passed to the formatter.
type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Save inserts a new template. Names are unique; a second save under the same
// name fails with a conflict and leaves the first one untouched.
func (r *TemplateRepository) Save(ctx context.Context, name, content string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, interrors.Validation("template name cannot be empty")
	}
	if strings.TrimSpace(content) == "" {
		return 0, interrors.Validation("template content cannot be empty")
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO templates (name, content) VALUES (?, ?)", name, content)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %q", interrors.ErrTemplateExists, name)
		}
		return 0, fmt.Errorf("failed to save template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*Template, error) {
	var t Template
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, content, created_at FROM templates WHERE name = ?", name,
	).Scan(&t.ID, &t.Name, &t.Content, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", interrors.ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// List returns all templates ordered by name.
func (r *TemplateRepository) List(ctx context.Context) ([]*Template, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, content, created_at FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []*Template{}
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return templates, nil
}

func (r *TemplateRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM templates").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
