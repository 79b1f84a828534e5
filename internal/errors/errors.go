package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to the API layer. Every error returned by the storage
// and service layers wraps at most one of these.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrUpstream   = errors.New("upstream error")
)

// Common errors used throughout the application
var (
	// Database errors
	ErrNoteNotFound     = fmt.Errorf("note %w", ErrNotFound)
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)
	ErrTemplateExists   = fmt.Errorf("%w: template name already exists", ErrConflict)

	// Validation errors
	ErrEmptyTitle    = fmt.Errorf("%w: title cannot be empty", ErrValidation)
	ErrEmptyContent  = fmt.Errorf("%w: note content cannot be empty", ErrValidation)
	ErrEmptyAudio    = fmt.Errorf("%w: audio file is empty", ErrValidation)
	ErrInvalidNoteID = fmt.Errorf("%w: invalid note ID", ErrValidation)
	ErrInvalidLimit  = fmt.Errorf("%w: limit must be at least 1", ErrValidation)
	ErrInvalidOffset = fmt.Errorf("%w: offset cannot be negative", ErrValidation)
	ErrNoQuiz        = fmt.Errorf("%w: note has no quiz", ErrValidation)

	// Configuration errors
	ErrMissingAPIKey    = errors.New("OpenAI API key is not configured")
	ErrUnknownProvider  = errors.New("unknown LLM provider")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
)

// Validation builds an error that matches ErrValidation.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an error that matches ErrNotFound.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflict builds an error that matches ErrConflict.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Upstream wraps a failure of an external collaborator so it matches ErrUpstream
// while keeping the original cause in the chain.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return &upstreamError{op: op, err: err}
}

type upstreamError struct {
	op  string
	err error
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.op, e.err)
}

func (e *upstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.err}
}

// Kind returns the sentinel an error belongs to, or nil for unclassified errors.
// Upstream wins so a collaborator's malformed output is not blamed on the caller.
func Kind(err error) error {
	for _, kind := range []error{ErrUpstream, ErrValidation, ErrNotFound, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
