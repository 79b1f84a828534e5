// Package llm holds the external language model collaborators: speech to text,
// note formatting, quiz generation and tag suggestion.
package llm

import (
	"context"
	"fmt"

	"github.com/streed/study-notes/internal/config"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/models"
)

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// Formatter turns a raw transcript into structured markdown notes.
type Formatter interface {
	Format(ctx context.Context, req FormatRequest) (string, error)
}

// QuizGenerator produces a multiple-choice quiz from note text.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, noteText string, questionCount int) (*models.Quiz, error)
}

// Tagger suggests tags for a note that was created without any.
type Tagger interface {
	SuggestTags(ctx context.Context, title, body string, max int) ([]string, error)
}

type FormatRequest struct {
	Transcript string
	Style      string
	Template   string // empty when no template was selected
	Tags       []string
}

// Clients bundles the collaborators selected by configuration. Tagger is nil
// unless auto tagging is enabled.
type Clients struct {
	Transcriber   Transcriber
	Formatter     Formatter
	QuizGenerator QuizGenerator
	Tagger        Tagger
}

// New builds the collaborators for cfg. Transcription always goes to OpenAI
// since Ollama has no speech to text endpoint; with the ollama provider and no
// OpenAI key, transcription requests fail with an upstream error.
func New(cfg config.LLMConfig) (*Clients, error) {
	var text interface {
		Formatter
		QuizGenerator
		Tagger
	}
	clients := &Clients{}

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		openaiClient, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		clients.Transcriber = openaiClient
		text = openaiClient
	case config.ProviderOllama:
		ollamaClient, err := NewOllamaClient(cfg)
		if err != nil {
			return nil, err
		}
		text = ollamaClient

		openaiClient, err := NewOpenAIClient(cfg)
		if err != nil {
			clients.Transcriber = unavailableTranscriber{err: err}
		} else {
			clients.Transcriber = openaiClient
		}
	default:
		return nil, fmt.Errorf("%w: %s", interrors.ErrUnknownProvider, cfg.Provider)
	}

	clients.Formatter = text
	clients.QuizGenerator = text
	if cfg.AutoTag {
		clients.Tagger = text
	}
	return clients, nil
}

type unavailableTranscriber struct {
	err error
}

func (u unavailableTranscriber) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	return "", interrors.Upstream("transcription", u.err)
}
