package services

import (
	"context"
	"database/sql"

	"github.com/streed/study-notes/internal/audio"
	"github.com/streed/study-notes/internal/cache"
	"github.com/streed/study-notes/internal/config"
	"github.com/streed/study-notes/internal/llm"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/models"
)

// NewFromConfig wires a NoteService for the given database. The optional
// archive and tag cache are skipped with a warning when unreachable. The
// returned cleanup releases their connections.
func NewFromConfig(ctx context.Context, cfg *config.Config, db *sql.DB) (*NoteService, func(), error) {
	clients, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	deps := Deps{
		Notes:         models.NewNoteRepository(db),
		Templates:     models.NewTemplateRepository(db),
		Transcriber:   clients.Transcriber,
		Formatter:     clients.Formatter,
		QuizGenerator: clients.QuizGenerator,
		Tagger:        clients.Tagger,
	}
	cleanup := func() {}

	if cfg.Archive.Enabled {
		archive, err := audio.NewMinIOArchive(ctx, cfg.Archive)
		if err != nil {
			logger.Warn("Audio archive disabled: %v", err)
		} else {
			deps.Archive = archive
			logger.Info("Archiving uploads to %s/%s", cfg.Archive.Endpoint, cfg.Archive.Bucket)
		}
	}

	if cfg.Cache.RedisAddress != "" {
		tagCache, err := cache.NewRedisTagCache(ctx, cfg.Cache)
		if err != nil {
			logger.Warn("Tag cache disabled: %v", err)
		} else {
			deps.TagCache = tagCache
			cleanup = func() {
				if err := tagCache.Close(); err != nil {
					logger.Debug("Failed to close tag cache: %v", err)
				}
			}
		}
	}

	svc := NewNoteService(deps, Options{
		Language:      cfg.LLM.Language,
		QuizQuestions: cfg.LLM.QuizQuestions,
		MaxAutoTags:   cfg.LLM.MaxAutoTags,
	})
	return svc, cleanup, nil
}
