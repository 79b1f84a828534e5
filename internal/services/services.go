package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/streed/study-notes/internal/audio"
	"github.com/streed/study-notes/internal/cache"
	"github.com/streed/study-notes/internal/constants"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/llm"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/models"
)

// Deps are the collaborators a NoteService orchestrates. Tagger, Archive and
// TagCache are optional.
type Deps struct {
	Notes         *models.NoteRepository
	Templates     *models.TemplateRepository
	Transcriber   llm.Transcriber
	Formatter     llm.Formatter
	QuizGenerator llm.QuizGenerator
	Tagger        llm.Tagger
	Archive       audio.Archive
	TagCache      cache.TagCache
}

type Options struct {
	Language      string // transcription language hint
	QuizQuestions int
	MaxAutoTags   int
}

// NoteService turns text or recordings into stored notes with quizzes.
type NoteService struct {
	notes       *models.NoteRepository
	templates   *models.TemplateRepository
	transcriber llm.Transcriber
	formatter   llm.Formatter
	quizzes     llm.QuizGenerator
	tagger      llm.Tagger
	archive     audio.Archive
	tagCache    cache.TagCache
	opts        Options
}

func NewNoteService(deps Deps, opts Options) *NoteService {
	if opts.QuizQuestions < 1 {
		opts.QuizQuestions = constants.DefaultQuizQuestions
	}
	if opts.MaxAutoTags < 1 {
		opts.MaxAutoTags = constants.DefaultMaxAutoTags
	}
	return &NoteService{
		notes:       deps.Notes,
		templates:   deps.Templates,
		transcriber: deps.Transcriber,
		formatter:   deps.Formatter,
		quizzes:     deps.QuizGenerator,
		tagger:      deps.Tagger,
		archive:     deps.Archive,
		tagCache:    deps.TagCache,
		opts:        opts,
	}
}

// AudioInput is a recording submitted for transcription.
type AudioInput struct {
	Data         []byte
	Filename     string
	Title        string
	Style        string
	TemplateName string
	Tags         []string
}

// CreateFromText stores body as-is together with a generated quiz. If quiz
// generation fails nothing is stored.
func (s *NoteService) CreateFromText(ctx context.Context, title, body string, tags []string) (*models.Note, error) {
	if strings.TrimSpace(title) == "" {
		return nil, interrors.ErrEmptyTitle
	}
	if strings.TrimSpace(body) == "" {
		return nil, interrors.ErrEmptyContent
	}

	quiz, err := s.generateQuiz(ctx, body)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, title, body, tags, quiz)
}

// CreateFromAudio transcribes a recording, formats the transcript into notes
// and stores them with a generated quiz. Archiving and tag suggestion are best
// effort; every other failure aborts before anything is stored.
func (s *NoteService) CreateFromAudio(ctx context.Context, in AudioInput) (*models.Note, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, interrors.ErrEmptyTitle
	}
	upload, err := audio.Inspect(in.Data, in.Filename)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		if key, err := s.archive.Store(ctx, upload); err != nil {
			logger.Warn("Failed to archive upload %s: %v", upload.Filename, err)
		} else {
			logger.Debug("Archived upload %s as %s", upload.Filename, key)
		}
	}

	transcript, err := s.transcriber.Transcribe(ctx, upload.Data, upload.Filename, s.opts.Language)
	if err != nil {
		return nil, interrors.Upstream("transcription", err)
	}
	logger.Debug("Transcript for %q has %d characters", in.Title, len(transcript))

	template, err := s.lookupTemplate(ctx, in.TemplateName)
	if err != nil {
		return nil, err
	}

	tags := models.NormalizeTags(in.Tags)
	if len(tags) == 0 && s.tagger != nil {
		suggested, err := s.tagger.SuggestTags(ctx, in.Title, transcript, s.opts.MaxAutoTags)
		if err != nil {
			logger.Warn("Tag suggestion failed, storing note without tags: %v", err)
		} else {
			tags = suggested
		}
	}

	style := strings.TrimSpace(in.Style)
	if style == "" {
		style = constants.DefaultNoteStyle
	}

	formatted, err := s.formatter.Format(ctx, llm.FormatRequest{
		Transcript: transcript,
		Style:      style,
		Template:   template,
		Tags:       tags,
	})
	if err != nil {
		return nil, interrors.Upstream("note formatting", err)
	}

	quiz, err := s.generateQuiz(ctx, formatted)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, in.Title, formatted, tags, quiz)
}

// lookupTemplate returns the content of the named template. An unknown name
// is not an error: formatting proceeds without a template.
func (s *NoteService) lookupTemplate(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "none") {
		return "", nil
	}
	tmpl, err := s.templates.GetByName(ctx, name)
	if err != nil {
		if interrors.Kind(err) == interrors.ErrNotFound {
			logger.Debug("Template %q not found, formatting without one", name)
			return "", nil
		}
		return "", err
	}
	return tmpl.Content, nil
}

func (s *NoteService) generateQuiz(ctx context.Context, text string) (*string, error) {
	quiz, err := s.quizzes.GenerateQuiz(ctx, text, s.opts.QuizQuestions)
	if err != nil {
		return nil, interrors.Upstream("quiz generation", err)
	}
	if quiz == nil {
		return nil, interrors.Upstream("quiz generation", errors.New("empty quiz"))
	}
	encoded, err := quiz.Encode()
	if err != nil {
		return nil, err
	}
	return &encoded, nil
}

func (s *NoteService) persist(ctx context.Context, title, body string, tags []string, quiz *string) (*models.Note, error) {
	id, err := s.notes.Insert(ctx, title, body, tags, quiz)
	if err != nil {
		return nil, err
	}
	if s.tagCache != nil {
		s.tagCache.Invalidate(ctx)
	}
	logger.Info("Created note %d: %s", id, title)
	return s.notes.GetByID(ctx, id)
}

func (s *NoteService) Get(ctx context.Context, id int64) (*models.Note, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *NoteService) List(ctx context.Context, limit, offset int) ([]*models.Note, error) {
	return s.notes.List(ctx, limit, offset)
}

func (s *NoteService) Search(ctx context.Context, query string, tags []string) ([]*models.Note, error) {
	return s.notes.Search(ctx, query, tags)
}

// ListTags returns every distinct tag, sorted. A cache fill is tied to the
// generation seen before the storage read, so a note created meanwhile
// invalidates it.
func (s *NoteService) ListTags(ctx context.Context) ([]string, error) {
	var gen int64
	if s.tagCache != nil {
		tags, g, ok := s.tagCache.Get(ctx)
		if ok {
			return tags, nil
		}
		gen = g
	}
	tags, err := s.notes.AllTags(ctx)
	if err != nil {
		return nil, err
	}
	if s.tagCache != nil {
		s.tagCache.Set(ctx, gen, tags)
	}
	return tags, nil
}

func (s *NoteService) SaveTemplate(ctx context.Context, name, content string) (*models.Template, error) {
	name = strings.TrimSpace(name)
	if _, err := s.templates.Save(ctx, name, content); err != nil {
		return nil, err
	}
	return s.templates.GetByName(ctx, name)
}

func (s *NoteService) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	return s.templates.List(ctx)
}

// Stats summarizes what is stored.
type Stats struct {
	Notes     int `json:"notes"`
	Tags      int `json:"tags"`
	Templates int `json:"templates"`
}

func (s *NoteService) Stats(ctx context.Context) (*Stats, error) {
	notes, err := s.notes.Count(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := s.templates.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}
	return &Stats{Notes: notes, Tags: len(tags), Templates: templates}, nil
}
