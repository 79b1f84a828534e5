package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/streed/study-notes/internal/constants"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/models"
	"github.com/streed/study-notes/internal/services"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in
// memory before spilling to temp files.
const multipartMemory = 8 << 20

// TagList accepts either a JSON array of tags or a single comma separated string.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = models.NormalizeTags(list)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("tags must be a list of strings or a comma separated string")
	}
	*t = models.NormalizeTags([]string{joined})
	return nil
}

type CreateNoteRequest struct {
	Title string  `json:"title"`
	Note  string  `json:"note"`
	Tags  TagList `json:"tags"`
}

type SaveTemplateRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type GradeQuizRequest struct {
	Answers []int `json:"answers"`
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return interrors.Validation("invalid JSON: %v", err)
	}
	return nil
}

// Handlers

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
		"provider":  s.cfg.LLM.Provider,
	}

	// Check database connection
	if err := s.db.PingContext(r.Context()); err != nil {
		health["status"] = "unhealthy"
		health["database_error"] = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *APIServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	limit, err := parseQueryInt(r, "limit", constants.DefaultListLimit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	offset, err := parseQueryInt(r, "offset", 0)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	notes, err := s.svc.List(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, notes)
}

func (s *APIServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIDParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	note, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	note, err := s.svc.CreateFromText(r.Context(), req.Title, req.Note, req.Tags)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tags := models.NormalizeTags(query["tags"])

	notes, err := s.svc.Search(r.Context(), query.Get("q"), tags)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, notes)
}

func (s *APIServer) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIDParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	quiz, err := s.svc.GetQuiz(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, quiz)
}

func (s *APIServer) handleGradeQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIDParam(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req GradeQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.svc.GradeQuiz(r.Context(), id, req.Answers)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.ListTags(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tags)
}

func (s *APIServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.MaxUploadBytes()
	tooLargeErr := fmt.Errorf("upload exceeds the %d MB limit", s.cfg.Server.MaxUploadMB)
	if r.ContentLength > maxBytes {
		s.writeError(w, http.StatusBadRequest, tooLargeErr)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusBadRequest, tooLargeErr)
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Debug("Failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("missing audio file: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	style := r.FormValue("note_style")
	if style == "" {
		style = r.FormValue("style")
	}

	note, err := s.svc.CreateFromAudio(r.Context(), services.AudioInput{
		Data:         data,
		Filename:     header.Filename,
		Title:        r.FormValue("title"),
		Style:        style,
		TemplateName: r.FormValue("template_name"),
		Tags:         models.NormalizeTags(r.MultipartForm.Value["tags"]),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.svc.ListTemplates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, templates)
}

// handleSaveTemplate accepts JSON or form fields, and a template file upload
// in place of the content field.
func (s *APIServer) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	req, err := s.readTemplateRequest(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	tmpl, err := s.svc.SaveTemplate(r.Context(), req.Name, req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tmpl)
}

func (s *APIServer) readTemplateRequest(w http.ResponseWriter, r *http.Request) (*SaveTemplateRequest, error) {
	var req SaveTemplateRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return &req, decodeJSON(r, &req)
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, interrors.Validation("invalid form: %v", err)
	}
	req.Name = r.FormValue("name")
	if req.Name == "" {
		req.Name = r.FormValue("template_name")
	}
	req.Content = r.FormValue("content")

	if req.Content == "" && r.MultipartForm != nil {
		if file, _, err := r.FormFile("file"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return nil, interrors.Validation("failed to read template file: %v", err)
			}
			req.Content = string(data)
		}
	}
	return &req, nil
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_notes":     stats.Notes,
		"total_tags":      stats.Tags,
		"total_templates": stats.Templates,
		"database_path":   s.cfg.Storage.DatabasePath,
	})
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	config := map[string]interface{}{
		"debug_mode":      s.cfg.Debug,
		"provider":        s.cfg.LLM.Provider,
		"quiz_questions":  s.cfg.LLM.QuizQuestions,
		"auto_tag":        s.cfg.LLM.AutoTag,
		"max_upload_mb":   s.cfg.Server.MaxUploadMB,
		"note_styles":     constants.NoteStyles,
		"archive_enabled": s.cfg.Archive.Enabled,
		"cache_enabled":   s.cfg.Cache.RedisAddress != "",
	}

	s.writeJSON(w, http.StatusOK, config)
}

func (s *APIServer) handleDocs(w http.ResponseWriter, r *http.Request) {
	docs := `# Study Notes API Documentation

## Base URL
http://localhost:8000 (every route is also served under /api/v1)

Responses are wrapped as {"success": bool, "data": ..., "error": "..."}.
Errors: 400 invalid input, 404 unknown note or template, 409 duplicate
template name, 502 transcription or language model failure.

## Endpoints

### Notes
- GET /notes - List notes, newest first (query params: limit, offset)
- GET /notes/{id} - Get specific note
- POST /notes - Create a note from text and generate its quiz
- GET /notes/search - Search notes (query params: q, tags (repeatable))
- GET /notes/{id}/quiz - Get the decoded quiz of a note
- POST /notes/{id}/quiz/grade - Grade answers against the quiz

### Audio
- POST /transcribe - Multipart upload: file, title, note_style, template_name, tags

### Tags
- GET /tags - List all tags

### Templates
- GET /templates - List templates
- POST /templates - Save a template (also POST /templates/upload)

### System
- GET /health - Health check
- GET /stats - Database statistics
- GET /config - Configuration info
- GET /docs - This documentation

## Example Usage

### Create a note:
POST /notes
{
  "title": "Lecture 1",
  "note": "cells divide by mitosis",
  "tags": ["bio", "lecture"]
}

### Grade a quiz (-1 leaves a question unanswered):
POST /notes/1/quiz/grade
{
  "answers": [0, 2, -1, 1, 3]
}
`

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(docs)); err != nil {
		logger.Error("Failed to write response: %v", err)
	}
}
