// Package client talks to a running study-notes API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/models"
	"github.com/streed/study-notes/internal/services"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-2xx response. It unwraps to the matching error kind so
// callers can use errors.Is with the internal/errors sentinels.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return interrors.ErrValidation
	case http.StatusNotFound:
		return interrors.ErrNotFound
	case http.StatusConflict:
		return interrors.ErrConflict
	case http.StatusBadGateway:
		return interrors.ErrUpstream
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// New returns a client for baseURL. Transcription requests can run for
// minutes, so timeout should cover a full upstream round trip.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var health map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/health", nil, "", &health)
	return health, err
}

func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	var stats map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/stats", nil, "", &stats)
	return stats, err
}

func (c *Client) ListNotes(ctx context.Context, limit, offset int) ([]*models.Note, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var notes []*models.Note
	err := c.do(ctx, http.MethodGet, "/notes?"+q.Encode(), nil, "", &notes)
	return notes, err
}

func (c *Client) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	var note models.Note
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/notes/%d", id), nil, "", &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) CreateNote(ctx context.Context, title, body string, tags []string) (*models.Note, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"title": title,
		"note":  body,
		"tags":  models.NormalizeTags(tags),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var note models.Note
	if err := c.do(ctx, http.MethodPost, "/notes", bytes.NewReader(payload), "application/json", &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) SearchNotes(ctx context.Context, query string, tags []string) ([]*models.Note, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	for _, tag := range models.NormalizeTags(tags) {
		q.Add("tags", tag)
	}

	var notes []*models.Note
	err := c.do(ctx, http.MethodGet, "/notes/search?"+q.Encode(), nil, "", &notes)
	return notes, err
}

func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := c.do(ctx, http.MethodGet, "/tags", nil, "", &tags)
	return tags, err
}

func (c *Client) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	var templates []*models.Template
	err := c.do(ctx, http.MethodGet, "/templates", nil, "", &templates)
	return templates, err
}

func (c *Client) SaveTemplate(ctx context.Context, name, content string) (*models.Template, error) {
	payload, err := json.Marshal(map[string]string{"name": name, "content": content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var tmpl models.Template
	if err := c.do(ctx, http.MethodPost, "/templates", bytes.NewReader(payload), "application/json", &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (c *Client) GetQuiz(ctx context.Context, noteID int64) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/notes/%d/quiz", noteID), nil, "", &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *Client) GradeQuiz(ctx context.Context, noteID int64, answers []int) (*services.QuizResult, error) {
	payload, err := json.Marshal(map[string][]int{"answers": answers})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var result services.QuizResult
	path := fmt.Sprintf("/notes/%d/quiz/grade", noteID)
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TranscribeRequest is an audio upload for POST /transcribe.
type TranscribeRequest struct {
	Audio        io.Reader
	Filename     string
	Title        string
	Style        string
	TemplateName string
	Tags         []string
}

func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (*models.Note, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":         req.Title,
		"note_style":    req.Style,
		"template_name": req.TemplateName,
		"tags":          strings.Join(models.NormalizeTags(req.Tags), ","),
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	part, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Audio); err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var note models.Note
	if err := c.do(ctx, http.MethodPost, "/transcribe", &buf, mw.FormDataContentType(), &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
