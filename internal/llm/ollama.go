package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"

	"github.com/streed/study-notes/internal/config"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/models"
)

// OllamaClient formats notes, writes quizzes and suggests tags with a local
// Ollama model. It cannot transcribe audio.
type OllamaClient struct {
	client      *olla.Client
	model       string
	temperature float32
}

func NewOllamaClient(cfg config.LLMConfig) (*OllamaClient, error) {
	endpoint := cfg.OllamaEndpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama endpoint: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &OllamaClient{
		client:      olla.NewClient(parsedURL, &http.Client{Timeout: timeout}),
		model:       orDefault(cfg.OllamaModel, "llama3.2:latest"),
		temperature: 0.3,
	}, nil
}

func (c *OllamaClient) Format(ctx context.Context, req FormatRequest) (string, error) {
	out, err := c.generate(ctx, BuildFormatPrompt(req), false)
	if err != nil {
		return "", interrors.Upstream("note formatting", err)
	}
	return out, nil
}

func (c *OllamaClient) GenerateQuiz(ctx context.Context, noteText string, questionCount int) (*models.Quiz, error) {
	out, err := c.generate(ctx, BuildQuizPrompt(noteText, questionCount), true)
	if err != nil {
		return nil, interrors.Upstream("quiz generation", err)
	}
	quiz, err := ParseQuiz(out)
	if err != nil {
		return nil, interrors.Upstream("quiz generation", err)
	}
	return quiz, nil
}

func (c *OllamaClient) SuggestTags(ctx context.Context, title, body string, max int) ([]string, error) {
	out, err := c.generate(ctx, BuildTagPrompt(title, body, max), false)
	if err != nil {
		return nil, interrors.Upstream("tag suggestion", err)
	}
	return ParseTags(out, max), nil
}

func (c *OllamaClient) generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	stream := false
	req := &olla.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]interface{}{"temperature": c.temperature},
	}
	if jsonOutput {
		req.Format = json.RawMessage(`"json"`)
	}

	logger.Debug("Requesting generation from Ollama with model %s", c.model)
	start := time.Now()

	var sb strings.Builder
	err := c.client.Generate(ctx, req, func(resp olla.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		logger.Error("Ollama API error: %v", err)
		return "", fmt.Errorf("failed to generate with ollama: %w", err)
	}
	logger.Debug("Ollama generation took %v", time.Since(start))

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return out, nil
}
