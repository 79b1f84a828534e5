package llm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/streed/study-notes/internal/config"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/models"
)

// OpenAIClient talks to the OpenAI API (or any compatible endpoint) for every
// collaborator: Whisper for transcription and chat completions for the rest.
type OpenAIClient struct {
	client             *openai.Client
	transcriptionModel string
	formatModel        string
	quizModel          string
}

func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, interrors.ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:             openai.NewClientWithConfig(clientConfig),
		transcriptionModel: orDefault(cfg.TranscriptionModel, openai.Whisper1),
		formatModel:        orDefault(cfg.FormatModel, "gpt-4o-mini"),
		quizModel:          orDefault(cfg.QuizModel, "gpt-4o-mini"),
	}, nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	if len(audio) == 0 {
		return "", interrors.ErrEmptyAudio
	}

	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: language,
	})
	if err != nil {
		return "", interrors.Upstream("transcription", err)
	}
	logger.Debug("Transcribed %d bytes with %s in %v", len(audio), c.transcriptionModel, time.Since(start))

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", interrors.Upstream("transcription", fmt.Errorf("empty transcript"))
	}
	return text, nil
}

func (c *OpenAIClient) Format(ctx context.Context, req FormatRequest) (string, error) {
	content, err := c.complete(ctx, c.formatModel, BuildFormatPrompt(req), false)
	if err != nil {
		return "", interrors.Upstream("note formatting", err)
	}
	return content, nil
}

func (c *OpenAIClient) GenerateQuiz(ctx context.Context, noteText string, questionCount int) (*models.Quiz, error) {
	content, err := c.complete(ctx, c.quizModel, BuildQuizPrompt(noteText, questionCount), true)
	if err != nil {
		return nil, interrors.Upstream("quiz generation", err)
	}
	quiz, err := ParseQuiz(content)
	if err != nil {
		return nil, interrors.Upstream("quiz generation", err)
	}
	return quiz, nil
}

func (c *OpenAIClient) SuggestTags(ctx context.Context, title, body string, max int) ([]string, error) {
	content, err := c.complete(ctx, c.formatModel, BuildTagPrompt(title, body, max), false)
	if err != nil {
		return nil, interrors.Upstream("tag suggestion", err)
	}
	return ParseTags(content, max), nil
}

func (c *OpenAIClient) complete(ctx context.Context, model, prompt string, jsonOutput bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	logger.Debug("Chat completion with %s took %v", model, time.Since(start))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return content, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
