package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/study-notes/internal/config"
	interrors "github.com/streed/study-notes/internal/errors"
)

const quizJSON = `{
  "title": "Cell Biology",
  "questions": [
    {"question": "Powerhouse of the cell?", "options": ["Nucleus", "Mitochondria", "Ribosome", "Golgi"], "correct_answer": 1, "explanation": "Produces ATP"},
    {"question": "Basic unit of life?", "options": ["Atom", "Organ", "Cell", "Tissue"], "correct_answer": 2, "explanation": "Cell theory"}
  ]
}`

func TestBuildFormatPrompt(t *testing.T) {
	prompt := BuildFormatPrompt(FormatRequest{
		Transcript: "today we cover mitosis",
		Style:      "summary",
		Tags:       []string{"bio", "lecture"},
	})

	assert.Contains(t, prompt, "selected note style: summary.")
	assert.Contains(t, prompt, "if provided: No template provided.")
	assert.Contains(t, prompt, "categorization: bio, lecture.")
	assert.Contains(t, prompt, "do not use markdown/latex syntax")
	assert.True(t, strings.HasSuffix(prompt, "Here's the transcript: today we cover mitosis"))

	withTemplate := BuildFormatPrompt(FormatRequest{Transcript: "x", Template: "## Summary\n## Details"})
	assert.Contains(t, withTemplate, "if provided: ## Summary\n## Details")
	assert.Contains(t, withTemplate, "note style: detailed.")
}

func TestBuildQuizPrompt(t *testing.T) {
	prompt := BuildQuizPrompt("Cells divide.", 3)
	assert.Contains(t, prompt, "Create 3 questions with 4 options each.")
	assert.Contains(t, prompt, `"correct_answer": 0`)
	assert.True(t, strings.HasSuffix(prompt, "Notes:\nCells divide."))
}

func TestParseQuiz(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain", quizJSON},
		{"json fence", "```json\n" + quizJSON + "\n```"},
		{"bare fence", "```\n" + quizJSON + "\n```"},
		{"leading prose", "Here is your quiz:\n" + quizJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiz, err := ParseQuiz(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, "Cell Biology", quiz.Title)
			require.Len(t, quiz.Questions, 2)
			assert.Equal(t, 2, quiz.Questions[1].CorrectAnswer)
		})
	}

	_, err := ParseQuiz("I cannot do that")
	assert.Error(t, err)

	_, err = ParseQuiz(`{"title":"bad","questions":[{"question":"q","options":["a","b"],"correct_answer":0}]}`)
	assert.ErrorIs(t, err, interrors.ErrValidation)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		response string
		max      int
		want     []string
	}{
		{"comma list", "biology, Cell Division, mitosis", 5, []string{"biology", "cell-division", "mitosis"}},
		{"prefixed", "Tags: physics; kinematics", 5, []string{"physics", "kinematics"}},
		{"json", `Sure! {"tags": ["Chemistry", "bonds", "chemistry"]}`, 5, []string{"chemistry", "bonds"}},
		{"numbered and stop words", "1. notes, 2. algebra, the", 5, []string{"algebra"}},
		{"limited", "alpha, beta, gamma, python3", 2, []string{"alpha", "beta"}},
		{"digits kept at end", "python3, web2", 5, []string{"python3", "web2"}},
		{"only first line", "history, rome\nThese tags capture the topic.", 5, []string{"history", "rome"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.response, tt.max))
		})
	}
}

func TestNewRequiresKeyForOpenAI(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: config.ProviderOpenAI})
	assert.ErrorIs(t, err, interrors.ErrMissingAPIKey)

	_, err = New(config.LLMConfig{Provider: "mystery", OpenAIAPIKey: "k"})
	assert.ErrorIs(t, err, interrors.ErrUnknownProvider)
}

func TestNewOllamaWithoutKey(t *testing.T) {
	clients, err := New(config.LLMConfig{Provider: config.ProviderOllama, AutoTag: true})
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, clients.Formatter)
	assert.NotNil(t, clients.Tagger)

	_, err = clients.Transcriber.Transcribe(context.Background(), []byte("x"), "a.mp3", "en")
	assert.ErrorIs(t, err, interrors.ErrUpstream)
	assert.ErrorIs(t, err, interrors.ErrMissingAPIKey)
}

func TestNewOpenAIWithoutAutoTag(t *testing.T) {
	clients, err := New(config.LLMConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, clients.Transcriber)
	assert.Nil(t, clients.Tagger)
}

func chatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func newOpenAITestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(config.LLMConfig{
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: server.URL + "/v1",
	})
	require.NoError(t, err)
	return client
}

func TestOpenAIFormatAndQuiz(t *testing.T) {
	var lastRequest map[string]interface{}
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		lastRequest = nil
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastRequest))

		w.Header().Set("Content-Type", "application/json")
		if _, ok := lastRequest["response_format"]; ok {
			_ = json.NewEncoder(w).Encode(chatResponse(quizJSON))
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse("# Mitosis\n- prophase"))
	})
	ctx := context.Background()

	formatted, err := client.Format(ctx, FormatRequest{Transcript: "mitosis", Style: "detailed"})
	require.NoError(t, err)
	assert.Equal(t, "# Mitosis\n- prophase", formatted)
	assert.Equal(t, "gpt-4o-mini", lastRequest["model"])

	quiz, err := client.GenerateQuiz(ctx, formatted, 2)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, lastRequest["response_format"])
}

func TestOpenAIErrorsAreUpstream(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	_, err := client.Format(context.Background(), FormatRequest{Transcript: "x"})
	assert.ErrorIs(t, err, interrors.ErrUpstream)

	_, err = client.GenerateQuiz(context.Background(), "x", 1)
	assert.ErrorIs(t, err, interrors.ErrUpstream)
}

func TestOpenAIQuizWithMalformedOutput(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"title":"no questions","questions":[]}`))
	})

	_, err := client.GenerateQuiz(context.Background(), "x", 1)
	assert.ErrorIs(t, err, interrors.ErrUpstream)
}

func TestOpenAITranscribe(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "lecture.mp3", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "ID3fake", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  Today we discuss cells.  "}`)
	})

	text, err := client.Transcribe(context.Background(), []byte("ID3fake"), "lecture.mp3", "en")
	require.NoError(t, err)
	assert.Equal(t, "Today we discuss cells.", text)

	_, err = client.Transcribe(context.Background(), nil, "lecture.mp3", "en")
	assert.ErrorIs(t, err, interrors.ErrValidation)
}

func newOllamaTestClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOllamaClient(config.LLMConfig{OllamaEndpoint: server.URL, OllamaModel: "llama3.2:latest"})
	require.NoError(t, err)
	return client
}

func ollamaReply(w http.ResponseWriter, response string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"model":      "llama3.2:latest",
		"created_at": "2024-01-01T00:00:00Z",
		"response":   response,
		"done":       true,
	})
}

func TestOllamaQuizAndTags(t *testing.T) {
	var formats []interface{}
	client := newOllamaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2:latest", req["model"])
		assert.Equal(t, false, req["stream"])
		formats = append(formats, req["format"])

		if req["format"] == "json" {
			ollamaReply(w, "```json\n"+quizJSON+"\n```")
			return
		}
		ollamaReply(w, "biology, cells")
	})
	ctx := context.Background()

	quiz, err := client.GenerateQuiz(ctx, "notes", 2)
	require.NoError(t, err)
	assert.Equal(t, "Cell Biology", quiz.Title)

	tags, err := client.SuggestTags(ctx, "Lecture", "cells", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"biology", "cells"}, tags)

	assert.Equal(t, []interface{}{"json", nil}, formats)
}

func TestOllamaErrorsAreUpstream(t *testing.T) {
	client := newOllamaTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model not found"}`)
	})

	_, err := client.Format(context.Background(), FormatRequest{Transcript: "x"})
	assert.ErrorIs(t, err, interrors.ErrUpstream)
}
