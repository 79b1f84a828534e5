package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/study-notes/internal/api"
	"github.com/streed/study-notes/internal/config"
	"github.com/streed/study-notes/internal/database"
	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/llm"
	"github.com/streed/study-notes/internal/models"
	"github.com/streed/study-notes/internal/services"
)

type fakeLLM struct{}

func (fakeLLM) Transcribe(ctx context.Context, data []byte, filename, language string) (string, error) {
	return "the lecture covered mitosis", nil
}

func (fakeLLM) Format(ctx context.Context, req llm.FormatRequest) (string, error) {
	return "## Notes (" + req.Style + ")\n" + req.Transcript, nil
}

func (fakeLLM) GenerateQuiz(ctx context.Context, text string, count int) (*models.Quiz, error) {
	return &models.Quiz{
		Title: "Check yourself",
		Questions: []models.Question{
			{Question: "What divides?", Options: []string{"cells", "atoms", "rocks", "stars"}, CorrectAnswer: 0, Explanation: "Cells divide by mitosis."},
			{Question: "Which process?", Options: []string{"meiosis", "mitosis", "osmosis", "fusion"}, CorrectAnswer: 1},
		},
	}, nil
}

// testEnv runs commands against an in-process server with a private config file.
type testEnv struct {
	t          *testing.T
	configPath string
	apiURL     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(dir, "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := services.NewNoteService(services.Deps{
		Notes:         models.NewNoteRepository(db.Conn()),
		Templates:     models.NewTemplateRepository(db.Conn()),
		Transcriber:   fakeLLM{},
		Formatter:     fakeLLM{},
		QuizGenerator: fakeLLM{},
	}, services.Options{QuizQuestions: 2})

	srv := httptest.NewServer(api.NewAPIServer(config.Default(), db.Conn(), svc, "test").Handler())
	t.Cleanup(srv.Close)

	return &testEnv{t: t, configPath: filepath.Join(dir, "config.yaml"), apiURL: srv.URL}
}

func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", e.configPath, "--api-url", e.apiURL}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, "study-notes %s", strings.Join(args, " "))
	return out
}

// resetFlags restores defaults so flag values do not leak between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestNoteCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("add", "-t", "Cell Biology", "-c", "cells divide by mitosis", "-T", "bio,lecture")
	assert.Contains(t, out, "Note created successfully!")
	assert.Contains(t, out, "ID: 1")
	assert.Contains(t, out, "Tags: bio, lecture")

	out, err := env.run("photosynthesis in\nchloroplasts", "add", "-t", "Plants")
	require.NoError(t, err)
	assert.Contains(t, out, "ID: 2")

	out = env.mustRun("get", "1")
	assert.Contains(t, out, "Title: Cell Biology")
	assert.Contains(t, out, "Quiz: available (study-notes quiz show 1)")
	assert.Contains(t, out, "cells divide by mitosis")

	out = env.mustRun("list", "--short")
	assert.Equal(t, "Found 2 notes:\n\n[2] Plants\n[1] Cell Biology\n", out)

	out = env.mustRun("list", "--limit", "1")
	assert.Contains(t, out, "Found 1 notes")
	assert.Contains(t, out, "Preview: photosynthesis in chloroplasts")

	out = env.mustRun("search", "mitosis")
	assert.Contains(t, out, "ID: 1")
	assert.NotContains(t, out, "Plants")

	out = env.mustRun("search", "MITOSIS")
	assert.Equal(t, "No notes found matching your query.\n", out)

	out = env.mustRun("search", "--tags", "lect", "--short")
	assert.Equal(t, "Found 1 notes:\n\n[1] Cell Biology\n", out)

	out = env.mustRun("search", "nothing-matches")
	assert.Equal(t, "No notes found matching your query.\n", out)

	out = env.mustRun("tags", "list")
	assert.Equal(t, "Found 2 tags:\n  bio\n  lecture\n", out)
}

func TestNoteCommandErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "get", "abc")
	assert.ErrorIs(t, err, interrors.ErrInvalidNoteID)

	_, err = env.run("", "get", "99")
	assert.ErrorIs(t, err, interrors.ErrNotFound)

	_, err = env.run("  \n", "add", "-t", "Empty")
	assert.ErrorIs(t, err, interrors.ErrEmptyContent)

	_, err = env.run("", "add", "-c", "no title")
	assert.Error(t, err)
}

func TestQuizCommands(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "-t", "Cells", "-c", "mitosis")

	out := env.mustRun("quiz", "show", "1")
	assert.Contains(t, out, "Check yourself")
	assert.Contains(t, out, "1. What divides?")
	assert.Contains(t, out, "   1) mitosis")

	out = env.mustRun("quiz", "grade", "1", "--answers", "0,-1")
	assert.Contains(t, out, "Score: 1/2 (50.0%)")
	assert.Contains(t, out, "1. [correct] What divides?")
	assert.Contains(t, out, "2. [skipped] Which process?")
	assert.Contains(t, out, "Answer: 1) mitosis")

	_, err := env.run("", "quiz", "grade", "1", "--answers", "0")
	assert.ErrorIs(t, err, interrors.ErrValidation)

	_, err = env.run("", "quiz", "grade", "1", "--answers", "zero,one")
	assert.ErrorIs(t, err, interrors.ErrValidation)
}

func TestTemplateCommands(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, "No templates found.\n", env.mustRun("templates", "list"))

	out := env.mustRun("templates", "add", "Cornell", "cue column | notes column")
	assert.Equal(t, "Template \"Cornell\" saved.\n", out)

	file := filepath.Join(t.TempDir(), "outline.md")
	require.NoError(t, os.WriteFile(file, []byte("I. Topic\n  A. Detail"), 0644))
	env.mustRun("templates", "add", "Outline", "--file", file)

	out = env.mustRun("templates", "list")
	assert.Contains(t, out, "Cornell\n  cue column | notes column\n")
	assert.Contains(t, out, "Outline\n  I. Topic   A. Detail\n")

	_, err := env.run("", "templates", "add", "Cornell", "again")
	assert.ErrorIs(t, err, interrors.ErrConflict)

	_, err = env.run("", "templates", "add", "Blank")
	assert.Error(t, err)
}

func TestTranscribeCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("templates", "add", "Cornell", "cues | notes")

	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00"), make([]byte, 64)...)
	file := filepath.Join(t.TempDir(), "week1.wav")
	require.NoError(t, os.WriteFile(file, wav, 0644))

	out := env.mustRun("transcribe", file, "--title", "Week 1", "--style", "summary", "--tags", "bio")
	assert.Contains(t, out, "Title: Week 1")
	assert.Contains(t, out, "Tags: bio")
	assert.Contains(t, out, "## Notes (summary)\nthe lecture covered mitosis")

	out = env.mustRun("transcribe", file, "--template", "Cornell")
	assert.Contains(t, out, "ID: 2")
	assert.Contains(t, out, "Title: week1")
	assert.Contains(t, out, "## Notes (detailed)")

	notAudio := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notAudio, []byte("plain text"), 0644))
	_, err := env.run("", "transcribe", notAudio)
	assert.ErrorIs(t, err, interrors.ErrValidation)

	_, err = env.run("", "transcribe", filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestImportFileCommand(t *testing.T) {
	env := newTestEnv(t)

	file := filepath.Join(t.TempDir(), "reading.md")
	require.NoError(t, os.WriteFile(file, []byte("# Ribosomes\n\nProteins are made here."), 0644))

	out := env.mustRun("import", file, "--tags", "reading")
	assert.Contains(t, out, "Title: Ribosomes")
	assert.Contains(t, out, "Note created successfully!")

	out = env.mustRun("get", "1")
	assert.Contains(t, out, "Proteins are made here.")
	assert.Contains(t, out, "Tags: reading")

	out = env.mustRun("import", file, "--title", "Chapter 4")
	assert.Contains(t, out, "Title: Chapter 4")
}

func TestStatusCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "-t", "One", "-c", "body", "-T", "x")

	out := env.mustRun("status")
	assert.Contains(t, out, "(ok)")
	assert.Contains(t, out, "Version:   test")
	assert.Contains(t, out, "Notes:     1")
	assert.Contains(t, out, "Tags:      1")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("STUDY_NOTES_PORT", "")
	t.Setenv("PORT", "")

	assert.Equal(t, env.configPath+"\n", env.mustRun("config", "path"))

	out := env.mustRun("config", "set", "port", "9001")
	assert.Equal(t, "Configuration updated: port = 9001\n", out)

	out = env.mustRun("config", "set", "openai-api-key", "sk-secret-value-1234")
	assert.Equal(t, "Configuration updated: openai-api-key = ****\n", out)

	out = env.mustRun("config", "show")
	assert.Contains(t, out, "port: 9001")
	assert.Contains(t, out, "sk-****1234")
	assert.NotContains(t, out, "sk-secret-value-1234")

	_, err := env.run("", "config", "set", "no-such-key", "1")
	assert.ErrorIs(t, err, interrors.ErrUnknownConfigKey)

	_, err = env.run("", "config", "set", "port", "eighty")
	assert.Error(t, err)
}

func TestInitCommand(t *testing.T) {
	env := newTestEnv(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	out := env.mustRun("init", "--data-dir", dataDir, "--provider", "ollama")
	assert.Contains(t, out, "Configuration saved to: "+env.configPath)
	assert.Contains(t, out, "LLM provider: ollama")
	assert.DirExists(t, dataDir)

	cfg, err := config.LoadFile(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "notes.db"), cfg.Storage.DatabasePath)

	out, err = env.run("n\n", "init", "--provider", "openai")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialization cancelled.")

	cfg, err = config.LoadFile(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOllama, cfg.LLM.Provider)

	_, err = env.run("", "init", "--provider", "claude", "--force")
	assert.ErrorIs(t, err, interrors.ErrUnknownProvider)
}

func TestMigrateCommands(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("STUDY_NOTES_DB", "")
	env.mustRun("config", "set", "database-path", filepath.Join(t.TempDir(), "migrate.db"))

	out := env.mustRun("migrate", "status")
	assert.Contains(t, out, "001_create_notes")
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "2 migrations, 2 pending")

	assert.Equal(t, "Applied 2 migrations.\n", env.mustRun("migrate", "run"))
	assert.Equal(t, "Database is up to date.\n", env.mustRun("migrate", "run"))

	out = env.mustRun("migrate", "status")
	assert.Contains(t, out, "2 migrations, 0 pending")

	assert.Equal(t, "Rolled back 002_create_templates.\n", env.mustRun("migrate", "rollback", "002_create_templates"))
	assert.Contains(t, env.mustRun("migrate", "status"), "2 migrations, 1 pending")

	_, err := env.run("", "migrate", "rollback", "999_missing")
	assert.Error(t, err)
}
