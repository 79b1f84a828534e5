package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/streed/study-notes/internal/config"
	"github.com/streed/study-notes/internal/constants"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/models"
	"github.com/streed/study-notes/internal/services"
)

type NotesServer struct {
	cfg       *config.Config
	svc       *services.NoteService
	mcpServer *server.MCPServer
}

func NewNotesServer(cfg *config.Config, svc *services.NoteService, version string) *NotesServer {
	ns := &NotesServer{
		cfg: cfg,
		svc: svc,
	}

	// Create MCP server
	ns.mcpServer = server.NewMCPServer(
		"study-notes",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	ns.registerTools()
	ns.registerResources()
	ns.registerPrompts()

	return ns
}

func (s *NotesServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *NotesServer) registerTools() {
	addNoteTool := mcp.NewTool("add_note",
		mcp.WithDescription("Add a study note and generate a multiple-choice quiz for it"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title of the note"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The note body, usually markdown"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags for the note (optional)"),
		),
	)
	s.mcpServer.AddTool(addNoteTool, s.handleAddNote)

	searchTool := mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes by a case-sensitive substring of the body and/or by tags. Tags match as substrings, so 'math' matches 'mathematics'."),
		mcp.WithString("query",
			mcp.Description("Text the note body must contain (optional)"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags, any of which may match (optional)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchNotes)

	getNoteTool := mcp.NewTool("get_note",
		mcp.WithDescription("Get a specific note by ID"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note to retrieve"),
		),
	)
	s.mcpServer.AddTool(getNoteTool, s.handleGetNote)

	listNotesTool := mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of notes to return"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of notes to skip"),
		),
	)
	s.mcpServer.AddTool(listNotesTool, s.handleListNotes)

	listTagsTool := mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags in use"),
	)
	s.mcpServer.AddTool(listTagsTool, s.handleListTags)

	listTemplatesTool := mcp.NewTool("list_templates",
		mcp.WithDescription("List the formatting templates available for transcriptions"),
	)
	s.mcpServer.AddTool(listTemplatesTool, s.handleListTemplates)

	addTemplateTool := mcp.NewTool("add_template",
		mcp.WithDescription("Save a formatting template. Names are unique."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Template name"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Template text the formatter should follow"),
		),
	)
	s.mcpServer.AddTool(addTemplateTool, s.handleAddTemplate)

	getQuizTool := mcp.NewTool("get_quiz",
		mcp.WithDescription("Show the quiz questions of a note without the answers"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note"),
		),
	)
	s.mcpServer.AddTool(getQuizTool, s.handleGetQuiz)

	gradeQuizTool := mcp.NewTool("grade_quiz",
		mcp.WithDescription("Grade answers against the quiz of a note"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note"),
		),
		mcp.WithString("answers",
			mcp.Required(),
			mcp.Description("Comma-separated zero-based option indexes, one per question; -1 skips a question"),
		),
	)
	s.mcpServer.AddTool(gradeQuizTool, s.handleGradeQuiz)
}

func (s *NotesServer) registerResources() {
	recentResource := mcp.NewResource("notes://recent",
		"Recent Notes",
		mcp.WithResourceDescription("Get the most recently created notes"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(recentResource, s.handleRecentNotes)

	statsResource := mcp.NewResource("notes://stats",
		"Notes Statistics",
		mcp.WithResourceDescription("Get statistics about the notes database"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(statsResource, s.handleStats)

	configResource := mcp.NewResource("notes://config",
		"Configuration",
		mcp.WithResourceDescription("Get current study-notes configuration"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(configResource, s.handleConfig)
}

func (s *NotesServer) registerPrompts() {
	studyPrompt := mcp.NewPrompt("study_note",
		mcp.WithPromptDescription("Quiz me on a stored note, one question at a time"),
		mcp.WithArgument("id",
			mcp.ArgumentDescription("The ID of the note to study"),
			mcp.RequiredArgument(),
		),
	)
	s.mcpServer.AddPrompt(studyPrompt, s.handleStudyPrompt)
}

// Tool handlers
func (s *NotesServer) handleAddNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_note")

	title, err := request.RequireString("title")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'title': %w", err)
	}

	content, err := request.RequireString("content")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'content': %w", err)
	}

	tags := models.NormalizeTags([]string{request.GetString("tags", "")})

	note, err := s.svc.CreateFromText(ctx, title, content, tags)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	result := fmt.Sprintf("Note created successfully with ID: %d\nTitle: %s", note.ID, note.Title)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.Tags, ", "))
	}
	if quiz, err := s.svc.GetQuiz(ctx, note.ID); err == nil {
		result += fmt.Sprintf("\nQuiz: %d questions", len(quiz.Questions))
	}
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleSearchNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: search_notes")

	query := request.GetString("query", "")
	tags := models.NormalizeTags([]string{request.GetString("tags", "")})
	limit := request.GetInt("limit", 10)

	notes, err := s.svc.Search(ctx, query, tags)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}

	var result string
	if len(notes) == 0 {
		result = "No notes found matching your query."
	} else {
		result = fmt.Sprintf("Found %d notes:\n\n", len(notes))
		for i, note := range notes {
			result += fmt.Sprintf("%d. [ID: %d] %s%s\n   %s\n\n",
				i+1, note.ID, note.Title, tagsInfo(note),
				truncateString(note.Note, constants.PreviewLength))
		}
	}

	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleGetNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: get_note")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	note, err := s.svc.Get(ctx, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	result := fmt.Sprintf("Note ID: %d\nTitle: %s", note.ID, note.Title)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.Tags, ", "))
	}
	result += fmt.Sprintf("\nCreated: %s\nHas quiz: %v\n\nContent:\n%s",
		note.CreatedAt.Format("2006-01-02 15:04:05"),
		note.HasQuiz(),
		note.Note)

	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleListNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_notes")

	limit := request.GetInt("limit", constants.DefaultListLimit)
	offset := request.GetInt("offset", 0)

	notes, err := s.svc.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	var result string
	if len(notes) == 0 {
		result = "No notes found."
	} else {
		result = fmt.Sprintf("Listing %d notes (offset: %d):\n\n", len(notes), offset)
		for i, note := range notes {
			result += fmt.Sprintf("%d. [ID: %d] %s%s (Created: %s)\n   %s\n\n",
				i+1+offset, note.ID, note.Title, tagsInfo(note),
				note.CreatedAt.Format("2006-01-02"),
				truncateString(note.Note, constants.ShortPreviewLength))
		}
	}

	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_tags")

	tags, err := s.svc.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}

	if len(tags) == 0 {
		return mcp.NewToolResultText("No tags found."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d tags:\n%s", len(tags), strings.Join(tags, ", "))), nil
}

func (s *NotesServer) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_templates")

	templates, err := s.svc.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	if len(templates) == 0 {
		return mcp.NewToolResultText("No templates found."), nil
	}
	result := fmt.Sprintf("Found %d templates:\n\n", len(templates))
	for _, t := range templates {
		result += fmt.Sprintf("- %s\n  %s\n", t.Name, truncateString(t.Content, constants.ShortPreviewLength))
	}
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleAddTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_template")

	name, err := request.RequireString("name")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'name': %w", err)
	}
	content, err := request.RequireString("content")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'content': %w", err)
	}

	tmpl, err := s.svc.SaveTemplate(ctx, name, content)
	if err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Template %q saved with ID: %d", tmpl.Name, tmpl.ID)), nil
}

func (s *NotesServer) handleGetQuiz(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: get_quiz")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	quiz, err := s.svc.GetQuiz(ctx, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	return mcp.NewToolResultText(formatQuiz(quiz)), nil
}

func (s *NotesServer) handleGradeQuiz(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: grade_quiz")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}
	raw, err := request.RequireString("answers")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'answers': %w", err)
	}
	answers, err := services.ParseAnswers(raw)
	if err != nil {
		return nil, err
	}

	graded, err := s.svc.GradeQuiz(ctx, int64(id), answers)
	if err != nil {
		return nil, fmt.Errorf("failed to grade quiz: %w", err)
	}

	result := fmt.Sprintf("Score: %d/%d (%.1f%%)\n\n", graded.Correct, graded.Total, graded.Score)
	for i, r := range graded.Results {
		mark := "wrong"
		if r.Correct {
			mark = "correct"
		} else if r.Selected == constants.Unanswered {
			mark = "skipped"
		}
		result += fmt.Sprintf("%d. %s [%s]\n   Answer: %s\n", i+1, r.Question, mark, r.CorrectOption)
		if r.Explanation != "" {
			result += fmt.Sprintf("   %s\n", r.Explanation)
		}
	}
	return mcp.NewToolResultText(result), nil
}

// Resource handlers
func (s *NotesServer) handleRecentNotes(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://recent")

	notes, err := s.svc.List(ctx, constants.RecentNotesLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent notes: %w", err)
	}

	content := "Recent Notes:\n\n"
	for i, note := range notes {
		content += fmt.Sprintf("%d. [ID: %d] %s\n   Created: %s\n   %s\n\n",
			i+1, note.ID, note.Title,
			note.CreatedAt.Format("2006-01-02 15:04:05"),
			truncateString(note.Note, 150))
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      "notes://recent",
			MIMEType: "text/plain",
			Text:     content,
		},
	}, nil
}

func (s *NotesServer) handleStats(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://stats")

	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	content := fmt.Sprintf(`Notes Database Statistics:
- Total Notes: %d
- Total Tags: %d
- Templates: %d
- Database Path: %s`,
		stats.Notes,
		stats.Tags,
		stats.Templates,
		s.cfg.Storage.DatabasePath)

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      "notes://stats",
			MIMEType: "text/plain",
			Text:     content,
		},
	}, nil
}

func (s *NotesServer) handleConfig(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://config")

	content := fmt.Sprintf(`Study Notes Configuration:
- Debug Mode: %v
- Data Directory: %s
- Provider: %s
- Quiz Questions: %d
- Auto Tagging: %v`,
		s.cfg.Debug,
		s.cfg.Storage.DataDirectory,
		s.cfg.LLM.Provider,
		s.cfg.LLM.QuizQuestions,
		s.cfg.LLM.AutoTag)

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      "notes://config",
			MIMEType: "text/plain",
			Text:     content,
		},
	}, nil
}

// Prompt handlers
func (s *NotesServer) handleStudyPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id, err := strconv.ParseInt(request.Params.Arguments["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid note id %q", request.Params.Arguments["id"])
	}

	note, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	prompt := fmt.Sprintf("Here are my study notes titled %q:\n\n%s\n\n", note.Title, note.Note)
	if quiz, err := s.svc.GetQuiz(ctx, id); err == nil {
		prompt += "Quiz me using these questions, one at a time. Wait for my answer before revealing the correct one.\n\n" + formatQuiz(quiz)
	} else {
		prompt += "Quiz me on these notes with multiple-choice questions, one at a time. Wait for my answer before revealing the correct one."
	}

	return &mcp.GetPromptResult{
		Description: "Study session for note " + note.Title,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(prompt),
			},
		},
	}, nil
}

func formatQuiz(quiz *models.Quiz) string {
	var b strings.Builder
	if quiz.Title != "" {
		b.WriteString(quiz.Title + "\n\n")
	}
	for i, q := range quiz.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(&b, "   %d) %s\n", j, opt)
		}
	}
	return b.String()
}

func tagsInfo(note *models.Note) string {
	if len(note.Tags) == 0 {
		return ""
	}
	return fmt.Sprintf(" [Tags: %s]", strings.Join(note.Tags, ", "))
}

// truncateString cuts s to at most maxLen runes.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
