package cmd

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/mcp"
	"github.com/streed/study-notes/internal/services"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for LLM integration",
	Long: `Start a Model Context Protocol (MCP) server on stdio so assistants can read
and write study notes.

Tools:
- add_note, get_note, list_notes, search_notes, list_tags
- list_templates, add_template
- get_quiz, grade_quiz

Resources:
- notes://recent, notes://stats, notes://config

Prompts:
- study_note: quiz yourself on a stored note

To use with Claude Desktop, add this to your claude_desktop_config.json:
{
  "mcpServers": {
    "study-notes": {
      "command": "study-notes",
      "args": ["mcp"]
    }
  }
}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	logger.SetOutput(os.Stderr)
	logger.Info("Starting MCP server...")

	ctx := cmd.Context()
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, cleanup, err := services.NewFromConfig(ctx, appConfig, db.Conn())
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer cleanup()

	notesServer := mcp.NewNotesServer(appConfig, svc, Version)

	logger.Info("MCP server ready. Listening on stdio...")
	if err := server.ServeStdio(notesServer.GetMCPServer()); err != nil {
		if err.Error() != "EOF" {
			logger.Error("MCP server error: %v", err)
			return err
		}
	}

	logger.Info("MCP server shutting down")
	return nil
}
