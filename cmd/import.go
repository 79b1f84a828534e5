package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file-or-url>",
	Short: "Import a document or web page as a new note",
	Long: `Import a markdown, text or HTML file, or a web page, as a new note. The
server generates a quiz for it like any other note.

Web pages are loaded in a headless browser so scripted content is captured,
then converted to markdown.

Examples:
  study-notes import lecture-notes.md --tags bio
  study-notes import https://example.com/article --title "Reading 3"`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importTitle   string
	importTags    []string
	importTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importTitle, "title", "t", "", "Title for the note (defaults to the document title)")
	importCmd.Flags().StringSliceVarP(&importTags, "tags", "T", []string{}, "Tags for the imported note (comma-separated)")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 30*time.Second, "Timeout for page loading")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func runImport(cmd *cobra.Command, args []string) error {
	source := args[0]
	out := cmd.OutOrStdout()

	var doc *importer.Document
	var err error
	if isURL(source) {
		fmt.Fprintf(out, "Importing from: %s\n", source)
		doc, err = importer.FromURL(cmd.Context(), source, importTimeout)
	} else {
		doc, err = importer.FromFile(source)
	}
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", source, err)
	}

	if importTitle != "" {
		doc.Title = importTitle
	}
	fmt.Fprintf(out, "Title: %s\n", doc.Title)
	fmt.Fprintf(out, "Content extracted (%d characters)\n", len(doc.Content))

	note, err := newAPIClient().CreateNote(cmd.Context(), doc.Title, doc.Content, importTags)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	printCreated(out, note)
	return nil
}
