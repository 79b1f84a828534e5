package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	interrors "github.com/streed/study-notes/internal/errors"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/models"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new note",
	Long: `Add a note from text. The server generates and stores a quiz for it.

Content can be provided in several ways:
1. Via --content flag: study-notes add -t "Title" -c "Content"
2. Via stdin: cat lecture.md | study-notes add -t "Title"
3. Via editor: study-notes add -t "Title" -e`,
	RunE: runAdd,
}

var (
	addTitle      string
	addContent    string
	addTags       []string
	addUseEditor  bool
	addEditorName string
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Note title (required)")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Note content")
	addCmd.Flags().StringSliceVarP(&addTags, "tags", "T", []string{}, "Tags for the note (comma-separated)")
	addCmd.Flags().BoolVarP(&addUseEditor, "editor", "e", false, "Use editor for content input")
	addCmd.Flags().StringVar(&addEditorName, "editor-cmd", "", "Specify editor to use (overrides $EDITOR)")
	_ = addCmd.MarkFlagRequired("title")
}

func runAdd(cmd *cobra.Command, args []string) error {
	content := addContent
	if content == "" {
		var err error
		if addUseEditor {
			content, err = getContentFromEditor(addTitle)
			if err != nil {
				return fmt.Errorf("failed to get content from editor: %w", err)
			}
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			content = string(data)
		}
	}

	if strings.TrimSpace(content) == "" {
		return interrors.ErrEmptyContent
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Generating quiz...")
	note, err := newAPIClient().CreateNote(cmd.Context(), addTitle, content, addTags)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	printCreated(cmd.OutOrStdout(), note)
	return nil
}

func printCreated(out io.Writer, note *models.Note) {
	fmt.Fprintf(out, "Note created successfully!\n")
	fmt.Fprintf(out, "ID: %d\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
	}
	fmt.Fprintf(out, "Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))
}

// getContentFromEditor opens an editor on a scratch file and returns what
// the user wrote.
func getContentFromEditor(noteTitle string) (string, error) {
	tempFile, err := os.CreateTemp("", "study-notes-new-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	const placeholder = "[Write your note content here]"
	template := fmt.Sprintf("# %s\n\n%s\n", noteTitle, placeholder)
	if _, err := tempFile.WriteString(template); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tempFile.Close()

	if err := openEditor(tempFile.Name()); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited file: %w", err)
	}
	if strings.Contains(string(edited), placeholder) {
		return "", fmt.Errorf("no content provided (template unchanged)")
	}

	var lines []string
	for _, line := range strings.Split(string(edited), "\n") {
		if strings.TrimSpace(line) == "# "+noteTitle {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func openEditor(filename string) error {
	editorCmd := addEditorName
	if editorCmd == "" {
		editorCmd = os.Getenv("EDITOR")
	}
	if editorCmd == "" {
		editorCmd = os.Getenv("VISUAL")
	}
	if editorCmd == "" {
		for _, e := range []string{"vim", "vi", "nano", "emacs"} {
			if _, err := exec.LookPath(e); err == nil {
				editorCmd = e
				break
			}
		}
	}
	if editorCmd == "" {
		return fmt.Errorf("no editor found. Set $EDITOR or use --editor-cmd")
	}

	logger.Debug("Opening file in editor: %s %s", editorCmd, filename)

	// Editors may carry arguments, e.g. "code --wait"
	parts := strings.Fields(editorCmd)
	cmd := exec.Command(parts[0], append(parts[1:], filename)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editorCmd, err)
	}
	return nil
}
