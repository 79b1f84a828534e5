package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/constants"
	"github.com/streed/study-notes/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	Long:  `List notes newest first with their ID, title, tags and creation date.`,
	RunE:  runList,
}

var (
	listLimit  int
	listOffset int
	listShort  bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "Maximum number of notes to display")
	listCmd.Flags().IntVarP(&listOffset, "offset", "o", 0, "Number of notes to skip")
	listCmd.Flags().BoolVarP(&listShort, "short", "s", false, "Show only ID and title")
}

func runList(cmd *cobra.Command, args []string) error {
	notes, err := newAPIClient().ListNotes(cmd.Context(), listLimit, listOffset)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d notes:\n\n", len(notes))
	printNotes(out, notes, listShort)
	return nil
}

func printNotes(out io.Writer, notes []*models.Note, short bool) {
	for _, note := range notes {
		if short {
			fmt.Fprintf(out, "[%d] %s\n", note.ID, note.Title)
			continue
		}

		fmt.Fprintf(out, "ID: %d\n", note.ID)
		fmt.Fprintf(out, "Title: %s\n", note.Title)
		if len(note.Tags) > 0 {
			fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
		}
		fmt.Fprintf(out, "Created: %s\n", formatTime(note.CreatedAt))
		fmt.Fprintf(out, "Preview: %s\n", preview(note.Note, constants.PreviewLength))
		fmt.Fprintln(out, strings.Repeat("-", 60))
	}
}

func preview(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxLen {
		s = s[:maxLen-3] + "..."
	}
	return s
}

func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
