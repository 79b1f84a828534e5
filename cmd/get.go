package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	interrors "github.com/streed/study-notes/internal/errors"
)

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a note by ID",
	Long:  `Display the full content of a note by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func parseNoteID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s", interrors.ErrInvalidNoteID, arg)
	}
	return id, nil
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	note, err := newAPIClient().GetNote(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "ID: %d\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
	}
	fmt.Fprintf(out, "Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if note.HasQuiz() {
		fmt.Fprintf(out, "Quiz: available (study-notes quiz show %d)\n", note.ID)
	} else {
		fmt.Fprintln(out, "Quiz: none")
	}
	fmt.Fprintf(out, "%s\n\n", rule)

	fmt.Fprintln(out, note.Note)
	fmt.Fprintln(out)
	return nil
}
