package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search notes",
	Long: `Search notes by text and tags.

The query must appear in the note text; matching is case-sensitive. With
--tags, a note matches when its tags contain any of the given values. Either
the query or --tags may be omitted.

Examples:
  study-notes search mitosis
  study-notes search --tags bio,lecture
  study-notes search derivative --tags math`,
	RunE: runSearch,
}

var (
	searchTags  []string
	searchShort bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringSliceVarP(&searchTags, "tags", "T", []string{}, "Tags to filter by (comma-separated)")
	searchCmd.Flags().BoolVarP(&searchShort, "short", "s", false, "Show only ID and title")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	notes, err := newAPIClient().SearchNotes(cmd.Context(), query, searchTags)
	if err != nil {
		return fmt.Errorf("failed to search notes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes found matching your query.")
		return nil
	}

	fmt.Fprintf(out, "Found %d notes:\n\n", len(notes))
	printNotes(out, notes, searchShort)
	return nil
}
