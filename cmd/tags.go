package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage note tags",
	Long:  `Tags organize notes and narrow searches. Use 'search --tags' to filter by them.`,
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	Long:  `List every distinct tag in use, sorted.`,
	RunE:  runTagsList,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.AddCommand(tagsListCmd)
}

func runTagsList(cmd *cobra.Command, args []string) error {
	tags, err := newAPIClient().ListTags(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(tags) == 0 {
		fmt.Fprintln(out, "No tags found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d tags:\n", len(tags))
	for _, tag := range tags {
		fmt.Fprintf(out, "  %s\n", tag)
	}
	return nil
}
