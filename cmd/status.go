package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and note statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := newAPIClient()
	out := cmd.OutOrStdout()

	health, err := c.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("server at %s is not reachable: %w", c.BaseURL(), err)
	}
	stats, err := c.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Fprintf(out, "Server:    %s (%v)\n", c.BaseURL(), health["status"])
	fmt.Fprintf(out, "Version:   %v\n", health["version"])
	fmt.Fprintf(out, "Notes:     %v\n", stats["total_notes"])
	fmt.Fprintf(out, "Tags:      %v\n", stats["total_tags"])
	fmt.Fprintf(out, "Templates: %v\n", stats["total_templates"])
	return nil
}
