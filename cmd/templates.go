package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/constants"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage note templates",
	Long: `Templates are named formatting instructions. Pass a template name to
'transcribe --template' to format a lecture with it.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE:  runTemplatesList,
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <name> [content]",
	Short: "Add a template",
	Long: `Add a template from an argument or a file. Names are unique.

Examples:
  study-notes templates add Cornell "Cue column, notes column, summary at the bottom"
  study-notes templates add Outline --file outline.md`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTemplatesAdd,
}

var templateFile string

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesAddCmd)
	templatesAddCmd.Flags().StringVarP(&templateFile, "file", "f", "", "Read the template content from a file")
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	templates, err := newAPIClient().ListTemplates(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(templates) == 0 {
		fmt.Fprintln(out, "No templates found.")
		return nil
	}

	for _, t := range templates {
		fmt.Fprintf(out, "%s\n", t.Name)
		fmt.Fprintf(out, "  %s\n", preview(t.Content, constants.ShortPreviewLength))
	}
	return nil
}

func runTemplatesAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	var content string
	switch {
	case templateFile != "" && len(args) == 2:
		return fmt.Errorf("give the template content as an argument or --file, not both")
	case templateFile != "":
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		content = string(data)
	case len(args) == 2:
		content = args[1]
	}

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("template content cannot be empty")
	}

	tmpl, err := newAPIClient().SaveTemplate(cmd.Context(), name, content)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Template %q saved.\n", tmpl.Name)
	return nil
}
