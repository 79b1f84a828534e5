package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize study-notes configuration",
	Long: `Write a configuration file with defaults and the given flags, and create
the data directory.`,
	RunE: runInit,
}

var (
	initDataDir   string
	initProvider  string
	initAPIKey    string
	initOllamaURL string
	initForce     bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Data directory for the notes database")
	initCmd.Flags().StringVar(&initProvider, "provider", "", "LLM provider for formatting and quizzes (openai or ollama)")
	initCmd.Flags().StringVar(&initAPIKey, "openai-api-key", "", "OpenAI API key (transcription always uses OpenAI)")
	initCmd.Flags().StringVar(&initOllamaURL, "ollama-endpoint", "", "Ollama API endpoint (e.g., http://localhost:11434)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
		fmt.Fprint(out, "Do you want to overwrite it? (y/N): ")

		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	cfg := config.Default()
	settings := []struct{ key, value string }{
		{"data-dir", initDataDir},
		{"provider", initProvider},
		{"openai-api-key", initAPIKey},
		{"ollama-endpoint", initOllamaURL},
	}
	for _, s := range settings {
		if s.value == "" {
			continue
		}
		if err := cfg.Set(s.key, s.value); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(cfg.Storage.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "Configuration saved to: %s\n", path)
	fmt.Fprintf(out, "Database:     %s\n", cfg.Storage.DatabasePath)
	fmt.Fprintf(out, "LLM provider: %s\n", cfg.LLM.Provider)
	if cfg.LLM.OpenAIAPIKey == "" {
		fmt.Fprintln(out, "\nNo OpenAI API key set. Set OPENAI_API_KEY or run 'study-notes config set openai-api-key <key>' before transcribing.")
	}
	fmt.Fprintln(out, "\nStart the server with 'study-notes serve'.")
	return nil
}
