package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/client"
	"github.com/streed/study-notes/internal/config"
	"github.com/streed/study-notes/internal/database"
	"github.com/streed/study-notes/internal/logger"
)

var (
	appConfig  *config.Config
	configPath string
	debugFlag  bool
	apiURLFlag string
	Version    = "dev" // Version is set from main.go
)

var rootCmd = &cobra.Command{
	Use:     "study-notes",
	Short:   "Turn lectures into study notes and quizzes",
	Version: Version,
	Long: `study-notes transcribes lecture recordings, formats them into study notes,
generates a multiple-choice quiz for every note and stores everything in a local
database searchable by text and tags.

Start the API with 'study-notes serve'. The other commands talk to a running
server at the configured client.base_url (override with --api-url).

First time users should run 'study-notes config init'.`,
	SilenceUsage:      true,
	PersistentPreRunE: initAppConfig,
}

func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $XDG_CONFIG_HOME/study-notes/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Base URL of the study-notes server")
}

func initAppConfig(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	appConfig, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("error loading configuration from %s: %w", path, err)
	}

	logger.SetFormat(appConfig.Log.Format)
	if debugFlag || appConfig.Debug {
		logger.SetDebugMode(true)
		logger.Debug("Configuration loaded from: %s", path)
		logger.Debug("Database: %s", appConfig.Storage.DatabasePath)
		logger.Debug("LLM provider: %s", appConfig.LLM.Provider)
		logger.Debug("API URL: %s", apiURL())
	}
	return nil
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func apiURL() string {
	if apiURLFlag != "" {
		return apiURLFlag
	}
	return appConfig.Client.BaseURL
}

// newAPIClient allows for a full transcribe, format and quiz round trip.
func newAPIClient() *client.Client {
	timeout := 3*appConfig.LLM.Timeout + 30*time.Second
	return client.New(apiURL(), timeout)
}

func openDatabase(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, appConfig.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	return db, nil
}
