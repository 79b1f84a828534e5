package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/api"
	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/services"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the HTTP API server that transcribes uploads, stores notes and
serves quizzes.

Routes are available at the root and under /api/v1. A plain-text route
listing is served at /docs.

Examples:
  study-notes serve                           # Start on the configured address
  study-notes serve --host 0.0.0.0 --port 3000  # Listen on all interfaces, port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the server to (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to bind the server to (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveHost != "" {
		appConfig.Server.Host = serveHost
	}
	if servePort != 0 {
		appConfig.Server.Port = servePort
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	logger.Info("Initializing HTTP API server...")
	ctx := cmd.Context()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, cleanup, err := services.NewFromConfig(ctx, appConfig, db.Conn())
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer cleanup()

	apiServer := api.NewAPIServer(appConfig, db.Conn(), svc, Version)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start()
	}()

	addr := appConfig.ListenAddr()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nStudy Notes API Server\n")
	fmt.Fprintf(out, "Server URL: http://%s\n", addr)
	fmt.Fprintf(out, "Routes:     http://%s/docs\n", addr)
	fmt.Fprintf(out, "Health:     http://%s/health\n", addr)
	fmt.Fprintf(out, "Database:   %s\n", db.Path())
	fmt.Fprintf(out, "\nPress Ctrl+C to stop the server\n\n")

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, shutting down gracefully...", sig)
		if err := apiServer.Stop(); err != nil {
			logger.Error("Error during server shutdown: %v", err)
			return err
		}
		logger.Info("Server stopped successfully")
		return nil
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error: %v", err)
			return err
		}
		return nil
	}
}
