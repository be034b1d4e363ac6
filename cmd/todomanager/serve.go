package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todomanager/config"
	"todomanager/internal/app"
	"todomanager/internal/logging"
	"todomanager/internal/version"
)

const shutdownTimeout = 30 * time.Second

var (
	configPath string
	port       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server until SIGINT or SIGTERM.

Configuration is read from --config, then $TODOMANAGER_CONFIG, then
config.yaml in the working directory. Environment variables and a .env
file override values from the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML or TOML config file")
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides configuration")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	var (
		result *config.LoadResult
		err    error
	)
	if configPath != "" {
		result, err = config.LoadFile(configPath)
	} else {
		result, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := result.Config
	if port != "" {
		cfg.Server.Port = port
	}

	if err := logging.Setup(os.Stdout, cfg.Log.Format, cfg.Log.Level); err != nil {
		return err
	}

	slog.Info("starting todomanager",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	application, err := app.New(ctx, app.Config{AppConfig: result})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("application shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		_ = application.Shutdown(context.Background())
		return err
	}
	return nil
}
