// strategist serves the marketing strategy generator over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/marketforge/strategist/internal/config"
	"github.com/marketforge/strategist/internal/server"
	"github.com/marketforge/strategist/pkg/chat"
	"github.com/marketforge/strategist/pkg/engine"
	"github.com/marketforge/strategist/pkg/models"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "strategist",
		Short: "Marketing strategy generator service",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional; real deployments set the environment directly.
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := newLogger(cfg.Log)

			provider, err := models.NewProvider(cmd.Context(), cfg.Provider.Name, cfg.Provider.Model, log)
			if err != nil {
				return fmt.Errorf("init provider: %w", err)
			}
			log.Info().Str("provider", cfg.Provider.Name).Str("model", cfg.Provider.Model).Msg("provider ready")

			eng := engine.New(provider, log)
			chats := chat.NewManager(provider, log)
			srv := server.New(cfg, eng, chats, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	}
	return logger.Level(level).With().Timestamp().Logger()
}
