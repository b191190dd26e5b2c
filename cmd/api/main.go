package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/infra/app"
	"github.com/spiderlily190/cad/internal/infra/config"
	"github.com/spiderlily190/cad/internal/infra/database"
	"github.com/spiderlily190/cad/internal/infra/logger"
	"github.com/spiderlily190/cad/migrations"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "cad-api",
		Short:        "CAD API server",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and realtime gateway (default)",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending PostgreSQL migrations and exit",
			RunE:  migrate,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return application.Run(cmd.Context())
}

func migrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.App.Store == "memory" {
		return fmt.Errorf("app.store is memory, nothing to migrate")
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pool, err := database.NewPostgresPool(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := database.Migrate(cmd.Context(), pool, migrations.Files, log)
	if err != nil {
		return err
	}
	log.Info("schema up to date", zap.Strings("applied", applied))
	return nil
}
