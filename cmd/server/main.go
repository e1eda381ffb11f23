// Package main implements the entry point for the mentorbook API server,
// which manages mentor availability, session booking, mentor matching and
// the outbox that keeps the external calendar in sync.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status, version, reset) and exit")
	flag.Parse()

	cfg, log, err := initializeApp()
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateCmd != "" {
		if err := runMigrations(ctx, cfg, *migrateCmd, log, flag.Args()...); err != nil {
			log.Error("migration failed", slog.String("command", *migrateCmd), slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("sync_target", cfg.Sync.Target),
		slog.String("timezone", cfg.Booking.Timezone))
	return cfg, log, nil
}

// runMigrations opens its own connection so migrations never share the
// server's pool.
func runMigrations(ctx context.Context, cfg *config.Config, command string, log *slog.Logger, args ...string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close migration connection", slog.String("error", err.Error()))
		}
	}()

	return postgres.Migrate(ctx, db, command, log, args...)
}

func fatal(err error) {
	log.Fatalf("mentorbook-api: %v", err)
}
