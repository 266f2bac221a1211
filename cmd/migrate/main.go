package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/rickgao/insider-trades/internal/config"
	"github.com/rickgao/insider-trades/internal/database"
	"github.com/rickgao/insider-trades/internal/dedup"
	"github.com/rickgao/insider-trades/internal/logging"
	"github.com/rickgao/insider-trades/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/ingester.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	down := flag.Bool("down", false, "revert all migrations (drops every table)")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		slog.Error("failed to load env file", "path", *envPath, "error", err)
		return 1
	}

	// Only the database and logging sections matter here.
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		return 1
	}
	defer logCloser.Close()

	logger.Info("starting migrate",
		"version", version.Version,
		"driver", cfg.Database.Driver,
		"down", *down,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()

	dialect, err := dedup.DialectFor(db.Driver)
	if err != nil {
		logger.Error("unsupported database", "error", err)
		return 1
	}
	store := dedup.New(db.DB, dialect, dedup.WithLogger(logger))

	if *down {
		err = store.Rollback(ctx)
	} else {
		err = store.Migrate(ctx)
	}
	if err != nil {
		logger.Error("migration failed", "error", err)
		return 1
	}

	v, err := store.Version(ctx)
	if err != nil {
		logger.Error("failed to read schema version", "error", err)
		return 1
	}
	logger.Info("schema ready", "version", v, "latest", dedup.SchemaVersion)
	return 0
}
