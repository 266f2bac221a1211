package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/insider-trades/internal/api"
	"github.com/rickgao/insider-trades/internal/config"
	"github.com/rickgao/insider-trades/internal/database"
	"github.com/rickgao/insider-trades/internal/dedup"
	"github.com/rickgao/insider-trades/internal/ingest"
	"github.com/rickgao/insider-trades/internal/logging"
	"github.com/rickgao/insider-trades/internal/scheduler"
	"github.com/rickgao/insider-trades/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/ingester.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	once := flag.Bool("once", false, "run a single batch even when schedule.cron is set")
	runOnStart := flag.Bool("run-on-start", false, "in scheduled mode, also run a batch immediately")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		slog.Error("failed to load env file", "path", *envPath, "error", err)
		return 1
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	// Set up structured logging
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		return 1
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting ingester",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to database",
			"driver", cfg.Database.Driver,
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
	case config.DriverSQLite:
		logger.Info("opening database", "driver", cfg.Database.Driver, "path", cfg.Database.SQLite.Path)
	}

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
	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		return 1
	}

	runner := newRunner(cfg, store, logger)

	if cfg.Schedule.Cron == "" || *once {
		snap, err := runner.Run(ctx)
		if err != nil {
			logger.Error("batch failed", "error", err)
			return 1
		}
		return snap.ExitCode
	}

	sched := scheduler.New(scheduler.Config{
		Spec:       cfg.Schedule.Cron,
		RunOnStart: *runOnStart,
	}, runner, logger)

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return 1
	}

	logger.Info("ingester running", "instance_id", cfg.Instance.ID, "schedule", cfg.Schedule.Cron)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler did not stop cleanly", "error", err)
		return 1
	}

	stats := sched.Stats()
	logger.Info("ingester stopped", "runs", stats.Runs, "failed", stats.Failed, "skipped", stats.Skipped)
	return 0
}

// newRunner wires the provider clients into a batch runner.
func newRunner(cfg *config.Config, store *dedup.Store, logger *slog.Logger) *ingest.Runner {
	feed := api.NewFeedClient(
		cfg.Feed.BaseURL,
		cfg.Feed.Path,
		cfg.Feed.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Feed.Timeout),
		api.WithRetries(cfg.Feed.MaxRetries, cfg.Feed.RetryBackoff),
	)

	var prices ingest.PriceFetcher = api.NewPriceClient(
		cfg.Prices.BaseURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Prices.Timeout),
		api.WithRetries(cfg.Prices.MaxRetries, time.Second),
		api.WithRateLimit(cfg.Prices.RequestsPerSecond, 1),
	)
	if cfg.Prices.CacheTTL > 0 {
		prices = ingest.NewCachedPrices(prices, cfg.Prices.CacheTTL)
	}

	opts := []ingest.Option{ingest.WithLogger(logger)}
	if cfg.Options.Enabled {
		opts = append(opts, ingest.WithOptions(api.NewOptionsClient(
			cfg.Options.BaseURL,
			cfg.Options.Token,
			api.WithLogger(logger),
			api.WithTimeout(cfg.Options.Timeout),
			api.WithRetries(cfg.Options.MaxRetries, time.Second),
			api.WithRateLimit(cfg.Options.RequestsPerSecond, 1),
		)))
	}

	return ingest.New(ingest.Config{
		Page:         cfg.Feed.Page,
		Limit:        cfg.Feed.Limit,
		LookbackDays: cfg.Prices.LookbackDays,
		HorizonDays:  cfg.Options.HorizonDays,
	}, feed, prices, store, opts...)
}
