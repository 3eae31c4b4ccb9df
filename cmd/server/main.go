// Package main provides the API server that runs all components together:
// - Scans (job-backed): universe base builds and per-pair window grids
// - Hunts (job-backed): descending-window search with operator decisions
// - Queries: pairs, analysis series, sizing, reports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pairs-lab/internal/config"
	"pairs-lab/internal/hunt"
	"pairs-lab/internal/jobs"
	"pairs-lab/internal/observability"
	"pairs-lab/internal/pairstats"
	"pairs-lab/internal/reporting"
	"pairs-lab/internal/scan"
	"pairs-lab/internal/storage"
	chstore "pairs-lab/internal/storage/clickhouse"
	"pairs-lab/internal/storage/memory"
	"pairs-lab/internal/storage/migrations"
	pgstore "pairs-lab/internal/storage/postgres"
)

// Server wires the components behind the HTTP API.
type Server struct {
	cfg    *config.Config
	stores *allStores

	engine    *pairstats.Engine
	scanner   *scan.Scanner
	hunter    *hunt.Orchestrator
	gateway   jobs.Gateway
	runner    *jobs.Runner
	generator *reporting.Generator

	// processOverride is the config-file threshold layer, applied below
	// per-user configuration and per-request overrides.
	processOverride *scan.Override

	startedAt time.Time
	log       zerolog.Logger
}

// allStores holds all storage implementations.
type allStores struct {
	assets  storage.AssetStore
	quotes  storage.QuoteStore
	pairs   storage.PairStore
	configs storage.ConfigStore
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and job state (no external services)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *useMemory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	gateway, gwCleanup := createGateway(cfg, *useMemory, logger)
	defer gwCleanup()

	engine := pairstats.NewEngine(stores.quotes)
	scanner := scan.NewScanner(engine, stores.pairs, stores.assets, logger)

	server := &Server{
		cfg:             cfg,
		stores:          stores,
		engine:          engine,
		scanner:         scanner,
		hunter:          hunt.NewOrchestrator(scanner, stores.configs, logger),
		gateway:         gateway,
		runner:          jobs.NewRunner(gateway, logger),
		generator:       reporting.NewGenerator(stores.pairs),
		processOverride: cfg.ThresholdOverride(),
		startedAt:       time.Now(),
		log:             logger,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}

	logger.Info().Msg("shutdown complete")
}

// loadConfig reads the config file, or synthesizes a local one when running
// fully in memory without a file.
func loadConfig(path string, useMemory bool) (*config.Config, error) {
	if path != "" {
		return config.LoadWithEnv(path)
	}
	if !useMemory {
		return nil, errors.New("--config is required (or --use-memory for a self-contained run)")
	}
	var cfg config.Config
	cfg.Environment = "local"
	cfg.Postgres.DSN = "memory"
	cfg.ClickHouse.DSN = "memory"
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Metrics.Path = "/metrics"
	cfg.Log.Level = "info"
	return &cfg, nil
}

// createStores builds the storage layer, running migrations on the real
// backends.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			assets:  memory.NewAssetStore(),
			quotes:  memory.NewQuoteStore(),
			pairs:   memory.NewPairStore(),
			configs: memory.NewConfigStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		assets:  pgstore.NewAssetStore(pool),
		quotes:  chstore.NewQuoteStore(chConn),
		pairs:   pgstore.NewPairStore(pool),
		configs: pgstore.NewConfigStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// createGateway builds the job coordination surface: Redis when configured,
// in-process otherwise.
func createGateway(cfg *config.Config, useMemory bool, logger zerolog.Logger) (jobs.Gateway, func()) {
	if useMemory || !cfg.Redis.Enabled {
		return jobs.NewMemoryGateway(), func() {}
	}

	gw := jobs.NewRedisGateway(jobs.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := gw.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable")
	}
	return gw, func() { _ = gw.Close() }
}
