// Command scan runs a universe base build, a refresh of known pairs, or a
// per-pair window grid from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pairs-lab/internal/jobs"
	"pairs-lab/internal/observability"
	"pairs-lab/internal/pairstats"
	"pairs-lab/internal/scan"
	"pairs-lab/internal/storage"
	chstore "pairs-lab/internal/storage/clickhouse"
	"pairs-lab/internal/storage/migrations"
	pgstore "pairs-lab/internal/storage/postgres"
)

func main() {
	mode := flag.String("mode", "base", "Scan mode: base, refresh, or grid")
	pairID := flag.String("pair", "", "Pair id (required for grid mode)")
	window := flag.Int("window", 0, "Window for base/refresh modes (0 uses the resolved default)")
	windows := flag.String("windows", "", "Comma-separated windows for grid mode (empty uses the resolved list)")
	maxInstruments := flag.Int("max-instruments", 0, "Cap on instruments in base mode (0 means no cap)")
	userID := flag.String("user-id", "", "Resolve thresholds with this user's stored configuration")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flag.Parse()

	log := observability.NewLogger(*logLevel, true)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		log.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	scanner, configs, cleanup, err := buildScanner(ctx, *postgresDSN, *clickhouseDSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Setting up stores")
	}
	defer cleanup()

	params, err := resolveParams(ctx, configs, *userID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Resolving parameters")
	}

	progress := func(ev jobs.Event) {
		switch ev.Kind {
		case jobs.EventIterating:
			log.Info().Int("current", ev.Current).Int("total", ev.Total).Str("pair", ev.Label).Msg("Evaluating")
		case jobs.EventErrored:
			log.Warn().Str("error", ev.Error).Msg("Pair failed")
		}
	}

	var out any
	switch *mode {
	case "base":
		w := *window
		if w <= 0 {
			w = params.BaseWindow
		}
		out, err = scanner.BuildUniverseBase(ctx, scan.BaseBuildOptions{
			Window:         w,
			MaxInstruments: *maxInstruments,
			Thresholds:     params.Thresholds,
			Progress:       progress,
		})
	case "refresh":
		w := *window
		if w <= 0 {
			w = params.BaseWindow
		}
		out, err = scanner.RefreshExistingPairs(ctx, w, params.Thresholds, progress)
	case "grid":
		if *pairID == "" {
			log.Fatal().Msg("--pair is required for grid mode")
		}
		ws := params.Windows
		if *windows != "" {
			ws, err = parseWindows(*windows)
			if err != nil {
				log.Fatal().Err(err).Msg("Bad --windows")
			}
		}
		out, err = scanner.ScanPairWindows(ctx, *pairID, ws, params.Thresholds)
	default:
		log.Fatal().Str("mode", *mode).Msg("Unknown mode")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Scan failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Encoding result")
	}
}

func buildScanner(ctx context.Context, postgresDSN, clickhouseDSN string, log zerolog.Logger) (*scan.Scanner, storage.ConfigStore, func(), error) {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	engine := pairstats.NewEngine(chstore.NewQuoteStore(conn))
	scanner := scan.NewScanner(engine, pgstore.NewPairStore(pool), pgstore.NewAssetStore(pool), log)
	return scanner, pgstore.NewConfigStore(pool), cleanup, nil
}

func resolveParams(ctx context.Context, configs storage.ConfigStore, userID string, log zerolog.Logger) (scan.Params, error) {
	var userLayer *scan.Override
	if userID != "" {
		cfg, err := configs.GetByUser(ctx, userID)
		switch {
		case err == nil:
			userLayer = scan.FromConfig(cfg)
		case errors.Is(err, storage.ErrNotFound):
			log.Debug().Str("user", userID).Msg("No stored configuration, using defaults")
		default:
			return scan.Params{}, err
		}
	}
	return scan.ResolveParams(userLayer), nil
}

func parseWindows(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ws := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("window %q: want a positive integer", p)
		}
		ws = append(ws, w)
	}
	return ws, nil
}
