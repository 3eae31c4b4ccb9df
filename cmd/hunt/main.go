// Command hunt walks the window list from largest to smallest and stops at
// the first window producing an approved pair.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/hunt"
	"pairs-lab/internal/jobs"
	"pairs-lab/internal/observability"
	"pairs-lab/internal/pairstats"
	"pairs-lab/internal/scan"
	chstore "pairs-lab/internal/storage/clickhouse"
	"pairs-lab/internal/storage/migrations"
	pgstore "pairs-lab/internal/storage/postgres"
)

func main() {
	source := flag.String("source", string(domain.SourceAssets), "Universe to evaluate: assets or existing_pairs")
	windows := flag.String("windows", "", "Comma-separated windows to walk (empty uses the resolved list)")
	maxInstruments := flag.Int("max-instruments", 0, "Cap on instruments when hunting over assets (0 means no cap)")
	userID := flag.String("user-id", "", "Resolve thresholds with this user's stored configuration")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flag.Parse()

	log := observability.NewLogger(*logLevel, true)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		log.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required")
	}
	src := domain.HuntSource(*source)
	if src != domain.SourceAssets && src != domain.SourceExistingPairs {
		log.Fatal().Str("source", *source).Msg("Unknown source")
	}

	opts := hunt.Options{
		Source:         src,
		UserID:         *userID,
		MaxInstruments: *maxInstruments,
		Progress: func(ev jobs.Event) {
			switch ev.Kind {
			case jobs.EventWindowBoundary:
				if ev.NextWindow != nil {
					log.Info().Int("window", ev.Window).Int("next", *ev.NextWindow).Msg("No approval, moving on")
				}
			case jobs.EventIterating:
				log.Debug().Int("current", ev.Current).Int("total", ev.Total).Str("pair", ev.Label).Msg("Evaluating")
			case jobs.EventErrored:
				log.Warn().Str("error", ev.Error).Msg("Pair failed")
			}
		},
	}
	if *windows != "" {
		ws, err := parseWindows(*windows)
		if err != nil {
			log.Fatal().Err(err).Msg("Bad --windows")
		}
		opts.Windows = ws
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Hour)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Connecting to postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Postgres migrations")
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("ClickHouse migrations")
	}
	defer conn.Close()

	engine := pairstats.NewEngine(chstore.NewQuoteStore(conn))
	scanner := scan.NewScanner(engine, pgstore.NewPairStore(pool), pgstore.NewAssetStore(pool), log)
	orchestrator := hunt.NewOrchestrator(scanner, pgstore.NewConfigStore(pool), log)

	started := time.Now()
	result, err := orchestrator.Run(ctx, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Hunt failed")
	}

	if result.Found {
		log.Info().Int("window", *result.Window).Int("approved", len(result.ApprovedIDs)).
			Dur("elapsed", time.Since(started)).Msg("Hunt found approvals")
	} else {
		log.Info().Ints("scanned", result.ScannedWindows).
			Dur("elapsed", time.Since(started)).Msg("Hunt exhausted all windows")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("Encoding result")
	}
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
