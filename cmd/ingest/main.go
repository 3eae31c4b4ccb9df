// Command ingest loads instruments and daily closing prices from CSV files
// into the databases.
//
// Quote files carry a header row followed by ticker,date,close records;
// asset files carry ticker,name,active. Dates accept YYYY-MM-DD or RFC3339.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"pairs-lab/internal/domain"
	"pairs-lab/internal/observability"
	"pairs-lab/internal/storage"
	chstore "pairs-lab/internal/storage/clickhouse"
	"pairs-lab/internal/storage/migrations"
	pgstore "pairs-lab/internal/storage/postgres"
)

func main() {
	quotesPath := flag.String("quotes-csv", "", "CSV file with daily closes (ticker,date,close)")
	assetsPath := flag.String("assets-csv", "", "CSV file with instruments (ticker,name,active)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	batchSize := flag.Int("batch-size", 5000, "Rows per quote insert batch")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *quotesPath == "" && *assetsPath == "" {
		logger.Fatal("Nothing to do. Use --quotes-csv and/or --assets-csv")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if *assetsPath != "" {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required to ingest assets")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connecting to postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Postgres migrations: %v", err)
		}

		inserted, skipped, err := ingestAssets(ctx, pgstore.NewAssetStore(pool), *assetsPath)
		if err != nil {
			logger.Fatalf("Ingesting assets: %v", err)
		}
		logger.Printf("Assets: %d inserted, %d already present", inserted, skipped)
	}

	if *quotesPath != "" {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required to ingest quotes")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse migrations: %v", err)
		}
		defer conn.Close()

		rows, batches, err := ingestQuotes(ctx, logger, chstore.NewQuoteStore(conn), *quotesPath, *batchSize)
		if err != nil {
			logger.Fatalf("Ingesting quotes: %v", err)
		}
		logger.Printf("Quotes: %d rows in %d batches", rows, batches)
	}
}

func ingestAssets(ctx context.Context, store storage.AssetStore, path string) (inserted, skipped int, err error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, 0, err
	}
	now := time.Now().UnixMilli()
	for i, rec := range records {
		if len(rec) < 1 || rec[0] == "" {
			return inserted, skipped, fmt.Errorf("row %d: missing ticker", i+2)
		}
		a := &domain.Asset{
			Ticker:    strings.ToUpper(strings.TrimSpace(rec[0])),
			Active:    true,
			CreatedAt: now,
		}
		if len(rec) > 1 {
			a.Name = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 && rec[2] != "" {
			a.Active, err = strconv.ParseBool(strings.TrimSpace(rec[2]))
			if err != nil {
				return inserted, skipped, fmt.Errorf("row %d: active flag: %w", i+2, err)
			}
		}
		switch err := store.Insert(ctx, a); {
		case err == nil:
			inserted++
		case errors.Is(err, storage.ErrDuplicateKey):
			skipped++
		default:
			return inserted, skipped, fmt.Errorf("row %d (%s): %w", i+2, a.Ticker, err)
		}
	}
	return inserted, skipped, nil
}

func ingestQuotes(ctx context.Context, logger *log.Logger, store storage.QuoteStore, path string, batchSize int) (rows, batches int, err error) {
	if batchSize <= 0 {
		batchSize = 5000
	}
	records, err := readCSV(path)
	if err != nil {
		return 0, 0, err
	}

	batch := make([]*domain.PriceObservation, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := store.InsertBulk(ctx, batch)
		observability.RecordQuotesIngested(len(batch), err)
		if err != nil {
			return err
		}
		rows += len(batch)
		batches++
		batch = batch[:0]
		return nil
	}

	for i, rec := range records {
		q, err := parseQuote(rec)
		if err != nil {
			return rows, batches, fmt.Errorf("row %d: %w", i+2, err)
		}
		batch = append(batch, q)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return rows, batches, err
			}
			logger.Printf("Ingested %d rows...", rows)
		}
	}
	if err := flush(); err != nil {
		return rows, batches, err
	}
	return rows, batches, nil
}

func parseQuote(rec []string) (*domain.PriceObservation, error) {
	if len(rec) < 3 {
		return nil, fmt.Errorf("expected ticker,date,close, got %d fields", len(rec))
	}
	date, err := parseDate(strings.TrimSpace(rec[1]))
	if err != nil {
		return nil, err
	}
	closePx, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	return &domain.PriceObservation{
		Ticker: strings.ToUpper(strings.TrimSpace(rec[0])),
		Date:   date,
		Close:  closePx,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD or RFC3339", s)
	}
	return t, nil
}

// readCSV reads all records, skipping the header row.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}
