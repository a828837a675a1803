// Command report writes a trading report from the bot's stored holdings,
// history and submission telemetry.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"solana-swap-engine/internal/config"
	"solana-swap-engine/internal/reporting"
	"solana-swap-engine/internal/storage"
	chstore "solana-swap-engine/internal/storage/clickhouse"
	pgstore "solana-swap-engine/internal/storage/postgres"
)

func main() {
	configPath := flag.StringP("config", "c", "", "Path to TOML config file (empty: defaults and environment only)")
	outputDir := flag.StringP("output-dir", "o", "reports", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	since := flag.Duration("since", 24*time.Hour, "Report window length ending now")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Postgres.DSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickHouse.DSN = *clickhouseDSN
	}
	if cfg.Postgres.DSN == "" {
		fmt.Fprintln(os.Stderr, "Error: a postgres dsn is required (--postgres-dsn or POSTGRES_DSN)")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Submission telemetry is optional.
	var submissions storage.SubmissionStore
	if cfg.ClickHouse.DSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		submissions = chstore.NewSubmissionStore(conn)
	}

	end := time.Now()
	start := end.Add(-*since)

	gen := reporting.NewGenerator(pgstore.NewHistoryStore(pool), pgstore.NewHoldingStore(pool), submissions)
	report, err := gen.Generate(ctx, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	paths, err := reporting.WriteFiles(*outputDir, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Trading report generated successfully:")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
}
