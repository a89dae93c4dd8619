// Command snapshot performs a single fetch-join-derive cycle against the
// Census API and prints the resulting state table, for ad-hoc analysis and
// for sanity-checking a vintage before pointing the service at it.
//
// Usage:
//
//	CENSUS_API_KEY=... go run ./cmd/snapshot -year 2022 -sort net_migration -top 15
//	CENSUS_API_KEY=... go run ./cmd/snapshot -json > snapshot.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/policymetrics/talent-flow-etl/internal/adapter/census"
	"github.com/policymetrics/talent-flow-etl/internal/domain"
	"github.com/policymetrics/talent-flow-etl/internal/observability"
	"github.com/policymetrics/talent-flow-etl/internal/pipeline"
)

func main() {
	year := flag.Int("year", 2022, "ACS 5-year vintage to fetch")
	sortField := flag.String("sort", "net_migration", "record field to sort the table by")
	top := flag.Int("top", 0, "print only the first N rows (0 = all)")
	asJSON := flag.Bool("json", false, "emit the full snapshot as JSON instead of a table")
	timeout := flag.Duration("timeout", 30*time.Second, "Census API request timeout")
	flag.Parse()

	apiKey := os.Getenv("CENSUS_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "CENSUS_API_KEY is required")
		os.Exit(1)
	}

	if code := run(apiKey, *year, *sortField, *top, *asJSON, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(apiKey string, year int, sortField string, top int, asJSON bool, timeout time.Duration) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewRealClock()

	client := census.NewClient(apiKey, year, timeout, metrics, logger)
	store := pipeline.NewStore()
	refresher := pipeline.New(client, store, nil, nil, logger, metrics, clock, time.Hour, year)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := refresher.RefreshOnce(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	snap, _ := store.Current()

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: encode snapshot: %v\n", err)
			return 1
		}
		return 0
	}

	records := make([]domain.StateRecord, len(snap.Records))
	copy(records, snap.Records)
	if err := domain.SortRecords(records, sortField); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	if top > 0 && top < len(records) {
		records = records[:top]
	}

	printTable(snap, records, sortField)
	return 0
}

func printTable(snap *domain.Snapshot, records []domain.StateRecord, sortField string) {
	fmt.Printf("=== ACS %d snapshot — %d states, sorted by %s ===\n\n", snap.Year, len(snap.Records), sortField)
	fmt.Printf("%-4s %-22s %12s %10s %8s %8s  %s\n",
		"#", "State", "Net Mig", "Rate/1k", "Conc%", "Drain%", "Segment")

	for i, rec := range records {
		fmt.Printf("%-4d %-22s %+12d %10s %8s %8s  %s\n",
			i+1, rec.StateName, rec.NetMigration,
			fmtOpt(rec.MigrationRate, "%.2f"),
			fmtOpt(rec.TalentConcentration, "%.1f"),
			fmtOpt(rec.BrainDrainSignal, "%.2f"),
			rec.Segment)
	}

	if snap.Thresholds != nil {
		fmt.Printf("\nMedians: net_migration=%.1f talent_concentration=%.2f%%\n",
			snap.Thresholds.NetMigration, snap.Thresholds.TalentConcentration)
	}
	if len(snap.ExcludedFIPS) > 0 {
		fmt.Printf("Excluded by inner join: %v\n", snap.ExcludedFIPS)
	}
}

func fmtOpt(v *float64, format string) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf(format, *v)
}
