package reporting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/metrics"
	"solana-swap-engine/internal/storage"
)

// Output file names written by WriteFiles.
const (
	ReportFile = "TRADING_REPORT.md"
	TradesFile = "TRADES.csv"
)

// Generator produces reports from stored data.
type Generator struct {
	history     storage.HistoryStore
	submissions storage.SubmissionStore
	aggregator  *metrics.Aggregator
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. submissions may be nil.
func NewGenerator(history storage.HistoryStore, holdings storage.HoldingStore, submissions storage.SubmissionStore) *Generator {
	return &Generator{
		history:     history,
		submissions: submissions,
		aggregator:  metrics.NewAggregator(history, holdings),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over positions sold and submissions started
// within [start, end] (unix ms, inclusive).
func (g *Generator) Generate(ctx context.Context, start, end int64) (*Report, error) {
	if end < start {
		return nil, fmt.Errorf("%w: window end %d before start %d", storage.ErrInvalidInput, end, start)
	}

	summary, err := g.aggregator.ComputeWindow(ctx, start, end)
	if err != nil && !errors.Is(err, metrics.ErrNoTrades) {
		return nil, err
	}

	trades, err := g.generateTrades(ctx, start, end)
	if err != nil {
		return nil, err
	}

	openCount, exposure, err := g.aggregator.OpenExposure(ctx)
	if err != nil {
		return nil, err
	}

	var subs SubmissionSummary
	if g.submissions != nil {
		records, err := g.submissions.GetByTimeRange(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("load submissions: %w", err)
		}
		subs = summarizeSubmissions(records)
	}

	return &Report{
		GeneratedAt:     g.now(),
		WindowStart:     start,
		WindowEnd:       end,
		Summary:         summary,
		OpenHoldings:    openCount,
		OpenExposureSOL: exposure,
		Trades:          trades,
		Submissions:     subs,
		DataQuality:     g.aggregator.GetIncompleteEntryErrors(),
	}, nil
}

// generateTrades builds trade rows for the window.
func (g *Generator) generateTrades(ctx context.Context, start, end int64) ([]TradeRow, error) {
	entries, err := g.history.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var rows []TradeRow
	for _, e := range entries {
		if e.SellTime < start || e.SellTime > end {
			continue
		}
		rows = append(rows, TradeRow{
			ID:            e.ID,
			Symbol:        e.Symbol,
			Address:       e.Address,
			BuySolAmount:  e.BuySolAmount,
			SellSolAmount: e.SellSolAmount,
			PnLSOL:        e.SellSolAmount.Sub(e.BuySolAmount),
			Outcome:       metrics.Outcome(e),
			BuyTime:       e.BuyTime,
			SellTime:      e.SellTime,
			HoldMs:        e.SellTime - e.BuyTime,
			BuySignature:  e.BuySignature,
			SellSignature: e.SellSignature,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SellTime != rows[j].SellTime {
			return rows[i].SellTime < rows[j].SellTime
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

// summarizeSubmissions counts records by status and side.
func summarizeSubmissions(records []*domain.SubmissionRecord) SubmissionSummary {
	s := SubmissionSummary{Total: len(records)}
	if len(records) == 0 {
		return s
	}

	byStatus := make(map[string]int)
	bySide := make(map[string]int)
	broadcasts := 0
	var latency int64
	for _, r := range records {
		byStatus[r.Status]++
		bySide[string(r.Side)]++
		broadcasts += r.Broadcasts
		latency += r.FinishedAt - r.StartedAt
	}

	n := float64(len(records))
	s.MeanBroadcasts = float64(broadcasts) / n
	s.MeanLatencyMs = float64(latency) / n
	s.ByStatus = countRows(byStatus, len(records))
	s.BySide = countRows(bySide, len(records))
	return s
}

func countRows(counts map[string]int, total int) []StatusRow {
	rows := make([]StatusRow, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, StatusRow{Key: k, Count: c, Share: float64(c) / float64(total)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

// WriteFiles renders r into dir and returns the written paths.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tradesCSV, err := RenderCSV(r.Trades)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{TradesFile, tradesCSV},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
