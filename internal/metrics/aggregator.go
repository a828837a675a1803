package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/storage"
)

// ErrNoTrades is returned when no closed positions are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator computes performance summaries from stored positions.
type Aggregator struct {
	history  storage.HistoryStore
	holdings storage.HoldingStore

	// IncompleteEntries counts closed positions whose SOL legs could not be
	// resolved, keyed by entry id. Their outcome falls back to the recorded gain.
	IncompleteEntries map[string]int
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(history storage.HistoryStore, holdings storage.HoldingStore) *Aggregator {
	return &Aggregator{
		history:           history,
		holdings:          holdings,
		IncompleteEntries: make(map[string]int),
	}
}

// Compute summarizes every closed position. Returns ErrNoTrades when there are none.
func (a *Aggregator) Compute(ctx context.Context) (*domain.PerformanceSummary, error) {
	entries, err := a.history.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return a.summarize(entries)
}

// ComputeForMint summarizes the closed positions of one token.
func (a *Aggregator) ComputeForMint(ctx context.Context, address string) (*domain.PerformanceSummary, error) {
	entries, err := a.history.GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", address, err)
	}
	return a.summarize(entries)
}

// ComputeWindow summarizes positions sold within [start, end] (unix ms, inclusive).
func (a *Aggregator) ComputeWindow(ctx context.Context, start, end int64) (*domain.PerformanceSummary, error) {
	entries, err := a.history.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	var filtered []*domain.HistoryEntry
	for _, e := range entries {
		if e.SellTime >= start && e.SellTime <= end {
			filtered = append(filtered, e)
		}
	}
	return a.summarize(filtered)
}

func (a *Aggregator) summarize(entries []*domain.HistoryEntry) (*domain.PerformanceSummary, error) {
	if len(entries) == 0 {
		return nil, ErrNoTrades
	}
	for _, e := range entries {
		if e.BuySolAmount.IsZero() || e.SellSolAmount.IsZero() {
			a.IncompleteEntries[e.ID]++
		}
	}
	return computeFromEntries(entries), nil
}

// OpenExposure returns the number of open holdings and the SOL spent on them.
func (a *Aggregator) OpenExposure(ctx context.Context) (int, decimal.Decimal, error) {
	holdings, err := a.holdings.GetAll(ctx)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("load holdings: %w", err)
	}
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.BuySolAmount)
	}
	return len(holdings), total, nil
}

// GetIncompleteEntryErrors returns data quality messages sorted by entry id.
func (a *Aggregator) GetIncompleteEntryErrors() []string {
	if len(a.IncompleteEntries) == 0 {
		return nil
	}

	ids := make([]string, 0, len(a.IncompleteEntries))
	for id := range a.IncompleteEntries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	msgs := make([]string, len(ids))
	for i, id := range ids {
		msgs[i] = fmt.Sprintf("history entry %s has an unresolved SOL amount", id)
	}
	return msgs
}
