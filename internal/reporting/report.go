// Package reporting renders trading performance and submission telemetry as
// Markdown and CSV.
package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-swap-engine/internal/domain"
)

// Report is the trading report structure.
type Report struct {
	GeneratedAt time.Time
	WindowStart int64 // unix ms, inclusive
	WindowEnd   int64 // unix ms, inclusive

	// Summary is nil when no position was closed in the window.
	Summary *domain.PerformanceSummary

	OpenHoldings    int
	OpenExposureSOL decimal.Decimal

	// Trades sorted by sell_time, id
	Trades []TradeRow

	Submissions SubmissionSummary

	DataQuality []string
}

// TradeRow is one closed position.
type TradeRow struct {
	ID            string
	Symbol        string
	Address       string
	BuySolAmount  decimal.Decimal
	SellSolAmount decimal.Decimal
	PnLSOL        decimal.Decimal
	Outcome       float64
	BuyTime       int64
	SellTime      int64
	HoldMs        int64
	BuySignature  string
	SellSignature string
}

// SubmissionSummary aggregates submission telemetry.
type SubmissionSummary struct {
	Total          int
	MeanBroadcasts float64
	MeanLatencyMs  float64
	// ByStatus sorted by status
	ByStatus []StatusRow
	// BySide sorted by side
	BySide []StatusRow
}

// StatusRow counts submissions for one key.
type StatusRow struct {
	Key   string
	Count int
	Share float64
}
