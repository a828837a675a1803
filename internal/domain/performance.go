package domain

import "github.com/shopspring/decimal"

// PerformanceSummary aggregates closed positions.
// Outcome values are round-trip returns as fractions (0.1 = +10%).
type PerformanceSummary struct {
	// Counts
	TotalTrades  int
	TotalTokens  int // unique mint count
	Wins         int
	Losses       int
	WinRate      float64 // wins / total_trades
	TokenWinRate float64 // mints with positive mean outcome / total mints

	// SOL flows
	SpentSOL    decimal.Decimal
	ReceivedSOL decimal.Decimal
	RealizedPnL decimal.Decimal // received - spent

	// Outcome distribution
	OutcomeMean   float64
	OutcomeMedian float64
	OutcomeP10    float64
	OutcomeP90    float64
	OutcomeMin    float64
	OutcomeMax    float64
	OutcomeStddev float64

	// Drawdown, in SOL on cumulative realized PnL
	MaxDrawdown          decimal.Decimal
	MaxConsecutiveLosses int

	FirstSellTime int64 // unix ms
	LastSellTime  int64 // unix ms
}
