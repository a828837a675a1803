// Package metrics computes trading performance from closed positions.
package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"solana-swap-engine/internal/domain"
)

// Outcome returns the round-trip return of an entry as a fraction.
// Entries with an unknown SOL leg fall back to the recorded gain percent.
func Outcome(e *domain.HistoryEntry) float64 {
	if e.BuySolAmount.IsZero() || e.SellSolAmount.IsZero() {
		return e.Gain.Div(decimal.NewFromInt(100)).InexactFloat64()
	}
	return e.SellSolAmount.Sub(e.BuySolAmount).Div(e.BuySolAmount).InexactFloat64()
}

// pnl returns the SOL result of an entry.
func pnl(e *domain.HistoryEntry) decimal.Decimal {
	return e.SellSolAmount.Sub(e.BuySolAmount)
}

// computeFromEntries calculates all metrics from closed positions.
// Entries are sorted by SellTime ASC, ID ASC before computing
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
func computeFromEntries(entries []*domain.HistoryEntry) *domain.PerformanceSummary {
	n := len(entries)
	if n == 0 {
		return &domain.PerformanceSummary{}
	}

	sorted := make([]*domain.HistoryEntry, n)
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SellTime != sorted[j].SellTime {
			return sorted[i].SellTime < sorted[j].SellTime
		}
		return sorted[i].ID < sorted[j].ID
	})

	outcomes := make([]float64, n)
	wins := 0
	spent := decimal.Zero
	received := decimal.Zero
	for i, e := range sorted {
		outcomes[i] = Outcome(e)
		if outcomes[i] > 0 {
			wins++
		}
		spent = spent.Add(e.BuySolAmount)
		received = received.Add(e.SellSolAmount)
	}

	sortedOutcomes := make([]float64, n)
	copy(sortedOutcomes, outcomes)
	sort.Float64s(sortedOutcomes)

	mean := computeMean(outcomes)
	totalTokens, tokenWinRate := computeTokenWinRate(sorted)

	return &domain.PerformanceSummary{
		TotalTrades:  n,
		TotalTokens:  totalTokens,
		Wins:         wins,
		Losses:       n - wins,
		WinRate:      float64(wins) / float64(n),
		TokenWinRate: tokenWinRate,

		SpentSOL:    spent,
		ReceivedSOL: received,
		RealizedPnL: received.Sub(spent),

		OutcomeMean:   mean,
		OutcomeMedian: computePercentile(sortedOutcomes, 0.50),
		OutcomeP10:    computePercentile(sortedOutcomes, 0.10),
		OutcomeP90:    computePercentile(sortedOutcomes, 0.90),
		OutcomeMin:    sortedOutcomes[0],
		OutcomeMax:    sortedOutcomes[n-1],
		OutcomeStddev: computeStddev(outcomes, mean),

		MaxDrawdown:          computeMaxDrawdown(sorted),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(outcomes),

		FirstSellTime: sorted[0].SellTime,
		LastSellTime:  sorted[n-1].SellTime,
	}
}

// computeTokenWinRate groups outcomes by mint. A mint wins when the mean of
// its outcomes is strictly positive.
func computeTokenWinRate(entries []*domain.HistoryEntry) (int, float64) {
	if len(entries) == 0 {
		return 0, 0
	}

	byMint := make(map[string][]float64)
	for _, e := range entries {
		byMint[e.Address] = append(byMint[e.Address], Outcome(e))
	}

	winning := 0
	for _, outcomes := range byMint {
		if computeMean(outcomes) > 0 {
			winning++
		}
	}
	return len(byMint), float64(winning) / float64(len(byMint))
}

func computeMean(outcomes []float64) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range outcomes {
		sum += o
	}
	return sum / float64(len(outcomes))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(outcomes []float64, mean float64) float64 {
	n := len(outcomes)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, o := range outcomes {
		diff := o - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation. sorted must be ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown is the worst peak-to-trough of cumulative realized PnL.
// Entries must be in chronological order.
func computeMaxDrawdown(entries []*domain.HistoryEntry) decimal.Decimal {
	cumulative := decimal.Zero
	peak := decimal.Zero
	maxDrawdown := decimal.Zero

	for _, e := range entries {
		cumulative = cumulative.Add(pnl(e))
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if dd := peak.Sub(cumulative); dd.GreaterThan(maxDrawdown) {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of outcome <= 0.
func computeMaxConsecutiveLosses(outcomes []float64) int {
	maxStreak := 0
	current := 0
	for _, o := range outcomes {
		if o <= 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
