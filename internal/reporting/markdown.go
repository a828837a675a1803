package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trading Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s to %s\n\n", formatMs(r.WindowStart), formatMs(r.WindowEnd)))

	// Performance
	sb.WriteString("## Performance\n\n")
	if s := r.Summary; s != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TotalTrades))
		sb.WriteString(fmt.Sprintf("| Tokens | %d |\n", s.TotalTokens))
		sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", s.Wins, s.Losses))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", s.WinRate))
		sb.WriteString(fmt.Sprintf("| Token Win Rate | %.4f |\n", s.TokenWinRate))
		sb.WriteString(fmt.Sprintf("| SOL Spent | %s |\n", s.SpentSOL.StringFixed(9)))
		sb.WriteString(fmt.Sprintf("| SOL Received | %s |\n", s.ReceivedSOL.StringFixed(9)))
		sb.WriteString(fmt.Sprintf("| Realized PnL (SOL) | %s |\n", s.RealizedPnL.StringFixed(9)))
		sb.WriteString(fmt.Sprintf("| Outcome Mean | %.4f |\n", s.OutcomeMean))
		sb.WriteString(fmt.Sprintf("| Outcome Median | %.4f |\n", s.OutcomeMedian))
		sb.WriteString(fmt.Sprintf("| Outcome P10 / P90 | %.4f / %.4f |\n", s.OutcomeP10, s.OutcomeP90))
		sb.WriteString(fmt.Sprintf("| Outcome Min / Max | %.4f / %.4f |\n", s.OutcomeMin, s.OutcomeMax))
		sb.WriteString(fmt.Sprintf("| Outcome Stddev | %.4f |\n", s.OutcomeStddev))
		sb.WriteString(fmt.Sprintf("| Max Drawdown (SOL) | %s |\n", s.MaxDrawdown.StringFixed(9)))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	} else {
		sb.WriteString("No closed positions in window.\n")
	}
	sb.WriteString("\n")

	// Open positions
	sb.WriteString("## Open Positions\n\n")
	sb.WriteString(fmt.Sprintf("Holdings: %d | SOL at cost: %s\n\n", r.OpenHoldings, r.OpenExposureSOL.StringFixed(9)))

	// Submissions
	sb.WriteString("## Submissions\n\n")
	if r.Submissions.Total > 0 {
		sb.WriteString(fmt.Sprintf("Total: %d | Mean broadcasts: %.2f | Mean latency: %.0f ms\n\n",
			r.Submissions.Total, r.Submissions.MeanBroadcasts, r.Submissions.MeanLatencyMs))
		sb.WriteString("| Status | Count | Share |\n")
		sb.WriteString("|--------|-------|-------|\n")
		for _, row := range r.Submissions.ByStatus {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f |\n", row.Key, row.Count, row.Share))
		}
		sb.WriteString("\n")
		sb.WriteString("| Side | Count | Share |\n")
		sb.WriteString("|------|-------|-------|\n")
		for _, row := range r.Submissions.BySide {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f |\n", row.Key, row.Count, row.Share))
		}
	} else {
		sb.WriteString("No submissions recorded.\n")
	}
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Symbol | Buy SOL | Sell SOL | PnL SOL | Outcome | Held | Sold |\n")
		sb.WriteString("|--------|---------|----------|---------|---------|------|------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.4f | %s | %s |\n",
				symbolOrAddress(t), t.BuySolAmount.String(), t.SellSolAmount.String(), t.PnLSOL.String(),
				t.Outcome, time.Duration(t.HoldMs)*time.Millisecond, formatMs(t.SellTime)))
		}
	} else {
		sb.WriteString("No trades.\n")
	}
	sb.WriteString("\n")

	// Data quality
	if len(r.DataQuality) > 0 {
		sb.WriteString("## Data Quality\n\n")
		for _, msg := range r.DataQuality {
			sb.WriteString(fmt.Sprintf("- %s\n", msg))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func symbolOrAddress(t TradeRow) string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address
}
