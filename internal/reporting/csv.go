package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// RenderCSV renders closed positions as CSV.
func RenderCSV(rows []TradeRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"id", "symbol", "address", "buy_sol", "sell_sol", "pnl_sol", "outcome",
		"buy_time", "sell_time", "hold_ms", "buy_signature", "sell_signature",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.ID,
			r.Symbol,
			r.Address,
			r.BuySolAmount.String(),
			r.SellSolAmount.String(),
			r.PnLSOL.String(),
			strconv.FormatFloat(r.Outcome, 'f', 6, 64),
			strconv.FormatInt(r.BuyTime, 10),
			strconv.FormatInt(r.SellTime, 10),
			strconv.FormatInt(r.HoldMs, 10),
			r.BuySignature,
			r.SellSignature,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}
