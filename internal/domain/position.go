package domain

import "github.com/shopspring/decimal"

// Holding is an open position created by a confirmed buy.
// Owned by the decision loop; the swap engine only constructs it.
type Holding struct {
	ID           string
	Address      string // token mint
	Name         string
	Symbol       string
	Decimals     int32
	CurrentPrice decimal.Decimal
	BuyPrice     decimal.Decimal
	Amount       decimal.Decimal // resolved token amount received
	BuySolAmount decimal.Decimal // SOL spent
	BuyTime      int64           // unix ms
	Gain         decimal.Decimal // percent, maintained by the decision loop
	BuySignature string
}

// HistoryEntry is a closed position produced by a confirmed sell.
type HistoryEntry struct {
	ID            string
	HoldingID     string
	Address       string
	Name          string
	Symbol        string
	Decimals      int32
	BuyPrice      decimal.Decimal
	BuySolAmount  decimal.Decimal
	BuyTime       int64
	Amount        decimal.Decimal // token amount sold
	SellPrice     decimal.Decimal
	SellSolAmount decimal.Decimal // resolved SOL received
	SellTime      int64
	Gain          decimal.Decimal // realized gain percent
	BuySignature  string
	SellSignature string
}

// RealizedGain returns the percent return of a round trip.
// Falls back to the holding's tracked gain when either leg's SOL amount is unknown.
func RealizedGain(buySol, sellSol, tracked decimal.Decimal) decimal.Decimal {
	if buySol.IsZero() || sellSol.IsZero() {
		return tracked
	}
	return sellSol.Sub(buySol).Div(buySol).Mul(decimal.NewFromInt(100))
}
