package domain

import "github.com/shopspring/decimal"

// WSOL is the wrapped SOL mint. The native asset is quoted and resolved through it.
const WSOL = "So11111111111111111111111111111111111111112"

// SOLDecimals is the fixed decimal scale of lamports.
const SOLDecimals = 9

// Token describes a tradeable asset handed to the buy path by the decision loop.
type Token struct {
	Address     string // mint address
	PairAddress string
	Name        string
	Symbol      string
	Decimals    int32
	Liquidity   float64
	MarketCap   float64
	Price       decimal.Decimal // price in SOL at decision time
	AgeMs       int64
	Buys        int64
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)
