package bot

import (
	"context"
	"time"

	"solana-swap-engine/internal/domain"
)

// Decider holds the trading strategy.
type Decider interface {
	// NextBuy returns the token to buy next, or nil when there is nothing to buy.
	NextBuy(ctx context.Context) (*domain.Token, error)

	// ShouldSell reports whether the holding should be closed now.
	ShouldSell(ctx context.Context, h domain.Holding) (bool, error)
}

// HoldDecider never buys and sells every holding once it is SellAfter old.
type HoldDecider struct {
	SellAfter time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// NextBuy implements Decider.
func (d HoldDecider) NextBuy(context.Context) (*domain.Token, error) {
	return nil, nil
}

// ShouldSell implements Decider.
func (d HoldDecider) ShouldSell(_ context.Context, h domain.Holding) (bool, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	held := now().Sub(time.UnixMilli(h.BuyTime))
	return held >= d.SellAfter, nil
}

var _ Decider = HoldDecider{}
