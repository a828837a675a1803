// Package bot runs the buy and sell loops around the swap pipeline.
package bot

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/observability"
	"solana-swap-engine/internal/storage"
	"solana-swap-engine/internal/swap"
)

// Trader executes swaps. A nil result means nothing changed.
type Trader interface {
	Buy(ctx context.Context, req swap.BuyRequest) *domain.Holding
	Sell(ctx context.Context, req swap.SellRequest) *domain.HistoryEntry
}

// Config configures a Runner.
type Config struct {
	BuyAmountSOL    decimal.Decimal
	BuyInterval     time.Duration
	SellInterval    time.Duration
	BuySlippageBps  int
	SellSlippageBps int
	Logger          logrus.FieldLogger
}

// Runner owns the holdings and drives trades from the Decider.
type Runner struct {
	trader   Trader
	decider  Decider
	holdings storage.HoldingStore
	history  storage.HistoryStore
	cfg      Config
	logger   logrus.FieldLogger
}

// NewRunner creates a Runner.
func NewRunner(trader Trader, decider Decider, holdings storage.HoldingStore, history storage.HistoryStore, cfg Config) *Runner {
	if cfg.BuyInterval <= 0 {
		cfg.BuyInterval = 5 * time.Second
	}
	if cfg.SellInterval <= 0 {
		cfg.SellInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Runner{
		trader:   trader,
		decider:  decider,
		holdings: holdings,
		history:  history,
		cfg:      cfg,
		logger:   cfg.Logger.WithField("component", "bot"),
	}
}

// Run drives the buy and sell loops until ctx is cancelled. In-flight swaps
// see the same cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("bot started")
	defer r.logger.Info("bot stopped")

	r.refreshOpenHoldings(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.loop(gctx, r.cfg.BuyInterval, r.buyOnce)
		return nil
	})
	g.Go(func() error {
		r.loop(gctx, r.cfg.SellInterval, r.sellOnce)
		return nil
	})
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, interval time.Duration, step func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		step(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// buyOnce asks the decider for a token and buys it.
func (r *Runner) buyOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	token, err := r.decider.NextBuy(ctx)
	if err != nil {
		r.logger.WithError(err).Error("buy decision failed")
		return
	}
	if token == nil {
		return
	}

	holding := r.trader.Buy(ctx, swap.BuyRequest{
		Token:       *token,
		AmountSOL:   r.cfg.BuyAmountSOL,
		SlippageBps: r.cfg.BuySlippageBps,
	})
	if holding == nil {
		return
	}

	// The swap happened; persist it even if shutdown began meanwhile.
	if err := r.holdings.Insert(context.WithoutCancel(ctx), holding); err != nil {
		r.logger.WithError(err).WithField("signature", holding.BuySignature).Error("failed to store holding")
	}
	r.refreshOpenHoldings(ctx)
}

// sellOnce sells every holding the decider marks, concurrently. Each sale is
// independent; one failing does not affect the others.
func (r *Runner) sellOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	holdings, err := r.holdings.GetAll(ctx)
	if err != nil {
		r.logger.WithError(err).Error("failed to list holdings")
		return
	}

	var g errgroup.Group
	for _, h := range holdings {
		sell, err := r.decider.ShouldSell(ctx, *h)
		if err != nil {
			r.logger.WithError(err).WithField("holding", h.ID).Error("sell decision failed")
			continue
		}
		if !sell {
			continue
		}

		h := h
		g.Go(func() error {
			r.sell(ctx, *h)
			return nil
		})
	}
	_ = g.Wait()

	r.refreshOpenHoldings(ctx)
}

func (r *Runner) sell(ctx context.Context, h domain.Holding) {
	entry := r.trader.Sell(ctx, swap.SellRequest{Holding: h, SlippageBps: r.cfg.SellSlippageBps})
	if entry == nil {
		return
	}

	persistCtx := context.WithoutCancel(ctx)
	logger := r.logger.WithFields(logrus.Fields{"holding": h.ID, "signature": entry.SellSignature})
	if err := r.history.Insert(persistCtx, entry); err != nil {
		logger.WithError(err).Error("failed to store history entry")
	}
	if err := r.holdings.Delete(persistCtx, h.ID); err != nil {
		logger.WithError(err).Error("failed to remove sold holding")
	}
}

func (r *Runner) refreshOpenHoldings(ctx context.Context) {
	holdings, err := r.holdings.GetAll(context.WithoutCancel(ctx))
	if err != nil {
		return
	}
	observability.UpdateOpenHoldings(len(holdings))
}
