// Package balance computes the amount a landed transaction actually moved for
// one owner and mint, from the node's pre/post balance snapshots.
package balance

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/observability"
	"solana-swap-engine/internal/solana"
)

// TransactionFetcher retrieves a landed transaction. It returns nil, nil when
// the node does not have it yet.
type TransactionFetcher interface {
	FetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// Config configures a Resolver.
type Config struct {
	// MaxAttempts bounds fetches while the node catches up.
	MaxAttempts int
	// RetryDelay is the wait between fetch attempts.
	RetryDelay time.Duration
	Logger     logrus.FieldLogger
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		RetryDelay:  2 * time.Second,
	}
}

// Resolver computes balance deltas. Failures degrade to a zero delta.
type Resolver struct {
	fetcher TransactionFetcher
	cfg     Config
	logger  logrus.FieldLogger
}

// NewResolver creates a Resolver. A nil config uses DefaultConfig.
func NewResolver(fetcher TransactionFetcher, config *Config) *Resolver {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Resolver{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  cfg.Logger.WithField("component", "balance"),
	}
}

// Delta returns how much of mint the owner gained (positive) or spent
// (negative) in the transaction. The native mint is measured on the fee
// payer's lamport balance. A transaction that cannot be fetched, or has no
// matching balances, yields zero.
func (r *Resolver) Delta(ctx context.Context, signature, mint, owner string) decimal.Decimal {
	logger := r.logger.WithFields(logrus.Fields{
		"signature": signature,
		"mint":      mint,
	})

	tx := r.fetch(ctx, signature, logger)
	if tx == nil || tx.Meta == nil {
		observability.RecordBalanceResolution("unresolved")
		return decimal.Zero
	}

	var delta decimal.Decimal
	var ok bool
	if mint == domain.WSOL {
		delta, ok = NativeDelta(tx.Meta)
	} else {
		delta, ok = TokenDelta(tx.Meta, mint, owner)
	}
	if !ok {
		logger.Warn("no matching balance entries")
		observability.RecordBalanceResolution("unmatched")
		return decimal.Zero
	}

	observability.RecordBalanceResolution("ok")
	return delta
}

func (r *Resolver) fetch(ctx context.Context, signature string, logger logrus.FieldLogger) *solana.Transaction {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		tx, err := r.fetcher.FetchTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx
		}
		if err != nil {
			logger.WithError(err).WithField("attempt", attempt).Debug("fetch transaction failed")
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			logger.WithError(ctx.Err()).Warn("balance lookup cancelled")
			return nil
		case <-time.After(r.cfg.RetryDelay):
		}
	}

	logger.Warn("transaction not available for balance lookup")
	return nil
}

// NativeDelta is the lamport change of the first account (the fee payer) in SOL.
func NativeDelta(meta *solana.TransactionMeta) (decimal.Decimal, bool) {
	if len(meta.PreBalances) == 0 || len(meta.PostBalances) == 0 {
		return decimal.Zero, false
	}
	pre := decimal.NewFromBigInt(new(big.Int).SetUint64(meta.PreBalances[0]), 0)
	post := decimal.NewFromBigInt(new(big.Int).SetUint64(meta.PostBalances[0]), 0)
	return post.Sub(pre).Shift(-domain.SOLDecimals), true
}

// TokenDelta is post minus pre of the first snapshot entry matching mint and
// owner on each side. A missing side counts as zero, since empty token
// accounts are omitted from the snapshots.
func TokenDelta(meta *solana.TransactionMeta, mint, owner string) (decimal.Decimal, bool) {
	pre, preOK := findAmount(meta.PreTokenBalances, mint, owner)
	post, postOK := findAmount(meta.PostTokenBalances, mint, owner)
	if !preOK && !postOK {
		return decimal.Zero, false
	}
	return post.Sub(pre), true
}

func findAmount(balances []solana.TokenBalance, mint, owner string) (decimal.Decimal, bool) {
	for _, b := range balances {
		if b.Mint == mint && b.Owner == owner {
			return uiAmount(b.UITokenAmount), true
		}
	}
	return decimal.Zero, false
}

// uiAmount prefers the exact string form and falls back to scaling the raw amount.
func uiAmount(a solana.UITokenAmount) decimal.Decimal {
	if a.UIAmountString != "" {
		if d, err := decimal.NewFromString(a.UIAmountString); err == nil {
			return d
		}
	}
	if a.Amount != "" {
		if d, err := decimal.NewFromString(a.Amount); err == nil {
			return d.Shift(-a.Decimals)
		}
	}
	if a.UIAmount != nil {
		return decimal.NewFromFloat(*a.UIAmount)
	}
	return decimal.Zero
}
