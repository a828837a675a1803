// Package swap turns a buy or sell decision into a confirmed on-chain swap:
// quote, build, sign, simulate, submit, verify, then report the amounts that
// actually moved.
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-swap-engine/internal/domain"
	"solana-swap-engine/internal/jupiter"
	"solana-swap-engine/internal/observability"
	"solana-swap-engine/internal/solana"
	"solana-swap-engine/internal/storage"
	"solana-swap-engine/internal/submit"
)

var (
	// ErrSimulationRejected is returned when the dry run reports an error.
	// Nothing has been broadcast when it occurs.
	ErrSimulationRejected = errors.New("simulation rejected")

	// ErrTransactionFailed is returned when a confirmed transaction carries an
	// execution error, or cannot be found after confirmation.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Quoter finds routes and builds unsigned swap transactions.
type Quoter interface {
	GetQuote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.Quote, error)
	BuildSwap(ctx context.Context, quote *jupiter.Quote, owner string) (*jupiter.SwapTransaction, error)
}

// Network is the part of the ledger used around a submission.
type Network interface {
	Simulate(ctx context.Context, payload []byte) (*solana.SimulationResult, error)
	FetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// Submitter gets a signed payload confirmed.
type Submitter interface {
	Submit(ctx context.Context, payload []byte, window submit.ExpiryWindow) submit.Outcome
}

// AmountResolver reports how much of a mint an owner gained in a transaction.
type AmountResolver interface {
	Delta(ctx context.Context, signature, mint, owner string) decimal.Decimal
}

// Wallet signs swaps and owns the traded balances.
type Wallet interface {
	solana.Signer
	Address() string
}

// Deps are the collaborators of a Pipeline. Submissions is optional.
type Deps struct {
	Quoter      Quoter
	Network     Network
	Submitter   Submitter
	Resolver    AmountResolver
	Wallet      Wallet
	Submissions storage.SubmissionStore
}

// Config configures a Pipeline.
type Config struct {
	// PostCheckAttempts bounds lookups of a confirmed transaction's result.
	PostCheckAttempts int
	// PostCheckDelay is the wait between post-check lookups.
	PostCheckDelay time.Duration
	Logger         logrus.FieldLogger
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		PostCheckAttempts: 10,
		PostCheckDelay:    3 * time.Second,
	}
}

// Pipeline executes swaps for one wallet. It holds no per-trade state, so
// concurrent Buy and Sell calls are independent.
type Pipeline struct {
	deps   Deps
	cfg    Config
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewPipeline creates a Pipeline. A nil config uses DefaultConfig.
func NewPipeline(deps Deps, config *Config) *Pipeline {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.PostCheckAttempts <= 0 {
		cfg.PostCheckAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Pipeline{
		deps:   deps,
		cfg:    cfg,
		logger: cfg.Logger.WithField("component", "swap"),
		now:    time.Now,
	}
}

// BuyRequest spends AmountSOL on Token.
type BuyRequest struct {
	Token       domain.Token
	AmountSOL   decimal.Decimal
	SlippageBps int
}

// SellRequest sells the whole of Holding for SOL.
type SellRequest struct {
	Holding     domain.Holding
	SlippageBps int
}

// Buy swaps SOL into the token and returns the new holding, or nil when the
// swap did not happen. Failures are logged, never returned.
func (p *Pipeline) Buy(ctx context.Context, req BuyRequest) (holding *domain.Holding) {
	logger := p.logger.WithFields(logrus.Fields{
		"side":   domain.SideBuy,
		"mint":   req.Token.Address,
		"symbol": req.Token.Symbol,
		"amount": req.AmountSOL.String(),
	})
	defer p.guard(logger, domain.SideBuy, func() bool { return holding != nil })

	lamports := req.AmountSOL.Shift(domain.SOLDecimals).Floor()
	if !lamports.IsPositive() {
		logger.Error("buy failed: amount rounds to zero lamports")
		return nil
	}

	res, err := p.execute(ctx, logger, domain.SideBuy, jupiter.QuoteRequest{
		InputMint:   domain.WSOL,
		OutputMint:  req.Token.Address,
		Amount:      uint64(lamports.IntPart()),
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		logger.WithError(err).Error("buy failed")
		return nil
	}

	amount := p.deps.Resolver.Delta(ctx, res.signature, req.Token.Address, p.deps.Wallet.Address())
	quoted := quotedAmount(res.quote, req.Token.Decimals)

	logger.WithFields(logrus.Fields{
		"signature": res.signature,
		"received":  amount.String(),
		"quoted":    quoted.String(),
	}).Infof("bought %s [#%s] %s for %s SOL", amount, quoted, req.Token.Symbol, req.AmountSOL)

	return &domain.Holding{
		ID:           uuid.NewString(),
		Address:      req.Token.Address,
		Name:         req.Token.Name,
		Symbol:       req.Token.Symbol,
		Decimals:     req.Token.Decimals,
		CurrentPrice: req.Token.Price,
		BuyPrice:     req.Token.Price,
		Amount:       amount,
		BuySolAmount: req.AmountSOL,
		BuyTime:      p.now().UnixMilli(),
		Gain:         decimal.Zero,
		BuySignature: res.signature,
	}
}

// Sell swaps the held token back into SOL and returns the closed history
// entry, or nil when the swap did not happen. Failures are logged, never returned.
func (p *Pipeline) Sell(ctx context.Context, req SellRequest) (entry *domain.HistoryEntry) {
	h := req.Holding
	logger := p.logger.WithFields(logrus.Fields{
		"side":    domain.SideSell,
		"mint":    h.Address,
		"symbol":  h.Symbol,
		"holding": h.ID,
		"amount":  h.Amount.String(),
	})
	defer p.guard(logger, domain.SideSell, func() bool { return entry != nil })

	units, ok := SellUnits(h.Amount, h.Decimals)
	if !ok {
		logger.Error("sell failed: amount rounds to zero base units")
		return nil
	}

	res, err := p.execute(ctx, logger, domain.SideSell, jupiter.QuoteRequest{
		InputMint:   h.Address,
		OutputMint:  domain.WSOL,
		Amount:      units,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		logger.WithError(err).Error("sell failed")
		return nil
	}

	received := p.deps.Resolver.Delta(ctx, res.signature, domain.WSOL, p.deps.Wallet.Address())
	quoted := quotedAmount(res.quote, domain.SOLDecimals)

	logger.WithFields(logrus.Fields{
		"signature": res.signature,
		"received":  received.String(),
		"quoted":    quoted.String(),
	}).Infof("sold %s %s for %s [#%s] SOL", h.Amount, h.Symbol, received, quoted)

	return &domain.HistoryEntry{
		ID:            uuid.NewString(),
		HoldingID:     h.ID,
		Address:       h.Address,
		Name:          h.Name,
		Symbol:        h.Symbol,
		Decimals:      h.Decimals,
		BuyPrice:      h.BuyPrice,
		BuySolAmount:  h.BuySolAmount,
		BuyTime:       h.BuyTime,
		Amount:        h.Amount,
		SellPrice:     h.CurrentPrice,
		SellSolAmount: received,
		SellTime:      p.now().UnixMilli(),
		Gain:          domain.RealizedGain(h.BuySolAmount, received, h.Gain),
		BuySignature:  h.BuySignature,
		SellSignature: res.signature,
	}
}

// SellUnits floors a token amount to whole base units. It reports false when
// nothing remains to sell.
func SellUnits(amount decimal.Decimal, decimals int32) (uint64, bool) {
	units := amount.Shift(decimals).Floor()
	if !units.IsPositive() {
		return 0, false
	}
	return uint64(units.IntPart()), true
}

// guard is deferred at the Buy and Sell boundary. It turns a panic into a
// logged failure and records the swap result.
func (p *Pipeline) guard(logger logrus.FieldLogger, side domain.Side, ok func() bool) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).Error("swap aborted")
		observability.RecordSwap(string(side), "error")
		return
	}
	if ok() {
		observability.RecordSwap(string(side), "ok")
	} else {
		observability.RecordSwap(string(side), "error")
	}
}

func quotedAmount(q *jupiter.Quote, decimals int32) decimal.Decimal {
	out, err := decimal.NewFromString(q.OutAmount)
	if err != nil {
		return decimal.Zero
	}
	return out.Shift(-decimals)
}

type executed struct {
	signature string
	quote     *jupiter.Quote
}

// execute runs one swap through to a verified on-chain success.
func (p *Pipeline) execute(ctx context.Context, logger logrus.FieldLogger, side domain.Side, req jupiter.QuoteRequest) (*executed, error) {
	quote, err := p.deps.Quoter.GetQuote(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	swapTx, err := p.deps.Quoter.BuildSwap(ctx, quote, p.deps.Wallet.Address())
	if err != nil {
		return nil, fmt.Errorf("build swap: %w", err)
	}

	tx, err := solana.DecodeTransactionBase64(swapTx.Transaction)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	if err := tx.Sign(p.deps.Wallet); err != nil {
		return nil, fmt.Errorf("sign swap transaction: %w", err)
	}
	blockhash, err := tx.RecentBlockhash()
	if err != nil {
		return nil, fmt.Errorf("read blockhash: %w", err)
	}
	payload := tx.Serialize()

	if err := p.simulate(ctx, payload); err != nil {
		return nil, err
	}

	window := submit.ExpiryWindow{
		Blockhash:            blockhash,
		LastValidBlockHeight: swapTx.LastValidBlockHeight,
	}
	started := p.now()
	outcome := p.deps.Submitter.Submit(ctx, payload, window)
	p.recordSubmission(ctx, logger, side, req, window, started, outcome)

	if !outcome.Confirmed() {
		return nil, fmt.Errorf("submission %s: %w", outcome.Status, outcome.Err)
	}

	if err := p.postCheck(ctx, outcome.Signature); err != nil {
		return nil, err
	}

	return &executed{signature: outcome.Signature, quote: quote}, nil
}

func (p *Pipeline) simulate(ctx context.Context, payload []byte) error {
	result, err := p.deps.Network.Simulate(ctx, payload)
	if err != nil {
		observability.RecordSimulation(false)
		return fmt.Errorf("%w: %v", ErrSimulationRejected, err)
	}
	if result.Err != nil {
		observability.RecordSimulation(false)
		return fmt.Errorf("%w: %v: %v", ErrSimulationRejected, result.Err, result.Logs)
	}
	observability.RecordSimulation(true)
	return nil
}

// postCheck verifies that the confirmed transaction executed without error.
func (p *Pipeline) postCheck(ctx context.Context, signature string) error {
	for attempt := 1; attempt <= p.cfg.PostCheckAttempts; attempt++ {
		tx, err := p.deps.Network.FetchTransaction(ctx, signature)
		switch {
		case err != nil:
			p.logger.WithError(err).WithField("signature", signature).Debug("post-check fetch failed")
		case tx != nil && tx.Meta != nil:
			if tx.Meta.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, tx.Meta.Err)
			}
			return nil
		}

		if attempt == p.cfg.PostCheckAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.PostCheckDelay):
		}
	}
	return fmt.Errorf("%w: %s: not found after confirmation", ErrTransactionFailed, signature)
}

func (p *Pipeline) recordSubmission(ctx context.Context, logger logrus.FieldLogger, side domain.Side, req jupiter.QuoteRequest,
	window submit.ExpiryWindow, started time.Time, outcome submit.Outcome) {
	if p.deps.Submissions == nil || outcome.Signature == "" {
		return
	}

	mint := req.OutputMint
	if side == domain.SideSell {
		mint = req.InputMint
	}
	rec := &domain.SubmissionRecord{
		Signature:            outcome.Signature,
		Side:                 side,
		Mint:                 mint,
		Status:               string(outcome.Status),
		Broadcasts:           outcome.Broadcasts,
		LastValidBlockHeight: window.LastValidBlockHeight,
		StartedAt:            started.UnixMilli(),
		FinishedAt:           started.Add(outcome.Duration).UnixMilli(),
	}
	if outcome.Err != nil {
		rec.Reason = outcome.Err.Error()
	}

	if err := p.deps.Submissions.Insert(context.WithoutCancel(ctx), rec); err != nil {
		logger.WithError(err).WithField("signature", outcome.Signature).Warn("failed to record submission")
	}
}
