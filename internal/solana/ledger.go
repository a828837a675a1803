package solana

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-engine/internal/observability"
	"solana-swap-engine/internal/submit"
)

// LedgerConfig configures the Ledger adapter.
type LedgerConfig struct {
	// Commitment is the level treated as confirmed. Defaults to confirmed.
	Commitment Commitment
	// BlockHeightInterval is the expiry watcher's polling interval.
	BlockHeightInterval time.Duration
	// SkipPreflight disables node-side simulation on send. Defaults to true via DefaultLedgerConfig.
	SkipPreflight bool
	Logger        logrus.FieldLogger
}

// DefaultLedgerConfig returns the default adapter configuration.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Commitment:          CommitmentConfirmed,
		BlockHeightInterval: 2 * time.Second,
		SkipPreflight:       true,
	}
}

// Ledger adapts an RPC client and an optional WebSocket client to submit.Ledger.
// It also exposes the simulation and lookup calls the swap pipeline needs.
type Ledger struct {
	rpc    RPCClient
	ws     WSClient
	cfg    LedgerConfig
	logger logrus.FieldLogger
}

// NewLedger creates a Ledger. ws may be nil, in which case the push channel
// only watches block height.
func NewLedger(rpc RPCClient, ws WSClient, config *LedgerConfig) *Ledger {
	cfg := DefaultLedgerConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Commitment == "" {
		cfg.Commitment = CommitmentConfirmed
	}
	if cfg.BlockHeightInterval <= 0 {
		cfg.BlockHeightInterval = DefaultLedgerConfig().BlockHeightInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Ledger{
		rpc:    rpc,
		ws:     ws,
		cfg:    cfg,
		logger: cfg.Logger.WithField("component", "ledger"),
	}
}

// Broadcast sends the payload without preflight.
func (l *Ledger) Broadcast(ctx context.Context, payload []byte) (string, error) {
	defer observeRPC("sendTransaction", time.Now())
	return l.rpc.SendTransaction(ctx, payload, SendOpts{SkipPreflight: l.cfg.SkipPreflight})
}

// PollStatus maps getSignatureStatuses onto submit.SignatureState.
func (l *Ledger) PollStatus(ctx context.Context, signature string) (submit.SignatureState, error) {
	defer observeRPC("getSignatureStatuses", time.Now())
	statuses, err := l.rpc.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return submit.StateUnknown, err
	}
	if len(statuses) == 0 || statuses[0] == nil {
		return submit.StateUnknown, nil
	}
	if reaches(statuses[0].ConfirmationStatus, l.cfg.Commitment) {
		return submit.StateConfirmed, nil
	}
	return submit.StatePending, nil
}

// BlockHeight returns the block height at the configured commitment.
func (l *Ledger) BlockHeight(ctx context.Context) (uint64, error) {
	defer observeRPC("getBlockHeight", time.Now())
	return l.rpc.GetBlockHeight(ctx, l.cfg.Commitment)
}

// WaitForConfirmation waits on a signature subscription and a block height
// watcher. A subscription that fails or closes is logged and the watcher keeps
// running, so losing the socket never produces a terminal result by itself.
func (l *Ledger) WaitForConfirmation(ctx context.Context, signature string, window submit.ExpiryWindow) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := l.logger.WithField("signature", signature)
	results := make(chan error, 2)

	if l.ws != nil {
		notifications, err := l.ws.SubscribeSignature(ctx, signature, l.cfg.Commitment)
		if err != nil {
			logger.WithError(err).Warn("signature subscription failed")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				select {
				case _, ok := <-notifications:
					if !ok {
						if ctx.Err() == nil {
							logger.Warn("signature subscription closed")
						}
						return
					}
					// A landed transaction with an on-chain error is still confirmed here.
					results <- nil
				case <-ctx.Done():
				}
			}()
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := l.watchBlockHeight(ctx, window.LastValidBlockHeight); err != nil {
			results <- err
		}
	}()

	select {
	case err := <-results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watchBlockHeight returns submit.ErrBlockHeightExceeded once the chain passes
// lastValid, or ctx.Err(). Poll failures are retried on the next tick.
func (l *Ledger) watchBlockHeight(ctx context.Context, lastValid uint64) error {
	ticker := time.NewTicker(l.cfg.BlockHeightInterval)
	defer ticker.Stop()

	for {
		height, err := l.BlockHeight(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			l.logger.WithError(err).Debug("block height check failed")
		} else if height > lastValid {
			return submit.ErrBlockHeightExceeded
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Simulate dry-runs the payload against a fresh blockhash at processed commitment.
func (l *Ledger) Simulate(ctx context.Context, payload []byte) (*SimulationResult, error) {
	defer observeRPC("simulateTransaction", time.Now())
	return l.rpc.SimulateTransaction(ctx, payload, SimulateOpts{
		ReplaceRecentBlockhash: true,
		Commitment:             CommitmentProcessed,
	})
}

// FetchTransaction retrieves a landed transaction with its balance snapshots.
// Returns nil, nil when the node does not have it yet.
func (l *Ledger) FetchTransaction(ctx context.Context, signature string) (*Transaction, error) {
	defer observeRPC("getTransaction", time.Now())
	return l.rpc.GetTransaction(ctx, signature, l.cfg.Commitment)
}

// reaches reports whether status is at or beyond target.
func reaches(status, target Commitment) bool {
	rank := func(c Commitment) int {
		switch c {
		case CommitmentProcessed:
			return 1
		case CommitmentConfirmed:
			return 2
		case CommitmentFinalized:
			return 3
		}
		return 0
	}
	return rank(status) > 0 && rank(status) >= rank(target)
}

func observeRPC(method string, start time.Time) {
	observability.RecordRPCLatency(method, time.Since(start).Seconds())
}

var _ submit.Ledger = (*Ledger)(nil)
