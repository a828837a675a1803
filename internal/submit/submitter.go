package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-engine/internal/observability"
)

// Submitter drives one signed transaction to a terminal Outcome.
// It holds no per-submission state, so concurrent Submit calls are independent.
type Submitter struct {
	ledger Ledger
	cfg    Config
	logger logrus.FieldLogger
}

// NewSubmitter creates a Submitter. A nil config uses DefaultConfig.
func NewSubmitter(ledger Ledger, config *Config) *Submitter {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	cfg = cfg.withDefaults()

	return &Submitter{
		ledger: ledger,
		cfg:    cfg,
		logger: cfg.Logger.WithField("component", "submitter"),
	}
}

// Submit broadcasts payload and waits until it is confirmed, its window
// expires, or ctx is cancelled.
//
// When the initial broadcast fails, Submit returns StatusFailed without
// starting any background work. Otherwise the re-broadcast loop and both
// confirmation channels have stopped before Submit returns.
func (s *Submitter) Submit(ctx context.Context, payload []byte, window ExpiryWindow) (out Outcome) {
	start := time.Now()
	payload = append([]byte(nil), payload...)

	var broadcasts atomic.Int64
	defer func() {
		out.Broadcasts = int(broadcasts.Load())
		out.Duration = time.Since(start)
		observability.RecordSubmission(string(out.Status), out.Channel, out.Duration.Seconds())
	}()

	broadcasts.Add(1)
	signature, err := s.ledger.Broadcast(ctx, payload)
	observability.RecordBroadcast(observability.BroadcastInitial, err)
	if err != nil {
		s.logger.WithError(err).Error("transaction sender failed")
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("broadcast: %w", err)}
	}

	logger := s.logger.WithFields(logrus.Fields{
		"signature":               signature,
		"last_valid_block_height": window.LastValidBlockHeight,
	})
	logger.Debug("transaction broadcast")

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.resubmit(runCtx, payload, signature, &broadcasts)
	}()

	res := s.awaitConfirmation(runCtx, signature, window)
	cancel()

	switch {
	case res.err == nil:
		logger.WithField("channel", res.channel).Info("transaction confirmed")
		return Outcome{Status: StatusConfirmed, Signature: signature, Channel: res.channel}
	case errors.Is(res.err, ErrBlockHeightExceeded):
		logger.Warn("transaction expired: block height exceeded")
		return Outcome{Status: StatusExpired, Signature: signature, Err: res.err}
	default:
		logger.WithError(res.err).Error("transaction confirmation aborted")
		return Outcome{Status: StatusFailed, Signature: signature, Err: res.err}
	}
}
