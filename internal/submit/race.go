package submit

import (
	"context"
	"errors"
	"sync"
	"time"

	"solana-swap-engine/internal/observability"
)

// raceResult is what a confirmation channel reports. err is nil when confirmed.
type raceResult struct {
	channel string
	err     error
}

// awaitConfirmation races the push and pull channels. It returns when either
// reports confirmation or expiry, or when ctx is done. Both channels have
// returned by the time awaitConfirmation does.
//
// A channel that dies silently never resolves the race.
func (s *Submitter) awaitConfirmation(ctx context.Context, signature string, window ExpiryWindow) raceResult {
	raceCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	// Each channel reports at most once.
	results := make(chan raceResult, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.pushChannel(raceCtx, signature, window, results)
	}()
	go func() {
		defer wg.Done()
		s.pullChannel(raceCtx, signature, window, results)
	}()

	select {
	case r := <-results:
		if errors.Is(r.err, ErrBlockHeightExceeded) {
			return s.lastLook(raceCtx, signature, r)
		}
		return r
	case <-ctx.Done():
		return raceResult{err: ctx.Err()}
	}
}

// pushChannel waits on the ledger's confirmation notification.
func (s *Submitter) pushChannel(ctx context.Context, signature string, window ExpiryWindow, results chan<- raceResult) {
	err := s.ledger.WaitForConfirmation(ctx, signature, window)
	switch {
	case ctx.Err() != nil:
		return
	case err == nil, errors.Is(err, ErrBlockHeightExceeded):
		results <- raceResult{channel: ChannelPush, err: err}
	default:
		s.logger.WithField("signature", signature).WithError(err).
			Warn("confirmation subscription lost, relying on status polling")
	}
}

// pullChannel polls the signature status every PollInterval. When the status is
// not confirmed it also checks the block height against the window.
func (s *Submitter) pullChannel(ctx context.Context, signature string, window ExpiryWindow, results chan<- raceResult) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	logger := s.logger.WithField("signature", signature)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		state, err := s.ledger.PollStatus(ctx, signature)
		if ctx.Err() != nil {
			return
		}
		observability.RecordStatusPoll(err)
		if err != nil {
			logger.WithError(err).Debug("status poll failed")
			continue
		}
		if state == StateConfirmed {
			results <- raceResult{channel: ChannelPull}
			return
		}

		height, err := s.ledger.BlockHeight(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.WithError(err).Debug("block height poll failed")
			continue
		}
		if height > window.LastValidBlockHeight {
			results <- raceResult{channel: ChannelPull, err: ErrBlockHeightExceeded}
			return
		}
	}
}

// lastLook polls once more after expiry was observed, since the transaction
// may have landed in the final valid block.
func (s *Submitter) lastLook(ctx context.Context, signature string, expired raceResult) raceResult {
	state, err := s.ledger.PollStatus(ctx, signature)
	if err == nil && state == StateConfirmed {
		return raceResult{channel: ChannelPull}
	}
	return expired
}
