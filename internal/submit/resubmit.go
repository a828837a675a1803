package submit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-engine/internal/observability"
)

// resubmit re-broadcasts payload every ResubmitInterval until ctx is done.
// Failures are logged and swallowed; the next tick may still land.
func (s *Submitter) resubmit(ctx context.Context, payload []byte, signature string, broadcasts *atomic.Int64) {
	ticker := time.NewTicker(s.cfg.ResubmitInterval)
	defer ticker.Stop()

	logger := s.logger.WithField("signature", signature)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// select picks randomly when both are ready
		if ctx.Err() != nil {
			return
		}

		broadcasts.Add(1)
		sig, err := s.ledger.Broadcast(ctx, payload)
		if ctx.Err() != nil {
			return
		}
		observability.RecordBroadcast(observability.BroadcastResend, err)
		if err != nil {
			logger.WithError(err).Warn("failed to resend transaction")
			continue
		}
		if sig != signature {
			logger.WithFields(logrus.Fields{"resend_signature": sig}).
				Error("resend returned a different signature")
		}
	}
}
