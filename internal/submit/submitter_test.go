package submit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-engine/internal/solana"
	"solana-swap-engine/internal/solana/stub"
	"solana-swap-engine/internal/submit"
)

const (
	blockTime        = 5 * time.Millisecond
	resubmitInterval = 20 * time.Millisecond
	pollInterval     = 10 * time.Millisecond
)

func newSubmitter(chain *stub.Chain, ws solana.WSClient) *submit.Submitter {
	ledger := solana.NewLedger(chain, ws, &solana.LedgerConfig{
		Commitment:          solana.CommitmentConfirmed,
		BlockHeightInterval: pollInterval,
		SkipPreflight:       true,
	})
	return submit.NewSubmitter(ledger, &submit.Config{
		ResubmitInterval: resubmitInterval,
		PollInterval:     pollInterval,
	})
}

func runChain(t *testing.T, chain *stub.Chain) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		chain.Run(ctx, blockTime)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestSubmit_ConfirmedViaPullWhenSocketDead(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.ConfirmAfter = 3
	chain.DeadSocket = true
	runChain(t, chain)

	payload, sig := stub.SignedPayload(1)
	out := newSubmitter(chain, chain).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 150,
	})

	require.Equal(t, submit.StatusConfirmed, out.Status, "err: %v", out.Err)
	assert.Equal(t, sig, out.Signature)
	assert.Equal(t, submit.ChannelPull, out.Channel)
	assert.NoError(t, out.Err)
	assert.True(t, out.Confirmed())
}

func TestSubmit_ConfirmedViaPushWhenStatusHidden(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.ConfirmAfter = 3
	chain.HideStatus = true
	runChain(t, chain)

	payload, sig := stub.SignedPayload(2)
	out := newSubmitter(chain, chain).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 150,
	})

	require.Equal(t, submit.StatusConfirmed, out.Status, "err: %v", out.Err)
	assert.Equal(t, sig, out.Signature)
	assert.Equal(t, submit.ChannelPush, out.Channel)
}

func TestSubmit_ConfirmedWithoutWebSocket(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.ConfirmAfter = 2
	runChain(t, chain)

	payload, _ := stub.SignedPayload(3)
	out := newSubmitter(chain, nil).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 150,
	})

	require.Equal(t, submit.StatusConfirmed, out.Status, "err: %v", out.Err)
	assert.Equal(t, submit.ChannelPull, out.Channel)
}

func TestSubmit_ExpiredNotFailed(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.NeverLand = true
	runChain(t, chain)

	payload, sig := stub.SignedPayload(4)
	out := newSubmitter(chain, chain).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 10,
	})

	assert.Equal(t, submit.StatusExpired, out.Status)
	assert.ErrorIs(t, out.Err, submit.ErrBlockHeightExceeded)
	assert.Equal(t, sig, out.Signature)
	assert.False(t, out.Confirmed())
}

func TestSubmit_ExpiredWithDeadSocket(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.NeverLand = true
	chain.DeadSocket = true
	runChain(t, chain)

	payload, _ := stub.SignedPayload(5)
	out := newSubmitter(chain, chain).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 10,
	})

	assert.Equal(t, submit.StatusExpired, out.Status)
}

func TestSubmit_InitialBroadcastFailure(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.SendHook = func(attempt int) error {
		return errors.New("connection refused")
	}

	payload, _ := stub.SignedPayload(6)
	out := newSubmitter(chain, chain).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 150,
	})

	assert.Equal(t, submit.StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assert.Empty(t, out.Signature)
	assert.Equal(t, 1, out.Broadcasts)

	// No background work was started.
	time.Sleep(3 * resubmitInterval)
	assert.Equal(t, 1, chain.Broadcasts())
	assert.Equal(t, 0, chain.Polls())
	assert.Equal(t, 0, chain.Subscriptions())
}

func TestSubmit_ResendFailuresAreSwallowed(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.ConfirmAfter = 12
	chain.SendHook = func(attempt int) error {
		if attempt > 1 {
			return errors.New("rate limited")
		}
		return nil
	}
	runChain(t, chain)

	payload, _ := stub.SignedPayload(7)
	out := newSubmitter(chain, chain).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 150,
	})

	require.Equal(t, submit.StatusConfirmed, out.Status, "err: %v", out.Err)
	assert.Greater(t, out.Broadcasts, 1, "resends kept going after failures")
}

func TestSubmit_BroadcastCadenceAndStop(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.ConfirmAfter = 20
	runChain(t, chain)

	payload, _ := stub.SignedPayload(8)
	start := time.Now()
	out := newSubmitter(chain, chain).Submit(context.Background(), payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 500,
	})
	elapsed := time.Since(start)

	require.Equal(t, submit.StatusConfirmed, out.Status, "err: %v", out.Err)

	maxBroadcasts := int(elapsed/resubmitInterval) + 1
	assert.LessOrEqual(t, out.Broadcasts, maxBroadcasts)
	assert.GreaterOrEqual(t, out.Broadcasts, 2)
	assert.Equal(t, out.Broadcasts, chain.Broadcasts())

	// Nothing is sent or polled once the outcome exists.
	polls := chain.Polls()
	time.Sleep(3 * resubmitInterval)
	assert.Equal(t, out.Broadcasts, chain.Broadcasts())
	assert.Equal(t, polls, chain.Polls())

	times := chain.BroadcastTimes()
	for _, ts := range times {
		assert.False(t, ts.After(start.Add(elapsed)), "broadcast after outcome")
	}
}

func TestSubmit_ResendsCarrySameSignature(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.ConfirmAfter = 15

	var mu sync.Mutex
	var sigs []string
	recorder := &recordingLedger{
		Ledger: solana.NewLedger(chain, chain, &solana.LedgerConfig{
			Commitment:          solana.CommitmentConfirmed,
			BlockHeightInterval: pollInterval,
			SkipPreflight:       true,
		}),
		onBroadcast: func(sig string) {
			mu.Lock()
			sigs = append(sigs, sig)
			mu.Unlock()
		},
	}
	runChain(t, chain)

	payload, sig := stub.SignedPayload(9)
	out := submit.NewSubmitter(recorder, &submit.Config{
		ResubmitInterval: resubmitInterval,
		PollInterval:     pollInterval,
	}).Submit(context.Background(), payload, submit.ExpiryWindow{LastValidBlockHeight: chain.Height() + 500})

	require.Equal(t, submit.StatusConfirmed, out.Status, "err: %v", out.Err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(sigs), 2)
	for _, s := range sigs {
		assert.Equal(t, sig, s)
	}
}

func TestSubmit_CallerCancelKeepsSignature(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.NeverLand = true
	runChain(t, chain)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	payload, sig := stub.SignedPayload(10)
	out := newSubmitter(chain, chain).Submit(ctx, payload, submit.ExpiryWindow{
		LastValidBlockHeight: chain.Height() + 10000,
	})

	assert.Equal(t, submit.StatusFailed, out.Status)
	assert.Equal(t, sig, out.Signature)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestSubmit_LastLookAfterExpiry(t *testing.T) {
	chain := stub.NewChain(1001)
	window := submit.ExpiryWindow{LastValidBlockHeight: 1000}

	ledger := &revealingLedger{
		Ledger: solana.NewLedger(chain, chain, &solana.LedgerConfig{
			Commitment:          solana.CommitmentConfirmed,
			BlockHeightInterval: pollInterval,
			SkipPreflight:       true,
		}),
	}

	payload, _ := stub.SignedPayload(11)
	out := submit.NewSubmitter(ledger, &submit.Config{
		ResubmitInterval: resubmitInterval,
		PollInterval:     pollInterval,
	}).Submit(context.Background(), payload, window)

	assert.Equal(t, submit.StatusConfirmed, out.Status)
}

func TestSubmit_ConcurrentSubmissionsAreIndependent(t *testing.T) {
	chain := stub.NewChain(1000)
	chain.ConfirmAfter = 3
	runChain(t, chain)

	submitter := newSubmitter(chain, chain)

	const n = 8
	outcomes := make([]submit.Outcome, n)
	sigs := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		payload, sig := stub.SignedPayload(byte(100 + i))
		sigs[i] = sig
		wg.Add(1)
		go func(i int, payload []byte) {
			defer wg.Done()
			outcomes[i] = submitter.Submit(context.Background(), payload, submit.ExpiryWindow{
				LastValidBlockHeight: chain.Height() + 150,
			})
		}(i, payload)
	}
	wg.Wait()

	for i, out := range outcomes {
		assert.Equal(t, submit.StatusConfirmed, out.Status, fmt.Sprintf("submission %d: %v", i, out.Err))
		assert.Equal(t, sigs[i], out.Signature)
	}
}

// recordingLedger observes every broadcast signature.
type recordingLedger struct {
	*solana.Ledger
	onBroadcast func(string)
}

func (l *recordingLedger) Broadcast(ctx context.Context, payload []byte) (string, error) {
	sig, err := l.Ledger.Broadcast(ctx, payload)
	if err == nil {
		l.onBroadcast(sig)
	}
	return sig, err
}

// revealingLedger hides the confirmed status until the first time the
// chain is seen past the window, modelling a transaction that landed in the
// last valid block.
type revealingLedger struct {
	*solana.Ledger
	mu      sync.Mutex
	checked bool
}

func (l *revealingLedger) BlockHeight(ctx context.Context) (uint64, error) {
	h, err := l.Ledger.BlockHeight(ctx)
	l.mu.Lock()
	l.checked = true
	l.mu.Unlock()
	return h, err
}

func (l *revealingLedger) PollStatus(ctx context.Context, signature string) (submit.SignatureState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.checked {
		return submit.StatePending, nil
	}
	return submit.StateConfirmed, nil
}

func (l *revealingLedger) WaitForConfirmation(ctx context.Context, _ string, _ submit.ExpiryWindow) error {
	<-ctx.Done()
	return ctx.Err()
}
