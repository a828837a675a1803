// Package stub provides a scripted in-memory chain for tests.
package stub

import (
	"context"
	"errors"
	"sync"
	"time"

	"solana-swap-engine/internal/solana"
)

// ErrNoSocket is returned by SubscribeSignature when NoSocket is set.
var ErrNoSocket = errors.New("stub: websocket unavailable")

// Chain implements solana.RPCClient and solana.WSClient over a controllable
// block height. A broadcast lands at the current height and reaches confirmed
// ConfirmAfter blocks later.
//
// Knobs must be set before the chain is shared with other goroutines.
type Chain struct {
	// ConfirmAfter is the number of blocks between landing and confirmation.
	ConfirmAfter uint64
	// NeverLand accepts broadcasts without ever landing them.
	NeverLand bool
	// HideStatus makes status polls report every signature as unknown.
	HideStatus bool
	// DeadSocket closes every subscription without a notification.
	DeadSocket bool
	// NoSocket makes SubscribeSignature fail.
	NoSocket bool
	// SendHook, when set, is called with the 1-based attempt number; a non-nil
	// error rejects that broadcast.
	SendHook func(attempt int) error
	// StatusErr fails every status poll.
	StatusErr error
	// Simulation is returned by SimulateTransaction; nil means success.
	Simulation  *solana.SimulationResult
	SimulateErr error

	mu          sync.Mutex
	height      uint64
	landed      map[string]uint64
	txs         map[string]*solana.Transaction
	subs        []*signatureSub
	broadcasts  []time.Time
	polls       int
	simulations int
	fetches     int
}

type signatureSub struct {
	signature string
	ch        chan solana.SignatureNotification
	done      bool
}

// NewChain creates a chain at the given block height.
func NewChain(height uint64) *Chain {
	return &Chain{
		height: height,
		landed: make(map[string]uint64),
		txs:    make(map[string]*solana.Transaction),
	}
}

// Height returns the current block height.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Advance produces n blocks.
func (c *Chain) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += n
	c.notifyLocked()
}

// Run produces one block every blockTime until ctx is done.
func (c *Chain) Run(ctx context.Context, blockTime time.Duration) {
	ticker := time.NewTicker(blockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Advance(1)
		}
	}
}

// SetTransaction registers the transaction returned by GetTransaction.
func (c *Chain) SetTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs[tx.Signature] = tx
}

// Broadcasts returns the number of send attempts, including rejected ones.
func (c *Chain) Broadcasts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.broadcasts)
}

// BroadcastTimes returns when each send attempt arrived.
func (c *Chain) BroadcastTimes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.broadcasts...)
}

// Polls returns the number of status polls.
func (c *Chain) Polls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

// Simulations returns the number of simulateTransaction calls.
func (c *Chain) Simulations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simulations
}

// Fetches returns the number of getTransaction calls.
func (c *Chain) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Subscriptions returns the number of live signature subscriptions.
func (c *Chain) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// SendTransaction records the attempt and lands the transaction.
func (c *Chain) SendTransaction(_ context.Context, payload []byte, _ solana.SendOpts) (string, error) {
	tx, err := solana.DecodeTransaction(payload)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.broadcasts = append(c.broadcasts, time.Now())
	if c.SendHook != nil {
		if err := c.SendHook(len(c.broadcasts)); err != nil {
			return "", err
		}
	}

	sig := tx.Signature()
	if _, ok := c.landed[sig]; !ok && !c.NeverLand {
		c.landed[sig] = c.height
		c.notifyLocked()
	}
	return sig, nil
}

// GetSignatureStatuses reports processed until ConfirmAfter blocks have passed.
func (c *Chain) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.polls++
	if c.StatusErr != nil {
		return nil, c.StatusErr
	}

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		at, ok := c.landed[sig]
		if !ok || c.HideStatus {
			continue
		}
		status := solana.CommitmentProcessed
		if c.confirmedLocked(sig) {
			status = solana.CommitmentConfirmed
		}
		out[i] = &solana.SignatureStatus{Slot: int64(at), ConfirmationStatus: status}
	}
	return out, nil
}

// SimulateTransaction returns the configured simulation result.
func (c *Chain) SimulateTransaction(_ context.Context, _ []byte, _ solana.SimulateOpts) (*solana.SimulationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.simulations++
	if c.SimulateErr != nil {
		return nil, c.SimulateErr
	}
	if c.Simulation != nil {
		res := *c.Simulation
		return &res, nil
	}
	return &solana.SimulationResult{}, nil
}

// GetTransaction returns a registered transaction, or an empty successful one
// for confirmed signatures. Returns nil, nil otherwise.
func (c *Chain) GetTransaction(_ context.Context, signature string, _ solana.Commitment) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetches++
	if !c.confirmedLocked(signature) {
		return nil, nil
	}
	if tx, ok := c.txs[signature]; ok {
		return tx, nil
	}
	return &solana.Transaction{
		Slot:      int64(c.landed[signature]),
		Signature: signature,
		Meta:      &solana.TransactionMeta{},
	}, nil
}

// GetBlockHeight returns the current block height.
func (c *Chain) GetBlockHeight(_ context.Context, _ solana.Commitment) (uint64, error) {
	return c.Height(), nil
}

// SubscribeSignature notifies once the signature is confirmed.
func (c *Chain) SubscribeSignature(ctx context.Context, signature string, _ solana.Commitment) (<-chan solana.SignatureNotification, error) {
	if c.NoSocket {
		return nil, ErrNoSocket
	}

	ch := make(chan solana.SignatureNotification, 1)
	if c.DeadSocket {
		close(ch)
		return ch, nil
	}

	sub := &signatureSub{signature: signature, ch: ch}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.notifyLocked()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if !sub.done {
			sub.done = true
			close(sub.ch)
			c.pruneLocked()
		}
	}()

	return ch, nil
}

// Close implements solana.WSClient.
func (c *Chain) Close() error {
	return nil
}

func (c *Chain) confirmedLocked(signature string) bool {
	at, ok := c.landed[signature]
	return ok && c.height >= at+c.ConfirmAfter
}

func (c *Chain) notifyLocked() {
	for _, sub := range c.subs {
		if sub.done || !c.confirmedLocked(sub.signature) {
			continue
		}
		sub.ch <- solana.SignatureNotification{
			Signature: sub.signature,
			Slot:      int64(c.landed[sub.signature]),
		}
		sub.done = true
		close(sub.ch)
	}
	c.pruneLocked()
}

func (c *Chain) pruneLocked() {
	live := c.subs[:0]
	for _, sub := range c.subs {
		if !sub.done {
			live = append(live, sub)
		}
	}
	c.subs = live
}

var (
	_ solana.RPCClient = (*Chain)(nil)
	_ solana.WSClient  = (*Chain)(nil)
)
