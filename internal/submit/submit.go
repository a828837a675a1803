// Package submit gets a signed transaction confirmed before its blockhash expires.
//
// A Submitter broadcasts the payload once, keeps re-broadcasting it in the
// background, and races a push confirmation (subscription) against a pull
// confirmation (status polling). Every Submit call yields exactly one Outcome.
package submit

import (
	"context"
	"errors"
	"time"
)

// ErrBlockHeightExceeded reports that the chain passed the window's last valid
// block height without confirming the transaction.
var ErrBlockHeightExceeded = errors.New("block height exceeded")

// ExpiryWindow bounds the life of a signed transaction.
type ExpiryWindow struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignatureState is the coarse state reported by a status poll.
type SignatureState int

const (
	StateUnknown SignatureState = iota // not seen by the node
	StatePending                       // processed but below the target commitment
	StateConfirmed
)

func (s SignatureState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Ledger is the narrow network surface the engine depends on.
type Ledger interface {
	// Broadcast sends the payload and returns its signature.
	Broadcast(ctx context.Context, payload []byte) (string, error)

	// PollStatus reports the current state of signature.
	PollStatus(ctx context.Context, signature string) (SignatureState, error)

	// WaitForConfirmation blocks until signature is confirmed (nil), the window
	// expires (ErrBlockHeightExceeded) or ctx is done. Any other error means the
	// notification channel was lost.
	WaitForConfirmation(ctx context.Context, signature string, window ExpiryWindow) error

	// BlockHeight returns the chain's current block height.
	BlockHeight(ctx context.Context) (uint64, error)
}

// Status is the terminal classification of a submission.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusExpired   Status = "EXPIRED"
	StatusFailed    Status = "FAILED"
)

// Channel names which confirmation source resolved the race.
const (
	ChannelPush = "push"
	ChannelPull = "pull"
)

// Outcome is the single result of one Submit call.
type Outcome struct {
	Status Status
	// Signature is set whenever the initial broadcast succeeded, including
	// expired and failed outcomes, so callers can look the transaction up later.
	Signature string
	// Err is the failure reason for StatusFailed and ErrBlockHeightExceeded for StatusExpired.
	Err        error
	Channel    string // confirming channel, empty unless confirmed
	Broadcasts int
	Duration   time.Duration
}

// Confirmed reports whether the transaction landed.
func (o Outcome) Confirmed() bool {
	return o.Status == StatusConfirmed
}
