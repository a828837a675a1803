package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to a one-shot notification for signature reaching commitment.
	// The returned channel yields at most one notification and is closed afterwards, when ctx
	// is done, or when the client is closed. A closed channel without a value means the
	// subscription was lost.
	SubscribeSignature(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification represents a signatureNotification message.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{} // on-chain error of the landed transaction, if any
}
