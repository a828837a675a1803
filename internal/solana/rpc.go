package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface used by the submission engine.
type RPCClient interface {
	// SendTransaction broadcasts a signed, serialized transaction and returns its signature.
	SendTransaction(ctx context.Context, payload []byte, opts SendOpts) (string, error)

	// GetSignatureStatuses returns one status per signature; nil entries are unknown signatures.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// SimulateTransaction dry-runs a signed transaction against current bank state.
	SimulateTransaction(ctx context.Context, payload []byte, opts SimulateOpts) (*SimulationResult, error)

	// GetTransaction retrieves a landed transaction. Returns nil, nil when not found.
	GetTransaction(ctx context.Context, signature string, commitment Commitment) (*Transaction, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error)
}

// Transaction represents a landed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata including balance snapshots.
type TransactionMeta struct {
	Err               interface{}
	Fee               uint64
	LogMessages       []string
	PreBalances       []uint64 // lamports, indexed like AccountKeys
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
