package solana

// Commitment is the bank state a query is evaluated against.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *uint64 // nil once rooted
	Err                interface{}
	ConfirmationStatus Commitment
}

// SendOpts configures sendTransaction.
type SendOpts struct {
	SkipPreflight bool
	// MaxRetries is forwarded to the node; nil leaves the node default.
	MaxRetries *uint
}

// SimulateOpts configures simulateTransaction.
type SimulateOpts struct {
	ReplaceRecentBlockhash bool
	Commitment             Commitment
}

// SimulationResult is the value of a simulateTransaction response.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// UITokenAmount is a decimal-normalized token amount as reported by the node.
type UITokenAmount struct {
	Amount         string   // raw base units
	Decimals       int32
	UIAmount       *float64 // nil for zero balances on some nodes
	UIAmountString string
}

// TokenBalance is one entry of pre/postTokenBalances.
type TokenBalance struct {
	AccountIndex  int
	Mint          string
	Owner         string
	ProgramID     string
	UITokenAmount UITokenAmount
}
