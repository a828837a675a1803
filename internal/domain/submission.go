package domain

// SubmissionRecord is the telemetry row for one submission attempt.
type SubmissionRecord struct {
	Signature            string
	Side                 Side
	Mint                 string
	Status               string // CONFIRMED | EXPIRED | FAILED
	Reason               string
	Broadcasts           int
	LastValidBlockHeight uint64
	StartedAt            int64 // unix ms
	FinishedAt           int64 // unix ms
}
