package domain

import "time"

type RecordKind string

const (
	RecordDeposit   RecordKind = "deposit"
	RecordAuthorize RecordKind = "authorize"
	RecordCommit    RecordKind = "commit"
	RecordRelease   RecordKind = "release"
)

// Record is an immutable audit entry appended after each state-changing
// operation succeeds. It exists for observability and testing only; balances
// are never recomputed from the record stream.
type Record struct {
	ID        string     `json:"id"`
	AccountID string     `json:"accountId"`
	Kind      RecordKind `json:"kind"`
	Amount    int64      `json:"amount"`
	Timestamp time.Time  `json:"timestamp"`
}

// Journal receives records from the operation path. Implementations must be
// safe for concurrent appenders on distinct accounts.
type Journal interface {
	Append(rec Record)
}
