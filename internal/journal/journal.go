package journal

import (
	"log/slog"
	"sync"

	"funds-ledger/internal/domain"
)

// Journal is an append-only, in-memory audit log of successful operations.
// It is written after state changes and is deliberately decoupled from the
// balance read path: nothing in the service ever sums these records to
// decide whether a withdrawal may happen.
type Journal struct {
	mu      sync.Mutex
	records []domain.Record
	logger  *slog.Logger
}

// New creates an empty journal.
func New(logger *slog.Logger) *Journal {
	return &Journal{logger: logger}
}

// Append stores a record. Safe for concurrent use.
func (j *Journal) Append(rec domain.Record) {
	j.mu.Lock()
	j.records = append(j.records, rec)
	j.mu.Unlock()

	if j.logger != nil {
		j.logger.Debug("journal append",
			"record_id", rec.ID,
			"account_id", rec.AccountID,
			"kind", rec.Kind,
			"amount", rec.Amount)
	}
}

// Len returns the number of records appended so far.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// Snapshot returns a copy of all records in append order.
func (j *Journal) Snapshot() []domain.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.Record, len(j.records))
	copy(out, j.records)
	return out
}

// ForAccount returns a copy of the records for one account in append order.
func (j *Journal) ForAccount(accountID string) []domain.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.Record
	for _, rec := range j.records {
		if rec.AccountID == accountID {
			out = append(out, rec)
		}
	}
	return out
}

var _ domain.Journal = (*Journal)(nil)
