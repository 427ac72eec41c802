package ledger

import (
	"sync/atomic"

	"funds-ledger/internal/domain"
)

// account is the per-account ledger state: the committed balance plus the
// outstanding holds. The holds map is only ever touched while the account's
// gate slot is held. Balance lives in an atomic so the query path can take a
// snapshot read without the gate.
type account struct {
	balance atomic.Int64
	holds   map[string]domain.Hold
}

func newAccount() *account {
	return &account{holds: make(map[string]domain.Hold)}
}

// reserved sums the amounts of all outstanding holds. Gate must be held.
func (a *account) reserved() int64 {
	var total int64
	for _, h := range a.holds {
		total += h.Amount
	}
	return total
}

// available is what a new authorization may still reserve. Gate must be held.
func (a *account) available() int64 {
	return a.balance.Load() - a.reserved()
}
