package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"funds-ledger/internal/clock"
	"funds-ledger/internal/domain"
	apperrors "funds-ledger/internal/errors"
)

const defaultHoldTTL = 5 * time.Second

// Ledger keeps per-account balances and authorization holds and enforces the
// solvency invariant: balance minus the sum of outstanding holds never goes
// negative. Every state-changing operation runs inside the account's gate
// slot, so the check-and-reserve step of Authorize is atomic with respect to
// all other operations on the same account.
type Ledger struct {
	gate    *Gate
	clock   clock.Clock
	holdTTL time.Duration
	journal domain.Journal
	logger  *slog.Logger

	mu       sync.RWMutex
	accounts map[string]*account
}

type Option func(*Ledger)

// WithHoldTTL overrides the default expiry window for new holds.
func WithHoldTTL(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.holdTTL = d
		}
	}
}

func New(clk clock.Clock, jnl domain.Journal, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		gate:     NewGate(),
		clock:    clk,
		holdTTL:  defaultHoldTTL,
		journal:  jnl,
		logger:   logger,
		accounts: make(map[string]*account),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close stops admitting new operations. In-flight operations complete.
func (l *Ledger) Close() {
	l.gate.Close()
}

func (l *Ledger) getOrCreate(accountID string) *account {
	l.mu.RLock()
	a, ok := l.accounts[accountID]
	l.mu.RUnlock()
	if ok {
		return a
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok = l.accounts[accountID]; ok {
		return a
	}
	a = newAccount()
	l.accounts[accountID] = a
	return a
}

// withAccount runs fn inside the account's gate slot. Expired holds are
// swept before fn so that no operation can observe, commit, or count a hold
// whose authorization window has passed.
func (l *Ledger) withAccount(ctx context.Context, accountID string, fn func(a *account, now time.Time) error) error {
	release, err := l.gate.Acquire(ctx, accountID)
	if err != nil {
		return err
	}
	defer release()

	a := l.getOrCreate(accountID)
	now := l.clock.Now()
	l.expire(accountID, a, now)
	return fn(a, now)
}

// expire releases every hold past its window. Gate must be held.
func (l *Ledger) expire(accountID string, a *account, now time.Time) {
	for id, h := range a.holds {
		if !h.Expired(now) {
			continue
		}
		delete(a.holds, id)
		l.record(domain.RecordRelease, accountID, h.Amount, now)
		if l.logger != nil {
			l.logger.Info("hold expired",
				"account_id", accountID,
				"hold_id", id,
				"amount", h.Amount)
		}
	}
}

func (l *Ledger) record(kind domain.RecordKind, accountID string, amount int64, now time.Time) {
	if l.journal == nil {
		return
	}
	l.journal.Append(domain.Record{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Timestamp: now,
	})
}

// Deposit credits the account, creating it on first use. Amount must be
// positive; deposits otherwise always succeed. Returns the new balance.
func (l *Ledger) Deposit(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.ErrInvalidAmount
	}

	var balance int64
	err := l.withAccount(ctx, accountID, func(a *account, now time.Time) error {
		balance = a.balance.Add(amount)
		l.record(domain.RecordDeposit, accountID, amount, now)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Authorize reserves amount against the account's available funds and
// returns the resulting hold. The availability check and the hold insertion
// happen in one gated step, so concurrent authorizations can never jointly
// reserve more than the balance.
func (l *Ledger) Authorize(ctx context.Context, accountID string, amount int64) (domain.Hold, error) {
	if amount <= 0 {
		return domain.Hold{}, apperrors.ErrInvalidAmount
	}

	var hold domain.Hold
	err := l.withAccount(ctx, accountID, func(a *account, now time.Time) error {
		if a.available() < amount {
			return apperrors.ErrInsufficientFunds
		}
		hold = domain.Hold{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Amount:    amount,
			CreatedAt: now,
			ExpiresAt: now.Add(l.holdTTL),
		}
		a.holds[hold.ID] = hold
		l.record(domain.RecordAuthorize, accountID, amount, now)
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return hold, nil
}

// Commit consumes an active hold, debiting its amount from the balance.
// Committing a hold that never existed, was already resolved, or has expired
// returns ErrUnknownHold; a retry after a timed-out first attempt may
// therefore see ErrUnknownHold even though the money moved.
func (l *Ledger) Commit(ctx context.Context, accountID, holdID string) (int64, error) {
	var balance int64
	err := l.withAccount(ctx, accountID, func(a *account, now time.Time) error {
		h, ok := a.holds[holdID]
		if !ok {
			return apperrors.ErrUnknownHold
		}
		delete(a.holds, holdID)
		balance = a.balance.Add(-h.Amount)
		l.record(domain.RecordCommit, accountID, h.Amount, now)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// CommitMatching consumes the oldest active hold of exactly the given
// amount. It exists for callers that speak the original wire protocol, where
// a withdraw carries only the account and the amount.
func (l *Ledger) CommitMatching(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.ErrInvalidAmount
	}

	var balance int64
	err := l.withAccount(ctx, accountID, func(a *account, now time.Time) error {
		var oldest *domain.Hold
		for _, h := range a.holds {
			if h.Amount != amount {
				continue
			}
			if oldest == nil || h.CreatedAt.Before(oldest.CreatedAt) {
				hh := h
				oldest = &hh
			}
		}
		if oldest == nil {
			return apperrors.ErrUnknownHold
		}
		delete(a.holds, oldest.ID)
		balance = a.balance.Add(-oldest.Amount)
		l.record(domain.RecordCommit, accountID, oldest.Amount, now)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Release discards an active hold without touching the balance.
func (l *Ledger) Release(ctx context.Context, accountID, holdID string) error {
	return l.withAccount(ctx, accountID, func(a *account, now time.Time) error {
		h, ok := a.holds[holdID]
		if !ok {
			return apperrors.ErrUnknownHold
		}
		delete(a.holds, holdID)
		l.record(domain.RecordRelease, accountID, h.Amount, now)
		return nil
	})
}

// Balance returns the committed balance without taking the gate. The value
// is a snapshot: writers update it atomically inside their critical section,
// so a concurrent reader sees either the pre- or post-operation balance,
// never a torn one. Unknown accounts read as zero.
func (l *Ledger) Balance(accountID string) int64 {
	l.mu.RLock()
	a, ok := l.accounts[accountID]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	return a.balance.Load()
}

// Sweep runs one expiry pass over every account. Each account is visited
// inside its gate slot so a sweep can never race a late-arriving commit.
func (l *Ledger) Sweep(ctx context.Context) error {
	l.mu.RLock()
	ids := make([]string, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	for _, id := range ids {
		err := l.withAccount(ctx, id, func(a *account, now time.Time) error {
			// withAccount already expired everything due.
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
