package ledger

import (
	"context"
	"fmt"
	"sync"

	apperrors "funds-ledger/internal/errors"
)

// Gate provides per-account mutual exclusion. Each account id owns a lazily
// created slot; holding the slot means no other deposit, authorize, commit,
// release, or expiry pass for that account can run. Operations on distinct
// accounts never contend.
//
// Acquisition blocks on a channel receive rather than spinning, and fails
// with an error when the caller's context ends or the gate is closed for
// shutdown. The caller must invoke the returned release function, normally
// via defer so a panic inside the critical section cannot strand the slot.
type Gate struct {
	mu    sync.Mutex
	slots map[string]chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

func NewGate() *Gate {
	return &Gate{
		slots:  make(map[string]chan struct{}),
		closed: make(chan struct{}),
	}
}

func (g *Gate) slot(accountID string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.slots[accountID]
	if !ok {
		s = make(chan struct{}, 1)
		g.slots[accountID] = s
	}
	return s
}

// Acquire blocks until the account's slot is free, the context is done, or
// the gate is closed. On success the returned function releases the slot.
func (g *Gate) Acquire(ctx context.Context, accountID string) (release func(), err error) {
	s := g.slot(accountID)

	select {
	case s <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire gate for account %s: %w", accountID, ctx.Err())
	case <-g.closed:
		return nil, apperrors.ErrShuttingDown
	}

	// Close may have raced the successful send; prefer reporting shutdown so
	// no new critical section starts after Close returns to the caller.
	select {
	case <-g.closed:
		<-s
		return nil, apperrors.ErrShuttingDown
	default:
	}

	return func() { <-s }, nil
}

// Close rejects all future acquisitions. In-flight critical sections finish
// normally; blocked acquirers are woken with ErrShuttingDown.
func (g *Gate) Close() {
	g.closeOnce.Do(func() { close(g.closed) })
}
