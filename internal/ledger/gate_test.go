package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "funds-ledger/internal/errors"
)

func TestGateAcquireRelease(t *testing.T) {
	g := NewGate()

	release, err := g.Acquire(context.Background(), "acct-1")
	require.NoError(t, err)
	release()

	release, err = g.Acquire(context.Background(), "acct-1")
	require.NoError(t, err)
	release()
}

func TestGateSerializesSameAccount(t *testing.T) {
	g := NewGate()

	release, err := g.Acquire(context.Background(), "acct-1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r2, err := g.Acquire(context.Background(), "acct-1")
		if err == nil {
			close(acquired)
			r2()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while slot was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestGateIndependentAccounts(t *testing.T) {
	g := NewGate()

	release, err := g.Acquire(context.Background(), "busy")
	require.NoError(t, err)
	defer release()

	// A different account must not be delayed by the held slot.
	done := make(chan struct{})
	go func() {
		r, err := g.Acquire(context.Background(), "idle")
		if err == nil {
			r()
			close(done)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire on an independent account blocked")
	}
}

func TestGateAcquireHonorsContext(t *testing.T) {
	g := NewGate()

	release, err := g.Acquire(context.Background(), "acct-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx, "acct-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGateCloseRejectsNewAcquires(t *testing.T) {
	g := NewGate()
	g.Close()

	_, err := g.Acquire(context.Background(), "acct-1")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ShuttingDown, appErr.Code)
}

func TestGateCloseWakesBlockedAcquirer(t *testing.T) {
	g := NewGate()

	release, err := g.Acquire(context.Background(), "acct-1")
	require.NoError(t, err)
	defer release()

	errs := make(chan error, 1)
	go func() {
		_, err := g.Acquire(context.Background(), "acct-1")
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	g.Close()

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked acquirer was not woken by Close")
	}
}
