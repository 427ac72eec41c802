package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funds-ledger/internal/clock"
	"funds-ledger/internal/domain"
	apperrors "funds-ledger/internal/errors"
	"funds-ledger/internal/journal"
)

// fakeClock is an advanceable clock for driving hold expiry.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t.UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(opts ...Option) (*Ledger, *journal.Journal) {
	jnl := journal.New(testLogger())
	return New(clock.NewSystem(), jnl, testLogger(), opts...), jnl
}

func TestDeposit(t *testing.T) {
	l, jnl := newTestLedger()
	ctx := context.Background()

	balance, err := l.Deposit(ctx, "acct-1", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	balance, err = l.Deposit(ctx, "acct-1", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(750), balance)

	assert.Equal(t, int64(750), l.Balance("acct-1"))
	assert.Equal(t, 2, jnl.Len())
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	for _, amount := range []int64{0, -1, -100} {
		_, err := l.Deposit(ctx, "acct-1", amount)
		require.Error(t, err)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.InvalidAmount, appErr.Code)
	}

	assert.Equal(t, int64(0), l.Balance("acct-1"))
}

func TestBalanceUnknownAccountIsZero(t *testing.T) {
	l, _ := newTestLedger()
	assert.Equal(t, int64(0), l.Balance("never-seen"))
}

func TestAuthorizeReservesWithoutDebiting(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 1000)
	require.NoError(t, err)

	hold, err := l.Authorize(ctx, "acct-1", 600)
	require.NoError(t, err)
	assert.NotEmpty(t, hold.ID)
	assert.Equal(t, int64(600), hold.Amount)

	// Observable balance is unchanged by an authorization.
	assert.Equal(t, int64(1000), l.Balance("acct-1"))

	// But the reserved amount is no longer available to authorize.
	_, err = l.Authorize(ctx, "acct-1", 500)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.InsufficientFunds, appErr.Code)

	_, err = l.Authorize(ctx, "acct-1", 400)
	require.NoError(t, err)
}

func TestAuthorizeInsufficientFundsOnEmptyAccount(t *testing.T) {
	l, _ := newTestLedger()

	_, err := l.Authorize(context.Background(), "acct-1", 1)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.InsufficientFunds, appErr.Code)
}

func TestCommitDebitsAndDestroysHold(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 100000)
	require.NoError(t, err)

	hold, err := l.Authorize(ctx, "acct-1", 100000)
	require.NoError(t, err)

	balance, err := l.Commit(ctx, "acct-1", hold.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Equal(t, int64(0), l.Balance("acct-1"))
}

func TestCommitTwiceReturnsUnknownHold(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 100)
	require.NoError(t, err)

	hold, err := l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)

	_, err = l.Commit(ctx, "acct-1", hold.ID)
	require.NoError(t, err)

	_, err = l.Commit(ctx, "acct-1", hold.ID)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.UnknownHold, appErr.Code)

	// The double commit must not have debited twice.
	assert.Equal(t, int64(0), l.Balance("acct-1"))
}

func TestReleaseKeepsBalanceAndBlocksCommit(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 300)
	require.NoError(t, err)

	hold, err := l.Authorize(ctx, "acct-1", 200)
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, "acct-1", hold.ID))
	assert.Equal(t, int64(300), l.Balance("acct-1"))

	_, err = l.Commit(ctx, "acct-1", hold.ID)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.UnknownHold, appErr.Code)

	// The released funds are available again.
	_, err = l.Authorize(ctx, "acct-1", 300)
	require.NoError(t, err)
}

func TestCommitUnknownHoldID(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 100)
	require.NoError(t, err)

	_, err = l.Commit(ctx, "acct-1", "no-such-hold")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.UnknownHold, appErr.Code)
}

func TestCommitMatchingTakesOldestHold(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	jnl := journal.New(testLogger())
	l := New(clk, jnl, testLogger(), WithHoldTTL(time.Hour))
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 500)
	require.NoError(t, err)

	first, err := l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)
	clk.Advance(time.Second)
	second, err := l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)

	_, err = l.CommitMatching(ctx, "acct-1", 100)
	require.NoError(t, err)

	// The older hold is gone, the newer one still commits by id.
	_, err = l.Commit(ctx, "acct-1", first.ID)
	require.Error(t, err)
	_, err = l.Commit(ctx, "acct-1", second.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(300), l.Balance("acct-1"))
}

func TestCommitMatchingRequiresExactAmount(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 500)
	require.NoError(t, err)

	_, err = l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)

	_, err = l.CommitMatching(ctx, "acct-1", 99)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.UnknownHold, appErr.Code)
}

func TestHoldExpiry(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	jnl := journal.New(testLogger())
	l := New(clk, jnl, testLogger(), WithHoldTTL(5*time.Second))
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 100)
	require.NoError(t, err)

	hold, err := l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)

	clk.Advance(6 * time.Second)
	require.NoError(t, l.Sweep(ctx))

	// Balance is back to its pre-authorization value and a late commit fails.
	assert.Equal(t, int64(100), l.Balance("acct-1"))
	_, err = l.Commit(ctx, "acct-1", hold.ID)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.UnknownHold, appErr.Code)

	// The freed funds can be authorized again.
	_, err = l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)
}

func TestExpiredHoldReleasedLazilyWithoutSweep(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	jnl := journal.New(testLogger())
	l := New(clk, jnl, testLogger(), WithHoldTTL(time.Second))
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 100)
	require.NoError(t, err)
	_, err = l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)

	// No sweep ran, but the expired hold must not block a new authorization.
	_, err = l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)
}

func TestNoLostUpdateUnderConcurrentAuthorize(t *testing.T) {
	const (
		workers = 50
		trials  = 100
		amount  = int64(1000)
	)

	ctx := context.Background()

	for trial := 0; trial < trials; trial++ {
		l, _ := newTestLedger()
		_, err := l.Deposit(ctx, "acct-1", amount)
		require.NoError(t, err)

		var (
			wg           sync.WaitGroup
			mu           sync.Mutex
			successes    int
			insufficient int
		)

		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := l.Authorize(ctx, "acct-1", amount)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
					return
				}
				if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.InsufficientFunds {
					insufficient++
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, 1, successes, "trial %d: expected exactly one successful authorization", trial)
		require.Equal(t, workers-1, insufficient, "trial %d", trial)
	}
}

func TestSolvencyInvariantUnderMixedConcurrentLoad(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 10000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hold, err := l.Authorize(ctx, "acct-1", 100)
				if err != nil {
					continue
				}
				if j%2 == 0 {
					_, _ = l.Commit(ctx, "acct-1", hold.ID)
					_, _ = l.Deposit(ctx, "acct-1", 100)
				} else {
					_ = l.Release(ctx, "acct-1", hold.ID)
				}
			}
		}()
	}
	wg.Wait()

	// Every commit was covered by a hold, so the balance can never be
	// negative regardless of interleaving.
	assert.GreaterOrEqual(t, l.Balance("acct-1"), int64(0))
}

func TestOperationsFailAfterClose(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 100)
	require.NoError(t, err)

	l.Close()

	_, err = l.Deposit(ctx, "acct-1", 100)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ShuttingDown, appErr.Code)

	// Snapshot reads still work during shutdown.
	assert.Equal(t, int64(100), l.Balance("acct-1"))
}

func TestPanicInCriticalSectionReleasesGate(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	func() {
		defer func() { _ = recover() }()
		_ = l.withAccount(ctx, "acct-1", func(a *account, now time.Time) error {
			panic("boom")
		})
	}()

	// The account must not be deadlocked.
	opCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, err := l.Deposit(opCtx, "acct-1", 50)
	require.NoError(t, err)
}

func TestJournalRecordsLifecycle(t *testing.T) {
	l, jnl := newTestLedger()
	ctx := context.Background()

	_, err := l.Deposit(ctx, "acct-1", 100)
	require.NoError(t, err)
	hold, err := l.Authorize(ctx, "acct-1", 100)
	require.NoError(t, err)
	_, err = l.Commit(ctx, "acct-1", hold.ID)
	require.NoError(t, err)

	records := jnl.ForAccount("acct-1")
	require.Len(t, records, 3)
	assert.Equal(t, domain.RecordDeposit, records[0].Kind)
	assert.Equal(t, domain.RecordAuthorize, records[1].Kind)
	assert.Equal(t, domain.RecordCommit, records[2].Kind)
	for _, rec := range records {
		assert.Equal(t, int64(100), rec.Amount)
		assert.NotEmpty(t, rec.ID)
	}
}
