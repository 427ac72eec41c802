package loadgen

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CommitMode controls when a granted withdrawal authorization is converted
// into the actual withdraw. Commit timing is entirely the harness's choice;
// the server only bounds it with the hold expiry window.
type CommitMode string

const (
	// ModeInstant commits each authorization as soon as it is granted.
	ModeInstant CommitMode = "instant"
	// ModeEnd defers all commits to an extra batch after the current one.
	ModeEnd CommitMode = "end"
	// ModeLazy collects the needed commits but never issues them.
	ModeLazy CommitMode = "lazy"
)

const defaultWorkers = 16

// Runner drives rate-limited concurrent traffic against the service while
// maintaining an expected-balance mirror to compare with the server after
// the run. The mirror is updated when a deposit or withdraw is issued,
// whatever the response turns out to be, matching how the verification
// collaborator accounts for timed-out requests the server may still apply.
type Runner struct {
	client  *Client
	maxRPS  int
	mode    CommitMode
	workers int
	logger  *slog.Logger
}

func NewRunner(client *Client, maxRPS int, mode CommitMode, logger *slog.Logger) *Runner {
	return &Runner{
		client:  client,
		maxRPS:  maxRPS,
		mode:    mode,
		workers: defaultWorkers,
		logger:  logger,
	}
}

// Result accumulates outcomes across all phases of a run.
type Result struct {
	Stats
	// WithdrawalsNeeded holds the commits a lazy run intentionally skipped.
	WithdrawalsNeeded []Transaction
	ExpectedBalances  map[string]int64
}

// Run executes each phase in order against a shared expected-balance mirror.
// In end mode, commits collected during a phase run as an extra batch before
// the next phase starts.
func (r *Runner) Run(ctx context.Context, phases ...[]Transaction) (*Result, error) {
	result := &Result{ExpectedBalances: make(map[string]int64)}

	for _, phase := range phases {
		pending := phase
		for len(pending) > 0 {
			stats, followUps, err := r.runBatch(ctx, pending, result.ExpectedBalances)
			if err != nil {
				return nil, err
			}
			result.Stats.merge(stats)

			switch r.mode {
			case ModeEnd:
				pending = followUps
			case ModeLazy:
				result.WithdrawalsNeeded = append(result.WithdrawalsNeeded, followUps...)
				pending = nil
			default:
				pending = nil
			}
		}
	}

	return result, nil
}

func (r *Runner) runBatch(ctx context.Context, txs []Transaction, mirror map[string]int64) (Stats, []Transaction, error) {
	queue := newTxQueue(txs)
	limiter := newRateLimiter(r.maxRPS)

	var (
		mu        sync.Mutex
		stats     Stats
		followUps []Transaction
		sent      int
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for {
				tx, ok := queue.Pop()
				if !ok {
					return nil
				}
				err := r.processOne(gctx, tx, limiter, queue, mirror, &mu, &stats, &followUps, &sent)
				queue.Done()
				if err != nil {
					return err
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, nil, err
	}
	return stats, followUps, nil
}

func (r *Runner) processOne(
	ctx context.Context,
	tx Transaction,
	limiter *rateLimiter,
	queue *txQueue,
	mirror map[string]int64,
	mu *sync.Mutex,
	stats *Stats,
	followUps *[]Transaction,
	sent *int,
) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	mu.Lock()
	switch tx.Type {
	case TxDeposit:
		mirror[tx.AccountID] += tx.Amount
	case TxWithdraw:
		mirror[tx.AccountID] -= tx.Amount
	}
	*sent++
	if r.logger != nil && r.maxRPS > 0 && *sent%r.maxRPS == 0 {
		r.logger.Info("progress", "sent", *sent)
	}
	mu.Unlock()

	res, err := r.client.SendTransaction(ctx, tx)

	mu.Lock()
	defer mu.Unlock()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			stats.Timeouts++
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		stats.Errors++
		if r.logger != nil {
			r.logger.Warn("request failed", "transaction_id", tx.ID, "error", err)
		}
		return nil
	}

	stats.Latencies = append(stats.Latencies, res.Latency)
	stats.Successful++

	if tx.Type == TxWithdrawRequest && res.Status == http.StatusCreated {
		withdraw := NewTransaction(TxWithdraw, tx.Amount, tx.AccountID)
		if r.mode == ModeInstant {
			queue.Push(withdraw)
		} else {
			*followUps = append(*followUps, withdraw)
		}
	}

	return nil
}
