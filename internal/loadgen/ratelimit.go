package loadgen

import (
	"context"
	"sync"
	"time"
)

// rateLimiter caps request issue rate with a sliding one-second window: a
// send is admitted only while fewer than maxRPS sends were admitted in the
// trailing second, otherwise the caller sleeps until the oldest admission
// leaves the window and tries again. Admission times are recorded when the
// send is let through, not when the caller arrives, so the cap holds no
// matter how many workers pile in concurrently.
type rateLimiter struct {
	mu     sync.Mutex
	maxRPS int
	recent []time.Time
}

func newRateLimiter(maxRPS int) *rateLimiter {
	return &rateLimiter{maxRPS: maxRPS}
}

// Wait blocks until the caller may send. A zero or negative maxRPS disables
// limiting.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if r.maxRPS <= 0 {
		return nil
	}

	for {
		r.mu.Lock()
		now := time.Now()
		for len(r.recent) > 0 && now.Sub(r.recent[0]) >= time.Second {
			r.recent = r.recent[1:]
		}
		if len(r.recent) < r.maxRPS {
			r.recent = append(r.recent, now)
			r.mu.Unlock()
			return nil
		}
		delay := time.Second - now.Sub(r.recent[0])
		r.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		timer.Stop()
	}
}
