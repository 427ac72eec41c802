package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "funds-ledger/internal/errors"
)

// Sweeper periodically releases expired holds so that a crashed or abandoned
// authorization cannot lock funds past its window.
type Sweeper struct {
	ledger   *Ledger
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(l *Ledger, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{
		ledger:   l,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until the context is done. Blocking; callers start it on its
// own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ledger.Sweep(ctx); err != nil {
				var appErr *apperrors.AppError
				if errors.As(err, &appErr) && appErr.Code == apperrors.ShuttingDown {
					return
				}
				if s.logger != nil {
					s.logger.Warn("expiry sweep aborted", "error", err)
				}
			}
		}
	}
}
