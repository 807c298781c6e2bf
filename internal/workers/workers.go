package workers

import (
	"context"
	"time"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/logger"
)

// Sweeper is the daily maintenance job run by the streak worker.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// StartStreakWorker runs the streak sweep on a fixed interval until ctx is
// cancelled. Each run gets its own timeout so a stuck sweep cannot wedge the
// worker.
func StartStreakWorker(ctx context.Context, sweeper Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Sugar.Info("streak worker stopped")
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
				if err := sweeper.Sweep(runCtx); err != nil {
					logger.Sugar.Errorw("streak sweep failed", "error", err)
				}
				cancel()
			}
		}
	}()
}
