package worker

import (
	"context"
	"log/slog"
	"time"
)

// runEvery calls fn once immediately and then on every tick until ctx is
// cancelled. Errors are logged; the next tick tries again.
func runEvery(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, fn func(ctx context.Context) error) {
	logger.Info(name+" started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := fn(ctx); err != nil {
		logger.Error(name+" run failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info(name + " stopping")
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Error(name+" run failed", "error", err)
			}
		}
	}
}
