package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
)

// ExpirationWorker cancels open payment intents whose expiry has passed.
// Reads already treat such intents as cancelled; the worker makes the
// stored state agree.
type ExpirationWorker struct {
	payments  *services.PaymentService
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewExpirationWorker(
	payments *services.PaymentService,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *ExpirationWorker {
	return &ExpirationWorker{
		payments:  payments,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *ExpirationWorker) Start(ctx context.Context) {
	runEvery(ctx, "expiration worker", w.interval, w.logger, w.ProcessExpirations)
}

// ProcessExpirations runs one expiration pass.
func (w *ExpirationWorker) ProcessExpirations(ctx context.Context) error {
	expired, err := w.payments.ExpireStale(ctx, w.batchSize)
	if err != nil {
		return err
	}

	if expired > 0 {
		w.logger.Info("processed expiration check", "marked_expired", expired)
	}
	return nil
}
