package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
)

// Reconciler polls providers for open intents that have gone quiet, for
// rails that confirm automatically. Bank transfers are never polled.
type Reconciler struct {
	payments  *services.PaymentService
	interval  time.Duration
	minAge    time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconciler(
	payments *services.PaymentService,
	interval time.Duration,
	minAge time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		payments:  payments,
		interval:  interval,
		minAge:    minAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	runEvery(ctx, "status reconciler", r.interval, r.logger, r.RunOnce)
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	changed, err := r.payments.ReconcileOpen(ctx, r.minAge, r.batchSize)
	if err != nil {
		return err
	}
	if changed > 0 {
		r.logger.Info("reconciled payments", "changed", changed)
	}
	return nil
}
