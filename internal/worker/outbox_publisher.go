package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/metrics"
)

// OutboxPublisher drains the notification outbox through a Notifier.
// Delivery is at least once: a row is marked published only after the
// notifier accepted it. Rows are leased before sending, so replicas never
// send the same row concurrently.
type OutboxPublisher struct {
	outbox      *postgres.OutboxRepository
	notifier    application.Notifier
	interval    time.Duration
	batchSize   int
	maxAttempts int
	claimTTL    time.Duration
	logger      *slog.Logger
}

func NewOutboxPublisher(
	db *postgres.DB,
	notifier application.Notifier,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	claimTTL time.Duration,
	logger *slog.Logger,
) *OutboxPublisher {
	return &OutboxPublisher{
		outbox:      postgres.NewOutboxRepository(db.Pool),
		notifier:    notifier,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		claimTTL:    claimTTL,
		logger:      logger,
	}
}

func (p *OutboxPublisher) Start(ctx context.Context) {
	runEvery(ctx, "outbox publisher", p.interval, p.logger, func(ctx context.Context) error {
		_, err := p.PublishPending(ctx)
		return err
	})
}

// PublishPending sends one batch and returns how many rows were published.
func (p *OutboxPublisher) PublishPending(ctx context.Context) (int, error) {
	pending, err := p.outbox.ClaimUnpublished(ctx, p.maxAttempts, p.batchSize, time.Now().UTC(), p.claimTTL)
	if err != nil {
		return 0, err
	}

	var published int
	for _, n := range pending {
		if err := p.notifier.Notify(ctx, *n); err != nil {
			metrics.NotificationsPublished.WithLabelValues("failed").Inc()
			p.logger.Warn("notification delivery failed",
				"notification_id", n.ID,
				"order_id", n.OrderID,
				"event_type", n.EventType,
				"attempts", n.Attempts+1,
				"error", err)

			if err := p.outbox.MarkFailed(ctx, n.ID); err != nil {
				p.logger.Error("failed to record notification attempt", "notification_id", n.ID, "error", err)
			}
			if n.Attempts+1 >= p.maxAttempts {
				p.logger.Error("NOTIFICATION_DELIVERY_ABANDONED",
					"notification_id", n.ID,
					"order_id", n.OrderID,
					"event_type", n.EventType)
			}
			continue
		}

		if err := p.outbox.MarkPublished(ctx, n.ID, time.Now().UTC()); err != nil {
			p.logger.Error("failed to mark notification published", "notification_id", n.ID, "error", err)
			continue
		}
		metrics.NotificationsPublished.WithLabelValues("published").Inc()
		published++
	}

	if published > 0 {
		p.logger.Info("published notifications", "count", published)
	}
	return published, nil
}
