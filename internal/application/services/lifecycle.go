package services

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/metrics"
	"github.com/google/uuid"
)

// Event types that are handed to the notifier through the outbox.
var notifiableEvents = []domain.OrderEventType{
	domain.EventPaymentConfirmed,
	domain.EventDispatched,
	domain.EventDelivered,
	domain.EventCancelled,
	domain.EventRefunded,
	domain.EventPartiallyRefunded,
}

// recordEvent appends ev to the order timeline and, for customer-facing
// changes, writes the matching outbox row in the same transaction.
func recordEvent(ctx context.Context, repos postgres.Repositories, order *domain.Order, ev *domain.OrderEvent) error {
	ev.ID = uuid.NewString()
	if err := repos.Orders.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if !ev.CustomerVisible || !slices.Contains(notifiableEvents, ev.Type) {
		return nil
	}
	return repos.Outbox.Enqueue(ctx, &domain.Notification{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		EventType:   ev.Type,
		Status:      order.Status,
		Payload: map[string]any{
			"title":       ev.Title,
			"description": ev.Description,
			"owner_id":    order.OwnerID,
			"total":       order.Total,
			"currency":    string(order.Currency),
			"metadata":    ev.Metadata,
		},
		CreatedAt: ev.CreatedAt,
	})
}

// saveTransition persists an in-memory order transition guarded by the
// status the order had before it.
func saveTransition(ctx context.Context, repos postgres.Repositories, order *domain.Order, expected domain.OrderStatus, ev *domain.OrderEvent) error {
	if err := repos.Orders.UpdateStatus(ctx, order, expected); err != nil {
		return err
	}
	if order.Status != expected {
		metrics.OrderTransitions.WithLabelValues(string(order.Status)).Inc()
	}
	return recordEvent(ctx, repos, order, ev)
}

// markOrderPaid is where every confirmation path (poll, webhook, manual
// transfer) converges. It must run inside the transaction that completed the
// intent.
func markOrderPaid(ctx context.Context, repos postgres.Repositories, intent *domain.PaymentIntent, at time.Time, logger *slog.Logger) error {
	order, err := repos.Orders.FindByIDForUpdate(ctx, intent.OrderID)
	if err != nil {
		return err
	}

	if order.IsPaidOrLater() {
		logger.Info("order already paid, skipping",
			"order_id", order.ID,
			"payment_id", intent.ID,
			"status", order.Status,
		)
		return nil
	}

	if order.Status == domain.OrderCancelled {
		logger.Error("PAID_AFTER_CANCELLATION",
			"order_id", order.ID,
			"payment_id", intent.ID,
			"amount", intent.Amount,
			"message", "payment completed for a cancelled order; refund manually",
		)
		return nil
	}

	if order.Status == domain.OrderCreated {
		expected := order.Status
		ev, err := order.AwaitPayment(intent.Provider, deref(intent.ProviderRef), at)
		if err != nil {
			return err
		}
		if err := saveTransition(ctx, repos, order, expected, ev); err != nil {
			return err
		}
	}

	expected := order.Status
	ev, err := order.MarkPaid(intent.ID, at)
	if err != nil {
		return err
	}
	return saveTransition(ctx, repos, order, expected, ev)
}
