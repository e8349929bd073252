package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
)

// OrderService drives the fulfillment side of the order lifecycle. Payment
// driven transitions live in PaymentService.
type OrderService struct {
	coordinator *postgres.TransactionCoordinator
	repos       postgres.Repositories
	payments    *PaymentService
	logger      *slog.Logger
}

func NewOrderService(db *postgres.DB, payments *PaymentService, logger *slog.Logger) *OrderService {
	return &OrderService{
		coordinator: postgres.NewTransactionCoordinator(db),
		repos:       postgres.NewRepositories(db.Pool),
		payments:    payments,
		logger:      logger,
	}
}

// RequestPayment starts a new payment attempt for an order that is still
// waiting for one, typically after an earlier attempt failed.
func (s *OrderService) RequestPayment(ctx context.Context, orderID, provider, idempotencyKey string) (*domain.PaymentIntent, error) {
	order, err := s.repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.payments.CreatePayment(ctx, CreatePaymentCommand{
		OrderID:        order.ID,
		Amount:         order.Total,
		Currency:       string(order.Currency),
		Provider:       provider,
		Description:    "Order " + order.OrderNumber,
		IdempotencyKey: idempotencyKey,
	})
}

func (s *OrderService) StartProcessing(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	return s.transition(ctx, orderID, func(_ context.Context, _ postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error) {
		return o.StartProcessing(actor, at)
	})
}

func (s *OrderService) Assign(ctx context.Context, cmd AssignCommand) (*domain.Order, error) {
	return s.transition(ctx, cmd.OrderID, func(_ context.Context, _ postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error) {
		return o.Assign(cmd.Team, cmd.ScheduledStart, cmd.ScheduledEnd, cmd.Actor, at)
	})
}

func (s *OrderService) StartWork(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	return s.transition(ctx, orderID, func(_ context.Context, _ postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error) {
		return o.StartWork(actor, at)
	})
}

func (s *OrderService) Complete(ctx context.Context, cmd CompleteCommand) (*domain.Order, error) {
	return s.transition(ctx, cmd.OrderID, func(_ context.Context, _ postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error) {
		return o.Complete(cmd.Notes, cmd.Actor, at)
	})
}

func (s *OrderService) Dispatch(ctx context.Context, cmd DispatchCommand) (*domain.Order, error) {
	return s.transition(ctx, cmd.OrderID, func(_ context.Context, _ postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error) {
		return o.Dispatch(cmd.TrackingNumber, cmd.Carrier, cmd.Actor, at)
	})
}

func (s *OrderService) Deliver(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	return s.transition(ctx, orderID, func(_ context.Context, _ postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error) {
		return o.Deliver(actor, at)
	})
}

// Cancel cancels the order and any payment attempt still open for it. It
// never refunds; that is a separate call.
func (s *OrderService) Cancel(ctx context.Context, cmd CancelCommand) (*domain.Order, error) {
	return s.transition(ctx, cmd.OrderID, func(ctx context.Context, repos postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error) {
		ev, err := o.Cancel(cmd.Reason, cmd.Actor, at)
		if err != nil {
			return nil, err
		}
		open, err := repos.Payments.FindOpenByOrder(ctx, o.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return ev, nil
		case err != nil:
			return nil, err
		}
		previous := open.Status
		if err := open.ApplyProviderStatus(domain.PaymentCancelled, at); err != nil {
			return nil, err
		}
		if err := repos.Payments.Update(ctx, open, previous); err != nil {
			return nil, err
		}
		s.logger.Info("open payment cancelled with order", "order_id", o.ID, "payment_id", open.ID)
		return ev, nil
	})
}

func (s *OrderService) transition(
	ctx context.Context,
	orderID string,
	fn func(ctx context.Context, repos postgres.Repositories, o *domain.Order, at time.Time) (*domain.OrderEvent, error),
) (*domain.Order, error) {
	var order *domain.Order
	err := s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		var err error
		order, err = repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		expected := order.Status
		ev, err := fn(ctx, repos, order, now())
		if err != nil {
			return err
		}
		return saveTransition(ctx, repos, order, expected, ev)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order transitioned", "order_id", order.ID, "status", order.Status)
	return order, nil
}
