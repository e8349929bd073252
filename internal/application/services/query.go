package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
)

// QueryService serves read-only views of orders and payments.
type QueryService struct {
	repos postgres.Repositories
}

func NewQueryService(db *postgres.DB) *QueryService {
	return &QueryService{repos: postgres.NewRepositories(db.Pool)}
}

func (s *QueryService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repos.Orders.FindByID(ctx, orderID)
}

func (s *QueryService) ListEvents(ctx context.Context, orderID string, customerVisibleOnly bool) ([]*domain.OrderEvent, error) {
	if _, err := s.repos.Orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repos.Orders.ListEvents(ctx, orderID, customerVisibleOnly)
}

// GetPayment returns an intent as a reader should see it: an open intent
// past its expiry reads as cancelled even before it is persisted that way.
func (s *QueryService) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentIntent, error) {
	intent, err := s.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	intent.ApplyExpiry(now())
	return intent, nil
}

func (s *QueryService) ListPayments(ctx context.Context, orderID string) ([]*domain.PaymentIntent, error) {
	if _, err := s.repos.Orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	intents, err := s.repos.Payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	at := now()
	for _, intent := range intents {
		intent.ApplyExpiry(at)
	}
	return intents, nil
}
