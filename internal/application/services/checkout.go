package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/metrics"
	"github.com/google/uuid"
)

type CheckoutResult struct {
	Order   *domain.Order
	Payment *domain.PaymentIntent
}

// CheckoutService turns a cart into an order. Freezing the cart, redeeming
// the coupon, numbering the order and decrementing stock share one
// transaction, so a failure anywhere leaves the cart active.
type CheckoutService struct {
	coordinator *postgres.TransactionCoordinator
	repos       postgres.Repositories
	payments    *PaymentService
	cache       application.CartCache
	store       config.StoreConfig
	logger      *slog.Logger
}

func NewCheckoutService(
	db *postgres.DB,
	payments *PaymentService,
	cache application.CartCache,
	store config.StoreConfig,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		coordinator: postgres.NewTransactionCoordinator(db),
		repos:       postgres.NewRepositories(db.Pool),
		payments:    payments,
		cache:       cache,
		store:       store,
		logger:      logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if cmd.CartID == "" {
		return nil, domain.NewMissingRequiredFieldError("cart_id")
	}
	if cmd.Provider != "" {
		if _, err := domain.ParseProvider(cmd.Provider); err != nil {
			return nil, err
		}
	}

	if cmd.IdempotencyKey != "" {
		if res, ok, err := s.replay(ctx, cmd); err != nil || ok {
			return res, err
		}
	}

	var order *domain.Order
	err := s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		at := now()
		cart, err := repos.Carts.FindByIDForUpdate(ctx, cmd.CartID)
		if err != nil {
			return err
		}
		snap, err := cart.Freeze(at)
		if err != nil {
			return err
		}
		if err := repos.Carts.Save(ctx, cart); err != nil {
			return err
		}
		frozen, err := repos.Carts.Freeze(ctx, cart.ID, at)
		if err != nil {
			return err
		}
		if !frozen {
			return domain.NewInactiveError(cart.ID)
		}

		if snap.CouponCode != "" {
			redeemed, err := repos.Catalog.RedeemCoupon(ctx, snap.CouponCode, at)
			if err != nil {
				return err
			}
			if !redeemed {
				return domain.NewCouponInvalidError("coupon " + snap.CouponCode + " can no longer be redeemed")
			}
		}

		number, err := repos.Orders.NextOrderNumber(ctx, s.store.OrderPrefix, at.Year())
		if err != nil {
			return err
		}
		order, err = domain.NewOrderFromSnapshot(uuid.NewString(), number, s.store.TenantID, snap, uuid.NewString, at)
		if err != nil {
			return err
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		if err := recordEvent(ctx, repos, order, order.Created(at)); err != nil {
			return err
		}
		metrics.OrderTransitions.WithLabelValues(string(order.Status)).Inc()

		for _, item := range order.Items {
			ok, err := repos.Catalog.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			metrics.StockDecrementFailures.Inc()
			s.logger.Error("STOCK_DECREMENT_FAILED",
				"order_id", order.ID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"message", "order kept; reconcile stock manually",
			)
			if err := recordEvent(ctx, repos, order, order.StockDecrementFailed(item.ProductID, item.Quantity, at)); err != nil {
				return err
			}
		}

		if order.Total == 0 {
			expected := order.Status
			ev, err := order.WaivePayment(at)
			if err != nil {
				return err
			}
			return saveTransition(ctx, repos, order, expected, ev)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("checkout rolled back", "cart_id", cmd.CartID, "error", err)
		return nil, err
	}
	s.invalidate(ctx, cmd.CartID)

	s.logger.Info("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"cart_id", cmd.CartID,
		"total", order.Total,
	)

	result := &CheckoutResult{Order: order}
	if order.Total == 0 {
		s.logger.Info("nothing to collect, order confirmed without payment", "order_id", order.ID)
		return result, nil
	}
	if cmd.Provider == "" {
		return result, nil
	}

	intent, err := s.requestPayment(ctx, order, cmd)
	result.Payment = intent
	if err != nil {
		return result, err
	}
	if result.Order, err = s.repos.Orders.FindByID(ctx, order.ID); err != nil {
		return result, application.NewInternalError(err)
	}
	return result, nil
}

// replay answers a retried checkout whose first attempt already created the
// order.
func (s *CheckoutService) replay(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, bool, error) {
	order, err := s.repos.Orders.FindByCartID(ctx, cmd.CartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, application.NewInternalError(err)
	}
	result := &CheckoutResult{Order: order}
	intent, err := s.repos.Payments.FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
	switch {
	case err == nil:
		if intent.OrderID != order.ID {
			return nil, false, domain.NewIdempotencyMismatchError()
		}
		result.Payment = intent
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, application.NewInternalError(err)
	case cmd.Provider != "" && order.Total > 0:
		// the first attempt created the order but never reached the provider
		result.Payment, err = s.requestPayment(ctx, order, cmd)
		return result, true, err
	}
	return result, true, nil
}

func (s *CheckoutService) requestPayment(ctx context.Context, order *domain.Order, cmd CheckoutCommand) (*domain.PaymentIntent, error) {
	return s.payments.CreatePayment(ctx, CreatePaymentCommand{
		OrderID:        order.ID,
		Amount:         order.Total,
		Currency:       string(order.Currency),
		Provider:       cmd.Provider,
		Description:    "Order " + order.OrderNumber,
		IdempotencyKey: cmd.IdempotencyKey,
	})
}

func (s *CheckoutService) invalidate(ctx context.Context, cartID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.logger.Warn("cart cache invalidation failed", "cart_id", cartID, "error", err)
	}
}
