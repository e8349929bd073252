package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CartService owns cart mutations. Postgres is the source of truth; the
// cache only serves GetCart and is invalidated after every write.
type CartService struct {
	coordinator *postgres.TransactionCoordinator
	repos       postgres.Repositories
	cache       application.CartCache
	store       config.StoreConfig
	group       singleflight.Group
	logger      *slog.Logger
}

func NewCartService(
	db *postgres.DB,
	cache application.CartCache,
	store config.StoreConfig,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		coordinator: postgres.NewTransactionCoordinator(db),
		repos:       postgres.NewRepositories(db.Pool),
		cache:       cache,
		store:       store,
		logger:      logger,
	}
}

func (s *CartService) CreateCart(ctx context.Context, ownerID, currency string) (*domain.Cart, error) {
	c, err := domain.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}
	cart, err := domain.NewCart(uuid.NewString(), ownerID, c, s.store.CartTTL, now())
	if err != nil {
		return nil, err
	}
	if err := s.repos.Carts.Create(ctx, cart); err != nil {
		return nil, application.NewInternalError(err)
	}
	s.logger.Info("cart created", "cart_id", cart.ID, "currency", cart.Currency)
	return cart, nil
}

// GetCart reads through the cache. Concurrent misses for the same cart share
// one database read. A cart past its TTL is returned as inactive.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var fillToken int64
	if s.cache != nil {
		cart, token, err := s.cache.Get(ctx, cartID)
		fillToken = token
		switch {
		case err != nil:
			s.logger.Warn("cart cache read failed", "cart_id", cartID, "error", err)
		case cart != nil:
			metrics.CartCacheLookups.WithLabelValues("hit").Inc()
			return withExpiry(cart), nil
		default:
			metrics.CartCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	v, err, _ := s.group.Do(cartID, func() (any, error) {
		cart, err := s.repos.Carts.FindByID(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, cart, fillToken); err != nil {
				s.logger.Warn("cart cache write failed", "cart_id", cartID, "error", err)
			}
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return withExpiry(v.(*domain.Cart)), nil
}

func withExpiry(cart *domain.Cart) *domain.Cart {
	if !cart.Active || !cart.IsExpired(now()) {
		return cart
	}
	c := *cart
	c.Active = false
	return &c
}

func (s *CartService) AddItem(ctx context.Context, cartID, productID string, quantity int, options map[string]any) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, repos postgres.Repositories, cart *domain.Cart, at time.Time) error {
		product, err := repos.Catalog.FindProduct(ctx, productID)
		if err != nil {
			return err
		}
		_, err = cart.AddLine(uuid.NewString(), product, quantity, options, at)
		return err
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, lineID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, repos postgres.Repositories, cart *domain.Cart, at time.Time) error {
		line, ok := cart.Line(lineID)
		if !ok {
			return domain.NewNotFoundError("cart line", lineID)
		}
		var product *domain.Product
		if quantity > 0 {
			var err error
			if product, err = repos.Catalog.FindProduct(ctx, line.ProductID); err != nil {
				return err
			}
		}
		return cart.UpdateQuantity(lineID, quantity, product, at)
	})
}

// ApplyCoupon replaces the cart's coupon when code is valid for the current
// subtotal. An invalid code leaves the cart untouched and is reported in the
// result rather than as an error.
func (s *CartService) ApplyCoupon(ctx context.Context, cartID, code string) (domain.CouponResult, *domain.Cart, error) {
	var result domain.CouponResult
	code = strings.TrimSpace(code)
	cart, err := s.mutate(ctx, cartID, func(ctx context.Context, repos postgres.Repositories, cart *domain.Cart, at time.Time) error {
		if code == "" {
			return domain.NewMissingRequiredFieldError("code")
		}
		coupon, err := repos.Catalog.FindCoupon(ctx, code)
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodeNotFound) {
				result = domain.CouponResult{Valid: false, Error: "coupon not found"}
				return nil
			}
			return err
		}
		result, err = cart.ApplyCoupon(coupon, at)
		return err
	})
	if err != nil {
		return domain.CouponResult{}, nil, err
	}
	return result, cart, nil
}

func (s *CartService) RemoveCoupon(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, func(_ context.Context, _ postgres.Repositories, cart *domain.Cart, at time.Time) error {
		return cart.RemoveCoupon(at)
	})
}

// SetCurrency reprices every line and the delivery cost in currency.
func (s *CartService) SetCurrency(ctx context.Context, cartID, currency string) (*domain.Cart, error) {
	c, err := domain.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(ctx context.Context, repos postgres.Repositories, cart *domain.Cart, at time.Time) error {
		ids := make([]string, 0, len(cart.Lines))
		for _, l := range cart.Lines {
			ids = append(ids, l.ProductID)
		}
		products := map[string]*domain.Product{}
		if len(ids) > 0 {
			var err error
			if products, err = repos.Catalog.FindProducts(ctx, ids); err != nil {
				return err
			}
		}
		if err := cart.Reprice(c, products, at); err != nil {
			return err
		}
		cost, err := s.deliveryCost(cart.DeliveryMethod, c)
		if err != nil {
			return err
		}
		return cart.SetDelivery(cart.DeliveryMethod, cost, at)
	})
}

func (s *CartService) SetDelivery(ctx context.Context, cartID, method string) (*domain.Cart, error) {
	m, err := domain.ParseDeliveryMethod(method)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(_ context.Context, _ postgres.Repositories, cart *domain.Cart, at time.Time) error {
		cost, err := s.deliveryCost(m, cart.Currency)
		if err != nil {
			return err
		}
		return cart.SetDelivery(m, cost, at)
	})
}

func (s *CartService) deliveryCost(method domain.DeliveryMethod, currency domain.Currency) (int64, error) {
	cost, err := s.store.DeliveryRate(string(method), string(currency))
	if err != nil {
		return 0, domain.NewInvalidInputError("%v", err)
	}
	return cost, nil
}

// mutate runs fn against the locked cart and saves the result in one
// transaction, then drops the cached copy.
func (s *CartService) mutate(
	ctx context.Context,
	cartID string,
	fn func(ctx context.Context, repos postgres.Repositories, cart *domain.Cart, at time.Time) error,
) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		var err error
		cart, err = repos.Carts.FindByIDForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		at := now()
		if err := cart.EnsureMutable(at); err != nil {
			return err
		}
		if err := fn(ctx, repos, cart, at); err != nil {
			return err
		}
		return repos.Carts.Save(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cartID)
	return cart, nil
}

func (s *CartService) invalidate(ctx context.Context, cartID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.logger.Warn("cart cache invalidation failed", "cart_id", cartID, "error", err)
	}
}
