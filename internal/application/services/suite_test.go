package services_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// serviceSuite owns the database container shared by every test of one
// suite. Concrete suites embed it and build their services per test.
type serviceSuite struct {
	suite.Suite
	testDB *testhelpers.TestDatabase
	repos  postgres.Repositories
	store  config.StoreConfig
	logger *slog.Logger
}

func (s *serviceSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDatabase(s.T())
	s.repos = postgres.NewRepositories(s.testDB.DB.Pool)
	s.store = testhelpers.StoreConfig()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func (s *serviceSuite) TearDownSuite() {
	s.testDB.Cleanup(s.T())
}

func (s *serviceSuite) SetupTest() {
	s.testDB.CleanTables(s.T())
}

func (s *serviceSuite) paymentService(registry application.ProviderRegistry) *services.PaymentService {
	return services.NewPaymentService(s.testDB.DB, registry, s.store, testhelpers.ProvidersConfig(), s.logger)
}

func (s *serviceSuite) cartService() *services.CartService {
	return services.NewCartService(s.testDB.DB, nil, s.store, s.logger)
}

// seedProduct stores a USD 25.00 product at 14% tax. A negative stock leaves
// inventory untracked.
func (s *serviceSuite) seedProduct(stock int) string {
	id := "sku-" + uuid.NewString()[:8]
	testhelpers.SeedProduct(s.T(), s.testDB.DB, id, 2500, "0.14", stock)
	return id
}

// cartWith returns an active USD cart holding quantity units of productID.
func (s *serviceSuite) cartWith(productID string, quantity int) *domain.Cart {
	ctx := context.Background()
	carts := s.cartService()

	cart, err := carts.CreateCart(ctx, "customer-1", "USD")
	s.Require().NoError(err)
	cart, err = carts.AddItem(ctx, cart.ID, productID, quantity, nil)
	s.Require().NoError(err)
	return cart
}

// placeOrder checks out a fresh two-unit cart without requesting payment.
func (s *serviceSuite) placeOrder(payments *services.PaymentService) *domain.Order {
	cart := s.cartWith(s.seedProduct(-1), 2)
	checkout := services.NewCheckoutService(s.testDB.DB, payments, nil, s.store, s.logger)

	result, err := checkout.Checkout(context.Background(), services.CheckoutCommand{CartID: cart.ID})
	s.Require().NoError(err)
	return result.Order
}

func (s *serviceSuite) eventTypes(orderID string, visibleOnly bool) []domain.OrderEventType {
	events, err := s.repos.Orders.ListEvents(context.Background(), orderID, visibleOnly)
	s.Require().NoError(err)
	out := make([]domain.OrderEventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}
