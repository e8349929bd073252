package services_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CheckoutServiceTestSuite struct {
	serviceSuite
	adapter  *mocks.MockPaymentProvider
	payments *services.PaymentService
	service  *services.CheckoutService
}

func TestCheckoutServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}

func (suite *CheckoutServiceTestSuite) SetupTest() {
	suite.serviceSuite.SetupTest()
	suite.adapter = mocks.NewMockPaymentProvider(suite.T())
	suite.payments = suite.paymentService(testhelpers.RegistryWith(suite.adapter))
	suite.service = services.NewCheckoutService(suite.testDB.DB, suite.payments, nil, suite.store, suite.logger)
}

// ============================================================================
// HAPPY PATH TESTS
// ============================================================================

func (suite *CheckoutServiceTestSuite) Test_Checkout_CreatesOrderAndFreezesCart() {
	t := suite.T()
	ctx := context.Background()
	productID := suite.seedProduct(10)
	cart := suite.cartWith(productID, 3)

	result, err := suite.service.Checkout(ctx, services.CheckoutCommand{CartID: cart.ID})
	require.NoError(t, err)

	order := result.Order
	assert.Nil(t, result.Payment)
	assert.Equal(t, domain.OrderCreated, order.Status)
	assert.Equal(t, fmt.Sprintf("FM-%d-000001", time.Now().Year()), order.OrderNumber)
	assert.Equal(t, cart.Total, order.Total)
	assert.Equal(t, cart.TaxAmount, order.TaxAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)

	frozen, err := suite.repos.Carts.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, frozen.Active)

	product, err := suite.repos.Catalog.FindProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 7, product.Stock)

	assert.Equal(t, []domain.OrderEventType{domain.EventOrderCreated}, suite.eventTypes(order.ID, false))
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_OrderNumbersIncrease() {
	t := suite.T()
	ctx := context.Background()
	productID := suite.seedProduct(-1)

	first, err := suite.service.Checkout(ctx, services.CheckoutCommand{CartID: suite.cartWith(productID, 1).ID})
	require.NoError(t, err)
	second, err := suite.service.Checkout(ctx, services.CheckoutCommand{CartID: suite.cartWith(productID, 1).ID})
	require.NoError(t, err)

	assert.Less(t, first.Order.OrderNumber, second.Order.OrderNumber)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_WithProviderRequestsPayment() {
	t := suite.T()
	ctx := context.Background()
	cart := suite.cartWith(suite.seedProduct(-1), 2)

	suite.adapter.EXPECT().
		CreatePayment(mock.Anything, mock.MatchedBy(func(req application.ProviderPaymentRequest) bool {
			return req.Amount == cart.Total && req.Currency == domain.CurrencyUSD
		})).
		Return(testhelpers.PendingResult("mm-1"), nil).
		Once()

	result, err := suite.service.Checkout(ctx, services.CheckoutCommand{
		CartID:         cart.ID,
		Provider:       string(domain.ProviderMobileMoney),
		IdempotencyKey: "idem-" + uuid.NewString(),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Payment)
	assert.Equal(t, domain.PaymentPending, result.Payment.Status)
	assert.Equal(t, domain.OrderAwaitingPayment, result.Order.Status)
	require.NotNil(t, result.Order.PaymentReference)
	assert.Equal(t, "mm-1", *result.Order.PaymentReference)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_ReplayReturnsSameOrderAndPayment() {
	t := suite.T()
	ctx := context.Background()
	cart := suite.cartWith(suite.seedProduct(-1), 1)
	cmd := services.CheckoutCommand{
		CartID:         cart.ID,
		Provider:       string(domain.ProviderCard),
		IdempotencyKey: "idem-" + uuid.NewString(),
	}

	suite.adapter.EXPECT().
		CreatePayment(mock.Anything, mock.Anything).
		Return(testhelpers.PendingResult("pi-1"), nil).
		Once()

	first, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)
	second, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.Order.ID, second.Order.ID)
	require.NotNil(t, second.Payment)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_FreeOrderIsConfirmedWithoutPayment() {
	t := suite.T()
	ctx := context.Background()
	testhelpers.SeedFixedCoupon(t, suite.testDB.DB, "FREE", 100000, nil)
	cart := suite.cartWith(suite.seedProduct(-1), 1)
	_, _, err := suite.cartService().ApplyCoupon(ctx, cart.ID, "FREE")
	require.NoError(t, err)

	result, err := suite.service.Checkout(ctx, services.CheckoutCommand{
		CartID:   cart.ID,
		Provider: string(domain.ProviderCard),
	})
	require.NoError(t, err)

	assert.Zero(t, result.Order.Total)
	assert.Nil(t, result.Payment)
	assert.Equal(t, domain.OrderPaid, result.Order.Status)
	assert.NotNil(t, result.Order.PaymentConfirmedAt)
	assert.Equal(t, []domain.OrderEventType{
		domain.EventOrderCreated,
		domain.EventPaymentConfirmed,
	}, suite.eventTypes(result.Order.ID, true))

	orders := services.NewOrderService(suite.testDB.DB, suite.payments, suite.logger)
	processing, err := orders.StartProcessing(ctx, result.Order.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, processing.Status)
}

// ============================================================================
// EDGE CASE TESTS
// ============================================================================

func (suite *CheckoutServiceTestSuite) Test_Checkout_EmptyCart() {
	t := suite.T()
	ctx := context.Background()
	cart, err := suite.cartService().CreateCart(ctx, "customer-1", "USD")
	require.NoError(t, err)

	_, err = suite.service.Checkout(ctx, services.CheckoutCommand{CartID: cart.ID})

	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_TwiceWithoutKeyFails() {
	t := suite.T()
	ctx := context.Background()
	cart := suite.cartWith(suite.seedProduct(-1), 1)

	_, err := suite.service.Checkout(ctx, services.CheckoutCommand{CartID: cart.ID})
	require.NoError(t, err)
	_, err = suite.service.Checkout(ctx, services.CheckoutCommand{CartID: cart.ID})

	assert.ErrorIs(t, err, domain.ErrInactive)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_UnknownProvider() {
	t := suite.T()
	cart := suite.cartWith(suite.seedProduct(-1), 1)

	_, err := suite.service.Checkout(context.Background(), services.CheckoutCommand{CartID: cart.ID, Provider: "cheque"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_ExhaustedCouponRollsBack() {
	t := suite.T()
	ctx := context.Background()
	limit := 1
	testhelpers.SeedFixedCoupon(t, suite.testDB.DB, "ONCE", 500, &limit)
	productID := suite.seedProduct(10)
	carts := suite.cartService()

	first := suite.cartWith(productID, 1)
	second := suite.cartWith(productID, 1)
	for _, c := range []*domain.Cart{first, second} {
		result, _, err := carts.ApplyCoupon(ctx, c.ID, "ONCE")
		require.NoError(t, err)
		require.True(t, result.Valid)
	}

	_, err := suite.service.Checkout(ctx, services.CheckoutCommand{CartID: first.ID})
	require.NoError(t, err)

	_, err = suite.service.Checkout(ctx, services.CheckoutCommand{CartID: second.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCouponInvalid)

	cart, err := suite.repos.Carts.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, cart.Active, "failed checkout leaves the cart active")

	product, err := suite.repos.Catalog.FindProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 9, product.Stock, "only the successful checkout took stock")
}

// ============================================================================
// FAILURE RECOVERY TESTS
// ============================================================================

func (suite *CheckoutServiceTestSuite) Test_Checkout_DeclinedPaymentKeepsOrder() {
	t := suite.T()
	ctx := context.Background()
	cart := suite.cartWith(suite.seedProduct(-1), 1)

	suite.adapter.EXPECT().
		CreatePayment(mock.Anything, mock.Anything).
		Return(nil, &application.ProviderError{
			Provider:   domain.ProviderCard,
			Code:       "card_declined",
			Message:    "do not honour",
			StatusCode: http.StatusPaymentRequired,
		}).
		Once()

	result, err := suite.service.Checkout(ctx, services.CheckoutCommand{
		CartID:   cart.ID,
		Provider: string(domain.ProviderCard),
	})

	require.Error(t, err)
	providerErr, ok := application.IsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "card_declined", providerErr.Code)
	assert.Equal(t, http.StatusPaymentRequired, application.ToHTTPStatus(err))

	require.NotNil(t, result)
	require.NotNil(t, result.Payment)
	assert.Equal(t, domain.PaymentFailed, result.Payment.Status)

	order, err := suite.repos.Orders.FindByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCreated, order.Status)
	assert.Contains(t, suite.eventTypes(order.ID, true), domain.EventPaymentFailed)
}

// ============================================================================
// CONCURRENCY TESTS
// ============================================================================

func (suite *CheckoutServiceTestSuite) Test_Checkout_ConcurrentCheckoutsNeverOversell() {
	t := suite.T()
	ctx := context.Background()
	const stock, buyers = 5, 12
	productID := suite.seedProduct(stock)

	carts := make([]*domain.Cart, buyers)
	for i := range carts {
		carts[i] = suite.cartWith(productID, 1)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []*domain.Order
	)
	for _, c := range carts {
		wg.Add(1)
		go func(cartID string) {
			defer wg.Done()
			result, err := suite.service.Checkout(ctx, services.CheckoutCommand{CartID: cartID})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			orders = append(orders, result.Order)
			mu.Unlock()
		}(c.ID)
	}
	wg.Wait()

	product, err := suite.repos.Catalog.FindProduct(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)

	failed := 0
	for _, o := range orders {
		all := suite.eventTypes(o.ID, false)
		visible := suite.eventTypes(o.ID, true)
		if all[len(all)-1] == domain.EventStockDecrementFailed {
			failed++
			assert.NotContains(t, visible, domain.EventStockDecrementFailed)
		}
	}
	assert.Len(t, orders, buyers)
	assert.Equal(t, buyers-stock, failed)
}
