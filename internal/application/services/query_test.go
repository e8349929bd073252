package services_test

import (
	"context"
	"testing"
	"time"

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

type QueryServiceTestSuite struct {
	serviceSuite
	service *services.QueryService
}

func TestQueryServiceSuite(t *testing.T) {
	suite.Run(t, new(QueryServiceTestSuite))
}

func (suite *QueryServiceTestSuite) SetupTest() {
	suite.serviceSuite.SetupTest()
	suite.service = services.NewQueryService(suite.testDB.DB)
}

func (suite *QueryServiceTestSuite) Test_GetOrder() {
	t := suite.T()
	order := suite.placeOrder(suite.paymentService(testhelpers.MockModeRegistry()))

	got, err := suite.service.GetOrder(context.Background(), order.ID)

	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	assert.Len(t, got.Items, 1)
}

func (suite *QueryServiceTestSuite) Test_GetOrder_NotFound() {
	_, err := suite.service.GetOrder(context.Background(), uuid.NewString())

	assert.ErrorIs(suite.T(), err, domain.ErrNotFound)
}

func (suite *QueryServiceTestSuite) Test_ListEvents_VisibilityFilter() {
	t := suite.T()
	ctx := context.Background()
	productID := suite.seedProduct(1)
	cart := suite.cartWith(productID, 1)
	checkout := services.NewCheckoutService(suite.testDB.DB, suite.paymentService(testhelpers.MockModeRegistry()), nil, suite.store, suite.logger)

	// the stock runs out between adding and checkout
	_, err := suite.testDB.DB.Pool.Exec(ctx, `UPDATE products SET stock = 0 WHERE id = $1`, productID)
	require.NoError(t, err)
	result, err := checkout.Checkout(ctx, services.CheckoutCommand{CartID: cart.ID})
	require.NoError(t, err)

	all, err := suite.service.ListEvents(ctx, result.Order.ID, false)
	require.NoError(t, err)
	visible, err := suite.service.ListEvents(ctx, result.Order.ID, true)
	require.NoError(t, err)

	assert.Len(t, all, 2)
	require.Len(t, visible, 1)
	assert.Equal(t, domain.EventOrderCreated, visible[0].Type)
}

func (suite *QueryServiceTestSuite) Test_ListEvents_UnknownOrder() {
	_, err := suite.service.ListEvents(context.Background(), uuid.NewString(), true)

	assert.ErrorIs(suite.T(), err, domain.ErrNotFound)
}

func (suite *QueryServiceTestSuite) Test_GetPayment_ExpiredReadsCancelled() {
	t := suite.T()
	ctx := context.Background()
	adapter := mocks.NewMockPaymentProvider(t)
	store := suite.store
	store.PaymentExpiry = -time.Minute
	payments := services.NewPaymentService(suite.testDB.DB, testhelpers.RegistryWith(adapter), store, testhelpers.ProvidersConfig(), suite.logger)
	order := suite.placeOrder(payments)

	adapter.EXPECT().
		CreatePayment(mock.Anything, mock.Anything).
		Return(testhelpers.PendingResult("pi-1"), nil).
		Once()
	intent, err := payments.CreatePayment(ctx, services.CreatePaymentCommand{
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: string(order.Currency),
		Provider: string(domain.ProviderCard),
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPending, intent.Status)

	got, err := suite.service.GetPayment(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, got.Status)

	listed, err := suite.service.ListPayments(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.PaymentCancelled, listed[0].Status)

	stored, err := suite.repos.Payments.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.Status, "reads do not write")
}

func (suite *QueryServiceTestSuite) Test_GetPayment_NotFound() {
	_, err := suite.service.GetPayment(context.Background(), uuid.NewString())

	assert.ErrorIs(suite.T(), err, domain.ErrNotFound)
}
