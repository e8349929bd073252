package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest/router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RouterTestSuite struct {
	suite.Suite
	testDB  *testhelpers.TestDatabase
	handler http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDatabase(s.T())

	db := s.testDB.DB
	logger := testhelpers.Logger()
	store := testhelpers.StoreConfig()

	payments := services.NewPaymentService(db, testhelpers.MockModeRegistry(), store, testhelpers.ProvidersConfig(), logger)
	h := handlers.NewHandlers(
		services.NewCartService(db, nil, store, logger),
		services.NewCheckoutService(db, payments, nil, store, logger),
		services.NewOrderService(db, payments, logger),
		payments,
		services.NewQueryService(db),
		logger,
	)

	handler, err := router.New(context.Background(), h, router.Options{RequestTimeout: 10 * time.Second}, logger)
	s.Require().NoError(err)
	s.handler = handler
}

func (s *RouterTestSuite) TearDownSuite() {
	s.testDB.Cleanup(s.T())
}

func (s *RouterTestSuite) SetupTest() {
	s.testDB.CleanTables(s.T())
}

func (s *RouterTestSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorDetail {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	assert.False(t, resp.Success)
	return resp.Error
}

func (s *RouterTestSuite) newCartWithItem() api.Cart {
	productID := "sku-" + uuid.NewString()[:8]
	testhelpers.SeedProduct(s.T(), s.testDB.DB, productID, 2500, "0.14", 10)

	rec := s.do(http.MethodPost, "/v1/carts", api.CreateCartRequest{OwnerID: "customer-1", Currency: "USD"}, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	cart := decodeData[api.Cart](s.T(), rec)

	rec = s.do(http.MethodPost, "/v1/carts/"+cart.ID+"/items", api.AddItemRequest{ProductID: productID, Quantity: 2}, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	return decodeData[api.Cart](s.T(), rec)
}

func (s *RouterTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterTestSuite) TestDocsServed() {
	rec := s.do(http.MethodGet, "/docs/openapi.yaml", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "openapi: 3.0.3")
}

func (s *RouterTestSuite) TestCartPricing() {
	cart := s.newCartWithItem()

	s.Equal(int64(5000), cart.Subtotal)
	s.Equal(int64(614), cart.TaxAmount)
	s.Equal(int64(5000), cart.Total, "tax is carried inside the line prices")
	s.Require().Len(cart.Lines, 1)
}

func (s *RouterTestSuite) TestRequestValidation() {
	rec := s.do(http.MethodPost, "/v1/carts", map[string]any{"currency": 840}, nil)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_INPUT", decodeError(s.T(), rec).Code)
}

func (s *RouterTestSuite) TestMissingRequiredBody() {
	rec := s.do(http.MethodPost, "/v1/carts", []byte(""), map[string]string{"Content-Type": "application/json"})

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestUnknownCart() {
	rec := s.do(http.MethodGet, "/v1/carts/"+uuid.NewString(), nil, nil)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("NOT_FOUND", decodeError(s.T(), rec).Code)
}

func (s *RouterTestSuite) TestCheckoutAndWebhookFlow() {
	cart := s.newCartWithItem()

	rec := s.do(http.MethodPost, "/v1/carts/"+cart.ID+"/checkout",
		api.CheckoutRequest{Provider: "mobile_money"},
		map[string]string{"Idempotency-Key": "checkout-" + uuid.NewString()},
	)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeData[api.CheckoutResult](s.T(), rec)

	s.Equal("awaiting_payment", result.Order.Status)
	s.Require().NotNil(result.Payment)
	s.Equal("pending", result.Payment.Status)
	s.Equal(result.Order.Total, result.Payment.Amount)
	s.NotEmpty(result.Payment.NextAction)
	s.Require().NotNil(result.Payment.ProviderRef)

	payload, sig := testhelpers.Signed(`{"event_id":"evt-1","payment_id":"` + *result.Payment.ProviderRef + `","status":"SUCCESSFUL"}`)
	headers := map[string]string{"X-Callback-Signature": sig}

	rec = s.do(http.MethodPost, "/webhooks/mobile_money", payload, headers)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var ack api.WebhookAck
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &ack))
	s.Equal("applied", ack.Outcome)

	rec = s.do(http.MethodPost, "/webhooks/mobile_money", payload, headers)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &ack))
	s.Equal("duplicate", ack.Outcome)

	rec = s.do(http.MethodGet, "/v1/orders/"+result.Order.ID, nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	order := decodeData[api.Order](s.T(), rec)
	s.Equal("paid", order.Status)

	rec = s.do(http.MethodGet, "/v1/orders/"+result.Order.ID+"/events?customer_visible_only=true", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	events := decodeData[[]api.OrderEvent](s.T(), rec)
	s.NotEmpty(events)
}

func (s *RouterTestSuite) TestWebhookWithBadSignatureIsAcknowledged() {
	rec := s.do(http.MethodPost, "/webhooks/card", []byte(`{"id":"evt"}`), map[string]string{"X-Card-Signature": "deadbeef"})

	s.Require().Equal(http.StatusOK, rec.Code)
	var ack api.WebhookAck
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &ack))
	s.Equal("rejected", ack.Outcome)
}

func (s *RouterTestSuite) TestWebhookForUnknownProvider() {
	rec := s.do(http.MethodPost, "/webhooks/carrier-pigeon", []byte(`{}`), nil)

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterTestSuite) TestBankTransferNeedsOperator() {
	cart := s.newCartWithItem()

	rec := s.do(http.MethodPost, "/v1/carts/"+cart.ID+"/checkout",
		api.CheckoutRequest{Provider: "bank_transfer"},
		map[string]string{"Idempotency-Key": "checkout-" + uuid.NewString()},
	)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeData[api.CheckoutResult](s.T(), rec)
	s.Require().NotNil(result.Payment)

	path := "/v1/admin/payments/" + result.Payment.ID + "/confirm"

	rec = s.do(http.MethodPost, path, api.ConfirmTransferRequest{BankReference: "TRX-1"}, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, path, api.ConfirmTransferRequest{BankReference: "TRX-1"}, map[string]string{"X-Operator-ID": "ops-7"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	payment := decodeData[api.Payment](s.T(), rec)
	s.Equal("completed", payment.Status)
	s.Require().NotNil(payment.ConfirmedBy)
	s.Equal("ops-7", *payment.ConfirmedBy)
}

func (s *RouterTestSuite) TestOrderTransitionRejected() {
	cart := s.newCartWithItem()

	rec := s.do(http.MethodPost, "/v1/carts/"+cart.ID+"/checkout", nil, nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeData[api.CheckoutResult](s.T(), rec)

	rec = s.do(http.MethodPost, "/v1/orders/"+result.Order.ID+"/dispatch", api.DispatchRequest{TrackingNumber: "TRK"}, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("INVALID_TRANSITION", decodeError(s.T(), rec).Code)
}
