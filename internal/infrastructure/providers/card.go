package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
)

// CardAdapter creates a payment intent that the customer's browser confirms
// with the returned client secret. The result is delivered by webhook.
type CardAdapter struct {
	client *restClient
	secret string
}

type cardIntentRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

type cardIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

type cardRefundRequest struct {
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason,omitempty"`
}

type cardRefund struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
}

type cardWebhook struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string `json:"id"`
			LastPaymentError *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

var cardStatuses = map[string]domain.PaymentStatus{
	"requires_payment_method": domain.PaymentPending,
	"requires_confirmation":   domain.PaymentPending,
	"requires_action":         domain.PaymentPending,
	"processing":              domain.PaymentProcessing,
	"succeeded":               domain.PaymentCompleted,
	"canceled":                domain.PaymentCancelled,
	"payment_failed":          domain.PaymentFailed,
}

var cardEvents = map[string]domain.PaymentStatus{
	"payment_intent.processing":     domain.PaymentProcessing,
	"payment_intent.succeeded":      domain.PaymentCompleted,
	"payment_intent.payment_failed": domain.PaymentFailed,
	"payment_intent.canceled":       domain.PaymentCancelled,
}

func NewCardAdapter(cfg config.ProviderConfig, mockSecret string) *CardAdapter {
	if !cfg.Live() {
		return &CardAdapter{secret: mockSecret}
	}
	return &CardAdapter{
		client: newRestClient(domain.ProviderCard, cfg),
		secret: cfg.WebhookSecret,
	}
}

func (a *CardAdapter) CreatePayment(ctx context.Context, req application.ProviderPaymentRequest) (*application.ProviderPaymentResult, error) {
	if a.client == nil {
		if err := mockDecline(domain.ProviderCard, req.Amount); err != nil {
			return nil, err
		}
		ref := MockRef("pi", req.IntentID)
		return &application.ProviderPaymentResult{
			ProviderRef: ref,
			Status:      domain.PaymentPending,
			NextAction:  map[string]string{domain.MetaClientSecret: ref + "_secret_mock"},
		}, nil
	}

	body := cardIntentRequest{
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		Description: req.Description,
		Metadata: map[string]string{
			"intent_id":    req.IntentID,
			"order_id":     req.OrderID,
			"order_number": req.OrderNumber,
		},
	}
	resp, err := send[cardIntentRequest, cardIntent](ctx, a.client, http.MethodPost, "/v1/payment_intents", &body, req.IntentID)
	if err != nil {
		return nil, err
	}

	status, err := mapStatus(domain.ProviderCard, cardStatuses, resp.Status)
	if err != nil {
		return nil, err
	}
	return &application.ProviderPaymentResult{
		ProviderRef: resp.ID,
		Status:      status,
		NextAction:  map[string]string{domain.MetaClientSecret: resp.ClientSecret},
	}, nil
}

func (a *CardAdapter) CheckStatus(ctx context.Context, providerRef string) (domain.PaymentStatus, error) {
	if a.client == nil {
		return domain.PaymentPending, nil
	}
	resp, err := send[any, cardIntent](ctx, a.client, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(providerRef), nil, "")
	if err != nil {
		return "", err
	}
	return mapStatus(domain.ProviderCard, cardStatuses, resp.Status)
}

func (a *CardAdapter) Refund(ctx context.Context, req application.ProviderRefundRequest) (*application.ProviderRefundResult, error) {
	if a.client == nil {
		return &application.ProviderRefundResult{
			RefundRef:  mockRefundRef("re", req),
			RefundedAt: time.Now().UTC(),
		}, nil
	}

	body := cardRefundRequest{
		PaymentIntent: req.ProviderRef,
		Amount:        req.Amount,
		Reason:        req.Reason,
	}
	resp, err := send[cardRefundRequest, cardRefund](ctx, a.client, http.MethodPost, "/v1/refunds", &body, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &application.ProviderRefundResult{
		RefundRef:  resp.ID,
		RefundedAt: time.Unix(resp.Created, 0).UTC(),
	}, nil
}

func (a *CardAdapter) VerifyWebhook(payload []byte, signature string) bool {
	return verifySignature(a.secret, payload, signature)
}

// DecodeCardWebhook reads a payment_intent.* event. Other event types are
// reported as errors and ignored by the caller.
func DecodeCardWebhook(payload []byte) (*application.WebhookEvent, error) {
	var hook cardWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("decoding card webhook: %w", err)
	}
	status, ok := cardEvents[hook.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported card event type %q", hook.Type)
	}
	obj := hook.Data.Object
	if obj.ID == "" {
		return nil, errors.New("card webhook without payment intent id")
	}

	event := &application.WebhookEvent{
		EventID:     hook.ID,
		ProviderRef: obj.ID,
		Status:      status,
	}
	if obj.LastPaymentError != nil {
		event.ErrorCode = obj.LastPaymentError.Code
		event.ErrorMessage = obj.LastPaymentError.Message
	}
	return event, nil
}
