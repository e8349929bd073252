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

// WalletAdapter sends the customer to the wallet's approval page. The
// outcome arrives by webhook or is polled.
type WalletAdapter struct {
	client    *restClient
	secret    string
	returnURL string
}

type walletOrderRequest struct {
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	ReturnURL   string `json:"return_url,omitempty"`
}

type walletLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type walletOrder struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []walletLink `json:"links"`
}

type walletRefundRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Note     string `json:"note_to_payer,omitempty"`
}

type walletRefund struct {
	ID         string    `json:"id"`
	CreateTime time.Time `json:"create_time"`
}

type walletWebhook struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID           string `json:"id"`
		StatusReason string `json:"status_reason"`
	} `json:"resource"`
}

var walletStatuses = map[string]domain.PaymentStatus{
	"CREATED":               domain.PaymentPending,
	"PAYER_ACTION_REQUIRED": domain.PaymentPending,
	"APPROVED":              domain.PaymentProcessing,
	"COMPLETED":             domain.PaymentCompleted,
	"DECLINED":              domain.PaymentFailed,
	"VOIDED":                domain.PaymentCancelled,
}

var walletEvents = map[string]domain.PaymentStatus{
	"CHECKOUT.ORDER.APPROVED":   domain.PaymentProcessing,
	"PAYMENT.CAPTURE.COMPLETED": domain.PaymentCompleted,
	"PAYMENT.CAPTURE.DENIED":    domain.PaymentFailed,
	"CHECKOUT.ORDER.VOIDED":     domain.PaymentCancelled,
}

func NewWalletAdapter(cfg config.ProviderConfig, mockSecret string) *WalletAdapter {
	if !cfg.Live() {
		return &WalletAdapter{secret: mockSecret, returnURL: cfg.ReturnURL}
	}
	return &WalletAdapter{
		client:    newRestClient(domain.ProviderWallet, cfg),
		secret:    cfg.WebhookSecret,
		returnURL: cfg.ReturnURL,
	}
}

func (a *WalletAdapter) CreatePayment(ctx context.Context, req application.ProviderPaymentRequest) (*application.ProviderPaymentResult, error) {
	if a.client == nil {
		if err := mockDecline(domain.ProviderWallet, req.Amount); err != nil {
			return nil, err
		}
		ref := MockRef("wo", req.IntentID)
		return &application.ProviderPaymentResult{
			ProviderRef: ref,
			Status:      domain.PaymentPending,
			NextAction: map[string]string{
				domain.MetaRedirectURL: "https://wallet.mock/checkout?token=" + url.QueryEscape(ref),
			},
		}, nil
	}

	body := walletOrderRequest{
		ReferenceID: req.IntentID,
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		Description: req.Description,
		ReturnURL:   a.returnURL,
	}
	resp, err := send[walletOrderRequest, walletOrder](ctx, a.client, http.MethodPost, "/v2/checkout/orders", &body, req.IntentID)
	if err != nil {
		return nil, err
	}

	status, err := mapStatus(domain.ProviderWallet, walletStatuses, resp.Status)
	if err != nil {
		return nil, err
	}
	var approve string
	for _, link := range resp.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			approve = link.Href
			break
		}
	}
	return &application.ProviderPaymentResult{
		ProviderRef: resp.ID,
		Status:      status,
		NextAction:  map[string]string{domain.MetaRedirectURL: approve},
	}, nil
}

func (a *WalletAdapter) CheckStatus(ctx context.Context, providerRef string) (domain.PaymentStatus, error) {
	if a.client == nil {
		return domain.PaymentPending, nil
	}
	resp, err := send[any, walletOrder](ctx, a.client, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(providerRef), nil, "")
	if err != nil {
		return "", err
	}
	return mapStatus(domain.ProviderWallet, walletStatuses, resp.Status)
}

func (a *WalletAdapter) Refund(ctx context.Context, req application.ProviderRefundRequest) (*application.ProviderRefundResult, error) {
	if a.client == nil {
		return &application.ProviderRefundResult{
			RefundRef:  mockRefundRef("wr", req),
			RefundedAt: time.Now().UTC(),
		}, nil
	}

	body := walletRefundRequest{
		Amount:   req.Amount,
		Currency: string(req.Currency),
		Note:     req.Reason,
	}
	path := "/v2/checkout/orders/" + url.PathEscape(req.ProviderRef) + "/refunds"
	resp, err := send[walletRefundRequest, walletRefund](ctx, a.client, http.MethodPost, path, &body, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &application.ProviderRefundResult{RefundRef: resp.ID, RefundedAt: resp.CreateTime}, nil
}

func (a *WalletAdapter) VerifyWebhook(payload []byte, signature string) bool {
	return verifySignature(a.secret, payload, signature)
}

// DecodeWalletWebhook reads a wallet order or capture event.
func DecodeWalletWebhook(payload []byte) (*application.WebhookEvent, error) {
	var hook walletWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("decoding wallet webhook: %w", err)
	}
	status, ok := walletEvents[hook.EventType]
	if !ok {
		return nil, fmt.Errorf("unsupported wallet event type %q", hook.EventType)
	}
	if hook.Resource.ID == "" {
		return nil, errors.New("wallet webhook without resource id")
	}

	event := &application.WebhookEvent{
		EventID:     hook.ID,
		ProviderRef: hook.Resource.ID,
		Status:      status,
	}
	if status == domain.PaymentFailed {
		event.ErrorCode = "payment_rejected"
		event.ErrorMessage = hook.Resource.StatusReason
	}
	return event, nil
}
