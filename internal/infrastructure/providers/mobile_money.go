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

// MobileMoneyAdapter pushes a QR payment request to the customer's wallet
// app. Confirmation arrives by webhook or is polled.
type MobileMoneyAdapter struct {
	client *restClient
	secret string
}

type mobileMoneyPaymentRequest struct {
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type mobileMoneyPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	QRCode string `json:"qr_code"`
}

type mobileMoneyRefundRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason,omitempty"`
}

type mobileMoneyRefund struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type mobileMoneyWebhook struct {
	EventID    string `json:"event_id"`
	PaymentID  string `json:"payment_id"`
	Status     string `json:"status"`
	ReasonCode string `json:"reason_code"`
	Reason     string `json:"reason"`
}

var mobileMoneyStatuses = map[string]domain.PaymentStatus{
	"PENDING":    domain.PaymentPending,
	"PROCESSING": domain.PaymentProcessing,
	"SUCCESSFUL": domain.PaymentCompleted,
	"FAILED":     domain.PaymentFailed,
	"EXPIRED":    domain.PaymentCancelled,
	"CANCELLED":  domain.PaymentCancelled,
}

func NewMobileMoneyAdapter(cfg config.ProviderConfig, mockSecret string) *MobileMoneyAdapter {
	if !cfg.Live() {
		return &MobileMoneyAdapter{secret: mockSecret}
	}
	return &MobileMoneyAdapter{
		client: newRestClient(domain.ProviderMobileMoney, cfg),
		secret: cfg.WebhookSecret,
	}
}

func (a *MobileMoneyAdapter) CreatePayment(ctx context.Context, req application.ProviderPaymentRequest) (*application.ProviderPaymentResult, error) {
	if a.client == nil {
		if err := mockDecline(domain.ProviderMobileMoney, req.Amount); err != nil {
			return nil, err
		}
		ref := MockRef("mm", req.IntentID)
		return &application.ProviderPaymentResult{
			ProviderRef: ref,
			Status:      domain.PaymentPending,
			NextAction: map[string]string{
				domain.MetaQRCode: fmt.Sprintf("MOCKQR|%s|%d|%s", ref, req.Amount, req.Currency),
			},
		}, nil
	}

	body := mobileMoneyPaymentRequest{
		Reference:   req.IntentID,
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		Description: req.Description,
	}
	resp, err := send[mobileMoneyPaymentRequest, mobileMoneyPayment](ctx, a.client, http.MethodPost, "/v1/payments", &body, req.IntentID)
	if err != nil {
		return nil, err
	}

	status, err := mapStatus(domain.ProviderMobileMoney, mobileMoneyStatuses, resp.Status)
	if err != nil {
		return nil, err
	}
	return &application.ProviderPaymentResult{
		ProviderRef: resp.ID,
		Status:      status,
		NextAction:  map[string]string{domain.MetaQRCode: resp.QRCode},
	}, nil
}

func (a *MobileMoneyAdapter) CheckStatus(ctx context.Context, providerRef string) (domain.PaymentStatus, error) {
	if a.client == nil {
		return domain.PaymentPending, nil
	}
	resp, err := send[any, mobileMoneyPayment](ctx, a.client, http.MethodGet, "/v1/payments/"+url.PathEscape(providerRef), nil, "")
	if err != nil {
		return "", err
	}
	return mapStatus(domain.ProviderMobileMoney, mobileMoneyStatuses, resp.Status)
}

func (a *MobileMoneyAdapter) Refund(ctx context.Context, req application.ProviderRefundRequest) (*application.ProviderRefundResult, error) {
	if a.client == nil {
		return &application.ProviderRefundResult{
			RefundRef:  mockRefundRef("mm", req),
			RefundedAt: time.Now().UTC(),
		}, nil
	}

	body := mobileMoneyRefundRequest{
		Amount:   req.Amount,
		Currency: string(req.Currency),
		Reason:   req.Reason,
	}
	path := "/v1/payments/" + url.PathEscape(req.ProviderRef) + "/refunds"
	resp, err := send[mobileMoneyRefundRequest, mobileMoneyRefund](ctx, a.client, http.MethodPost, path, &body, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &application.ProviderRefundResult{RefundRef: resp.ID, RefundedAt: resp.CreatedAt}, nil
}

func (a *MobileMoneyAdapter) VerifyWebhook(payload []byte, signature string) bool {
	return verifySignature(a.secret, payload, signature)
}

// DecodeMobileMoneyWebhook reads a mobile money status callback.
func DecodeMobileMoneyWebhook(payload []byte) (*application.WebhookEvent, error) {
	var hook mobileMoneyWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("decoding mobile money webhook: %w", err)
	}
	if hook.PaymentID == "" {
		return nil, errors.New("mobile money webhook without payment id")
	}
	status, err := mapStatus(domain.ProviderMobileMoney, mobileMoneyStatuses, hook.Status)
	if err != nil {
		return nil, err
	}
	return &application.WebhookEvent{
		EventID:      hook.EventID,
		ProviderRef:  hook.PaymentID,
		Status:       status,
		ErrorCode:    hook.ReasonCode,
		ErrorMessage: hook.Reason,
	}, nil
}

func mapStatus(provider domain.Provider, table map[string]domain.PaymentStatus, raw string) (domain.PaymentStatus, error) {
	status, ok := table[raw]
	if !ok {
		return "", &application.ProviderError{
			Provider:   provider,
			Code:       codeUnknownStatus,
			Message:    fmt.Sprintf("unrecognised provider status %q", raw),
			StatusCode: http.StatusBadGateway,
		}
	}
	return status, nil
}
