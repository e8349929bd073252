package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
)

// PaymentProvider is the port for an external payment rail. Adapters expose
// exactly these four operations; webhook payload decoding is registered
// separately through WebhookDecoder.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, req ProviderPaymentRequest) (*ProviderPaymentResult, error)
	CheckStatus(ctx context.Context, providerRef string) (domain.PaymentStatus, error)
	Refund(ctx context.Context, req ProviderRefundRequest) (*ProviderRefundResult, error)
	VerifyWebhook(payload []byte, signature string) bool
}

type ProviderPaymentRequest struct {
	IntentID    string
	OrderID     string
	OrderNumber string
	Amount      int64
	Currency    domain.Currency
	Description string
}

type ProviderPaymentResult struct {
	ProviderRef string
	Status      domain.PaymentStatus
	// NextAction carries what the customer must do next, keyed by the
	// domain.Meta* constants.
	NextAction map[string]string
}

type ProviderRefundRequest struct {
	ProviderRef    string
	Amount         int64
	Currency       domain.Currency
	Reason         string
	// IdempotencyKey is fixed for one refund attempt so retried calls
	// cannot refund twice.
	IdempotencyKey string
}

type ProviderRefundResult struct {
	RefundRef  string
	RefundedAt time.Time
}

// WebhookEvent is the provider-neutral content of a verified webhook.
type WebhookEvent struct {
	EventID      string
	ProviderRef  string
	Status       domain.PaymentStatus
	ErrorCode    string
	ErrorMessage string
}

// WebhookDecoder turns a raw provider payload into a WebhookEvent.
type WebhookDecoder func(payload []byte) (*WebhookEvent, error)

// ProviderRegistry resolves the adapter and webhook decoder of a provider.
type ProviderRegistry interface {
	Lookup(provider domain.Provider) (PaymentProvider, WebhookDecoder, error)
}

// Notifier delivers customer notifications drained from the outbox.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// CartCache is a read-through cache in front of cart reads. It is never
// consulted for mutations. A miss returns a nil cart and a fill token; Set
// drops the write when the cart was invalidated after the token was issued.
type CartCache interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, int64, error)
	Set(ctx context.Context, cart *domain.Cart, fillToken int64) error
	Delete(ctx context.Context, cartID string) error
}
