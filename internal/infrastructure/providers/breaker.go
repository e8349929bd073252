package providers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/metrics"
	"github.com/sony/gobreaker"
)

const (
	codeCircuitOpen   = "circuit_open"
	codeUnknownStatus = "unknown_status"
)

// BreakerProvider stops calling a provider that keeps failing. Declines and
// other answers the provider gave on purpose do not count as failures.
type BreakerProvider struct {
	inner    application.PaymentProvider
	provider domain.Provider
	cb       *gobreaker.CircuitBreaker
}

func NewBreakerProvider(inner application.PaymentProvider, provider domain.Provider, cfg config.BreakerConfig, logger *slog.Logger) *BreakerProvider {
	name := string(provider)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			logger.Warn("circuit breaker state changed",
				"provider", cbName,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &BreakerProvider{inner: inner, provider: provider, cb: cb}
}

func (b *BreakerProvider) CreatePayment(ctx context.Context, req application.ProviderPaymentRequest) (*application.ProviderPaymentResult, error) {
	return execute(b, func() (*application.ProviderPaymentResult, error) {
		return b.inner.CreatePayment(ctx, req)
	})
}

func (b *BreakerProvider) CheckStatus(ctx context.Context, providerRef string) (domain.PaymentStatus, error) {
	status, err := execute(b, func() (*domain.PaymentStatus, error) {
		s, err := b.inner.CheckStatus(ctx, providerRef)
		if err != nil {
			return nil, err
		}
		return &s, nil
	})
	if err != nil {
		return "", err
	}
	return *status, nil
}

func (b *BreakerProvider) Refund(ctx context.Context, req application.ProviderRefundRequest) (*application.ProviderRefundResult, error) {
	return execute(b, func() (*application.ProviderRefundResult, error) {
		return b.inner.Refund(ctx, req)
	})
}

func (b *BreakerProvider) VerifyWebhook(payload []byte, signature string) bool {
	return b.inner.VerifyWebhook(payload, signature)
}

// State reports the breaker state, mostly for tests and diagnostics.
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}

func execute[T any](b *BreakerProvider, fn func() (*T, error)) (*T, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &application.ProviderError{
				Provider:   b.provider,
				Code:       codeCircuitOpen,
				Message:    "provider temporarily unavailable",
				StatusCode: http.StatusServiceUnavailable,
			}
		}
		return nil, err
	}
	return result.(*T), nil
}

func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if providerErr, ok := application.IsProviderError(err); ok {
		return providerErr.StatusCode >= 500 ||
			providerErr.StatusCode == http.StatusTooManyRequests ||
			providerErr.Code == "timeout" ||
			providerErr.Code == "network_error"
	}
	return true
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
