package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
)

// RetryProvider retries transient provider failures with exponential
// backoff. Create and refund calls carry an idempotency key, so a retried
// call never produces a second charge or refund at the provider.
type RetryProvider struct {
	inner      application.PaymentProvider
	baseDelay  time.Duration
	maxRetries int
	maxJitter  time.Duration
}

func NewRetryProvider(inner application.PaymentProvider, cfg config.RetryConfig) *RetryProvider {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryProvider{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
		maxJitter:  cfg.BaseDelay,
	}
}

func (r *RetryProvider) CreatePayment(ctx context.Context, req application.ProviderPaymentRequest) (*application.ProviderPaymentResult, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.ProviderPaymentResult, error) {
			return r.inner.CreatePayment(ctx, req)
		},
	)
}

func (r *RetryProvider) CheckStatus(ctx context.Context, providerRef string) (domain.PaymentStatus, error) {
	status, err := retry(
		r,
		ctx,
		func(ctx context.Context) (*domain.PaymentStatus, error) {
			s, err := r.inner.CheckStatus(ctx, providerRef)
			if err != nil {
				return nil, err
			}
			return &s, nil
		},
	)
	if err != nil {
		return "", err
	}
	return *status, nil
}

func (r *RetryProvider) Refund(ctx context.Context, req application.ProviderRefundRequest) (*application.ProviderRefundResult, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.ProviderRefundResult, error) {
			return r.inner.Refund(ctx, req)
		},
	)
}

// VerifyWebhook is local computation; nothing to retry.
func (r *RetryProvider) VerifyWebhook(payload []byte, signature string) bool {
	return r.inner.VerifyWebhook(payload, signature)
}

func retry[T any](r *RetryProvider, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			timer := time.NewTimer(r.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if providerErr, ok := application.IsProviderError(err); ok {
		if providerErr.Code == codeCircuitOpen || providerErr.Code == codeUnknownStatus {
			return false
		}
		if providerErr.StatusCode >= 500 || providerErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		switch providerErr.Code {
		case "timeout", "network_error", "internal_error":
			return true
		}
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

func (r *RetryProvider) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	if r.maxJitter <= 0 {
		return base
	}
	jitter := time.Duration(rand.Int63n(int64(r.maxJitter)))

	return base + jitter
}
