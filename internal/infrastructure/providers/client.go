// Package providers holds the payment rail adapters and the decorators
// that wrap every provider call with retries and a circuit breaker.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type restClient struct {
	provider domain.Provider
	http     *resty.Client
}

// errorResponse is the error body every live rail answers with.
type errorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func newRestClient(provider domain.Provider, cfg config.ProviderConfig) *restClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json").
		SetRetryCount(0) // retries belong to RetryProvider

	return &restClient{provider: provider, http: client}
}

func send[Req any, Resp any](ctx context.Context, c *restClient, method, path string, reqBody *Req, idempotencyKey string) (*Resp, error) {
	var out Resp
	var errResp errorResponse

	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errResp)

	if reqBody != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(reqBody)
	}
	if idempotencyKey != "" {
		req.SetHeader("Idempotency-Key", idempotencyKey)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, c.transportError(err)
	}

	if resp.IsError() {
		code := errResp.Err
		if code == "" {
			code = defaultErrorCode(resp.StatusCode())
		}
		message := errResp.Message
		if message == "" {
			message = resp.String()
		}
		return nil, &application.ProviderError{
			Provider:   c.provider,
			Code:       code,
			Message:    message,
			StatusCode: resp.StatusCode(),
		}
	}

	return &out, nil
}

func (c *restClient) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &application.ProviderError{
			Provider:   c.provider,
			Code:       "timeout",
			Message:    "provider did not answer in time",
			StatusCode: http.StatusGatewayTimeout,
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &application.ProviderError{
		Provider:   c.provider,
		Code:       "network_error",
		Message:    fmt.Sprintf("error making request: %v", err),
		StatusCode: http.StatusBadGateway,
	}
}

func defaultErrorCode(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= 500:
		return "internal_error"
	default:
		return "request_rejected"
	}
}
