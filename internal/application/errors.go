package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeRequestProcessing = "REQUEST_PROCESSING"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeProviderError     = "PROVIDER_ERROR"
	ErrCodeProviderNotFound  = "PROVIDER_NOT_CONFIGURED"
)

func NewRequestProcessingError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeRequestProcessing,
		Message:    "Request is being processed. Please retry in a moment.",
		HTTPStatus: http.StatusAccepted,
	}
}

func NewTimeoutError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeTimeout,
		Message:    "Request timed out waiting for completion",
		HTTPStatus: http.StatusRequestTimeout,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewProviderNotConfiguredError(provider domain.Provider) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeProviderNotFound,
		Message:    fmt.Sprintf("payment provider %s is not configured", provider),
		HTTPStatus: http.StatusBadRequest,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ProviderError is a failure reported by a payment provider, or by the
// transport in front of it.
type ProviderError struct {
	Provider   domain.Provider
	Code       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s error: %s - %s (status %d)", e.Provider, e.Code, e.Message, e.StatusCode)
}

// Is lets callers match any provider failure with domain.ErrProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == domain.ErrProviderError
}

func IsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	ok := errors.As(err, &providerErr)
	return providerErr, ok
}
