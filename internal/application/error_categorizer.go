package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	// Provider errors first: they also match domain.ErrProviderError.
	if providerErr, ok := IsProviderError(err); ok {
		if providerErr.StatusCode >= 500 || providerErr.StatusCode == http.StatusTooManyRequests {
			return CategoryTransient
		}
		switch providerErr.Code {
		case "timeout", "network_error", "internal_error", "service_unavailable", "circuit_open":
			return CategoryTransient
		case "not_found":
			return CategoryClientError
		default:
			return CategoryPermanent
		}
	}

	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInactive) ||
		errors.Is(err, domain.ErrEmptyCart) ||
		errors.Is(err, domain.ErrCouponInvalid) ||
		errors.Is(err, domain.ErrConflict) {
		return CategoryBusinessRule
	}

	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrUnsupportedCurrency) ||
		errors.Is(err, domain.ErrIdempotencyMismatch) ||
		errors.Is(err, domain.ErrSignatureInvalid) ||
		errors.Is(err, domain.ErrUnauthorized) {
		return CategoryClientError
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeProviderNotFound:
			return CategoryClientError
		case ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeRequestProcessing, ErrCodeTimeout:
			return CategoryTransient
		}
	}

	if errors.Is(err, postgres.ErrDuplicateIdempotencyKey) {
		return CategoryTransient
	}

	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrCouponInvalid),
		errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrSignatureInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInactive),
		errors.Is(err, domain.ErrIdempotencyMismatch),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, postgres.ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}

	if providerErr, ok := IsProviderError(err); ok {
		// declines are the customer's problem, everything else is upstream
		if providerErr.StatusCode == http.StatusPaymentRequired {
			return http.StatusPaymentRequired
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if providerErr, ok := IsProviderError(err); ok {
		return ErrCodeProviderError + "_" + strings.ToUpper(providerErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}

var publicProviderMessages = map[string]string{
	"insufficient_funds": "Insufficient funds, please use another payment method",
	"card_declined":      "The card was declined",
	"expired_card":       "The card has expired",
	"payment_rejected":   "The payment was rejected by the provider",
}

const genericPaymentFailure = "Payment could not be completed, please retry"

// PublicMessage returns text that is safe to show to customers. Provider
// messages are never passed through verbatim.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if providerErr, ok := IsProviderError(err); ok {
		return PublicProviderMessage(providerErr.Code)
	}
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Message
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "An internal error occurred"
}

// PublicProviderMessage maps a provider failure code to customer text.
func PublicProviderMessage(code string) string {
	if msg, ok := publicProviderMessages[strings.ToLower(code)]; ok {
		return msg
	}
	return genericPaymentFailure
}
