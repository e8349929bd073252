package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error kinds. Every DomainError wraps exactly one of these.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInactive            = errors.New("inactive")
	ErrEmptyCart           = errors.New("empty cart")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrCouponInvalid       = errors.New("coupon invalid")
	ErrProviderError       = errors.New("provider error")
	ErrSignatureInvalid    = errors.New("signature invalid")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrIdempotencyMismatch = errors.New("idempotency mismatch")
)

const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeMissingRequired     = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeAmountMismatch      = "AMOUNT_MISMATCH"
	ErrCodeInactive            = "CART_INACTIVE"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	ErrCodeCouponInvalid       = "COUPON_INVALID"
	ErrCodePaymentInProgress   = "PAYMENT_IN_PROGRESS"
	ErrCodeIdempotencyMismatch = "IDEMPOTENCY_MISMATCH"
	ErrCodeSignatureInvalid    = "SIGNATURE_INVALID"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeStaleWrite          = "STALE_WRITE"
)

func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
		Err:     ErrNotFound,
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequired,
		Message: fmt.Sprintf("%s is required", field),
		Err:     ErrInvalidInput,
	}
}

func NewInvalidInputError(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
		Err:     ErrInvalidInput,
	}
}

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d", amount),
		Err:     ErrInvalidInput,
	}
}

func NewAmountMismatchError(expected, actual int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeAmountMismatch,
		Message: fmt.Sprintf("amount mismatch: expected %d, got %d", expected, actual),
		Err:     ErrInvalidInput,
	}
}

func NewInvalidTransitionError(entity string, from, to any) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("%s cannot transition from %v to %v", entity, from, to),
		Err:     ErrInvalidTransition,
	}
}

func NewInsufficientStockError(productID string, requested, available int) *DomainError {
	return &DomainError{
		Code:    ErrCodeInsufficientStock,
		Message: fmt.Sprintf("product %s: requested %d, only %d in stock", productID, requested, available),
		Err:     ErrInsufficientStock,
	}
}

func NewInactiveError(cartID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInactive,
		Message: fmt.Sprintf("cart %s is no longer active", cartID),
		Err:     ErrInactive,
	}
}

func NewProductInactiveError(productID string) *DomainError {
	return &DomainError{
		Code:    "PRODUCT_INACTIVE",
		Message: fmt.Sprintf("product %s is not available", productID),
		Err:     ErrInactive,
	}
}

func NewEmptyCartError(cartID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeEmptyCart,
		Message: fmt.Sprintf("cart %s has no items", cartID),
		Err:     ErrEmptyCart,
	}
}

func NewUnsupportedCurrencyError(currency string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnsupportedCurrency,
		Message: fmt.Sprintf("currency %q is not supported, use one of %v", currency, SupportedCurrencies()),
		Err:     ErrUnsupportedCurrency,
	}
}

func NewCouponInvalidError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponInvalid,
		Message: reason,
		Err:     ErrCouponInvalid,
	}
}

func NewConflictError(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf(format, args...),
		Err:     ErrConflict,
	}
}

func NewPaymentInProgressError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentInProgress,
		Message: fmt.Sprintf("order %s already has a payment in progress", orderID),
		Err:     ErrConflict,
	}
}

// NewStaleWriteError reports a compare-and-swap that matched no row.
func NewStaleWriteError(entity, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeStaleWrite,
		Message: fmt.Sprintf("%s %s was modified concurrently", entity, id),
		Err:     ErrConflict,
	}
}

func NewIdempotencyMismatchError() *DomainError {
	return &DomainError{
		Code:    ErrCodeIdempotencyMismatch,
		Message: "idempotency key reused with different parameters",
		Err:     ErrIdempotencyMismatch,
	}
}

func NewSignatureInvalidError(provider string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSignatureInvalid,
		Message: fmt.Sprintf("webhook signature for %s could not be verified", provider),
		Err:     ErrSignatureInvalid,
	}
}

func NewUnauthorizedError(action string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: fmt.Sprintf("not allowed to %s", action),
		Err:     ErrUnauthorized,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
