// Package domain holds the cart, order and payment entities and the rules
// that govern their state.
package domain

import (
	"slices"
	"time"
)

// Provider identifies a payment rail.
type Provider string

const (
	ProviderMobileMoney  Provider = "mobile_money"
	ProviderCard         Provider = "card"
	ProviderBankTransfer Provider = "bank_transfer"
	ProviderWallet       Provider = "wallet"
)

var providers = []Provider{ProviderMobileMoney, ProviderCard, ProviderBankTransfer, ProviderWallet}

func Providers() []Provider {
	return append([]Provider(nil), providers...)
}

func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if !slices.Contains(providers, p) {
		return "", NewInvalidInputError("unknown payment provider %q", s)
	}
	return p, nil
}

// RequiresManualConfirmation is true for rails with no automated success signal.
func (p Provider) RequiresManualConfirmation() bool {
	return p == ProviderBankTransfer
}

// PaymentStatus represents the current state of a payment intent
type PaymentStatus string

const (
	PaymentPending              PaymentStatus = "pending"
	PaymentAwaitingConfirmation PaymentStatus = "awaiting_confirmation"
	PaymentProcessing           PaymentStatus = "processing"
	PaymentCompleted            PaymentStatus = "completed"
	PaymentFailed               PaymentStatus = "failed"
	PaymentCancelled            PaymentStatus = "cancelled"
	PaymentRefunded             PaymentStatus = "refunded"
	PaymentPartiallyRefunded    PaymentStatus = "partially_refunded"
)

// Metadata keys for the customer's next action.
const (
	MetaRedirectURL       = "redirect_url"
	MetaQRCode            = "qr_code"
	MetaClientSecret      = "client_secret"
	MetaTransferReference = "transfer_reference"
	MetaAccountIBAN       = "account_iban"
)

// PaymentIntent is one attempt to collect an order's total through a provider.
type PaymentIntent struct {
	ID             string
	OrderID        string
	TenantID       string
	Amount         int64
	Currency       Currency
	Provider       Provider
	IdempotencyKey *string
	Status         PaymentStatus
	ProviderRef    *string
	Description    string
	Metadata       map[string]any

	RefundedAmount int64
	RefundReason   *string
	FailureCode    *string
	FailureMessage *string
	ConfirmedBy    *string
	ConfirmedAt    *time.Time
	BankReference  *string

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
}

func NewPaymentIntent(
	id string,
	orderID string,
	tenantID string,
	amount Money,
	provider Provider,
	description string,
	idempotencyKey string,
	expiresAt *time.Time,
	now time.Time,
) (*PaymentIntent, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("payment ID")
	}
	if orderID == "" {
		return nil, NewMissingRequiredFieldError("order ID")
	}
	if amount.Amount <= 0 {
		return nil, NewInvalidAmountError(amount.Amount)
	}
	if !amount.Currency.Valid() {
		return nil, NewUnsupportedCurrencyError(string(amount.Currency))
	}
	if _, err := ParseProvider(string(provider)); err != nil {
		return nil, err
	}

	p := &PaymentIntent{
		ID:          id,
		OrderID:     orderID,
		TenantID:    tenantID,
		Amount:      amount.Amount,
		Currency:    amount.Currency,
		Provider:    provider,
		Status:      PaymentPending,
		Description: description,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if idempotencyKey != "" {
		p.IdempotencyKey = &idempotencyKey
	}
	return p, nil
}

// IsTerminal reports whether the intent has left the collection path for
// good. Completed intents can still move into the refund states.
func (p *PaymentIntent) IsTerminal() bool {
	switch p.Status {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	default:
		return false
	}
}

// IsOpen is the complement of IsTerminal: the intent may still be paid.
func (p *PaymentIntent) IsOpen() bool {
	return !p.IsTerminal()
}

// IsExpired reports whether an open intent is past its expiry.
func (p *PaymentIntent) IsExpired(now time.Time) bool {
	return p.IsOpen() && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// ApplyExpiry cancels an expired open intent in memory and reports whether
// it did so. Callers persist the change with a compare-and-swap.
func (p *PaymentIntent) ApplyExpiry(now time.Time) bool {
	if !p.IsExpired(now) {
		return false
	}
	p.Status = PaymentCancelled
	p.UpdatedAt = now
	return true
}

// Accept records the provider's answer to a create call.
func (p *PaymentIntent) Accept(providerRef string, status PaymentStatus, nextAction map[string]string, now time.Time) error {
	if p.Provider.RequiresManualConfirmation() {
		status = PaymentAwaitingConfirmation
	}
	if status != p.Status {
		if err := p.transition(status); err != nil {
			return err
		}
	}
	if providerRef != "" {
		p.ProviderRef = &providerRef
	}
	for k, v := range nextAction {
		if v != "" {
			p.Metadata[k] = v
		}
	}
	p.UpdatedAt = now
	return nil
}

// NextAction returns what the customer has to do to complete the payment.
func (p *PaymentIntent) NextAction() map[string]string {
	out := map[string]string{}
	for _, k := range []string{MetaRedirectURL, MetaQRCode, MetaClientSecret, MetaTransferReference, MetaAccountIBAN} {
		if v, ok := p.Metadata[k].(string); ok && v != "" {
			out[k] = v
		}
	}
	return out
}

func (p *PaymentIntent) Fail(code, message string, now time.Time) error {
	if err := p.transition(PaymentFailed); err != nil {
		return err
	}
	if code != "" {
		p.FailureCode = &code
	}
	if message != "" {
		p.FailureMessage = &message
	}
	p.UpdatedAt = now
	return nil
}

// ApplyProviderStatus moves the intent to a status reported by the provider
// (poll or webhook). Awaiting-confirmation intents are never completed this
// way.
func (p *PaymentIntent) ApplyProviderStatus(target PaymentStatus, now time.Time) error {
	if p.Status == PaymentAwaitingConfirmation && target == PaymentCompleted {
		return NewInvalidTransitionError("payment", p.Status, target)
	}
	if err := p.transition(target); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// ConfirmManually completes a bank transfer on an operator's word.
func (p *PaymentIntent) ConfirmManually(confirmedBy, bankReference string, now time.Time) error {
	if confirmedBy == "" {
		return NewMissingRequiredFieldError("confirmed_by")
	}
	if !p.Provider.RequiresManualConfirmation() {
		return NewInvalidInputError("payment %s is not a bank transfer", p.ID)
	}
	if p.Status != PaymentAwaitingConfirmation {
		return NewInvalidTransitionError("payment", p.Status, PaymentCompleted)
	}
	if err := p.transition(PaymentCompleted); err != nil {
		return err
	}
	p.ConfirmedBy = &confirmedBy
	p.ConfirmedAt = &now
	if bankReference != "" {
		p.BankReference = &bankReference
	}
	p.UpdatedAt = now
	return nil
}

// RefundableAmount is what is left to refund.
func (p *PaymentIntent) RefundableAmount() int64 {
	return p.Amount - p.RefundedAmount
}

// ResolveRefundAmount validates a requested refund; nil means the full
// remainder.
func (p *PaymentIntent) ResolveRefundAmount(requested *int64) (int64, error) {
	if p.Status != PaymentCompleted && p.Status != PaymentPartiallyRefunded {
		return 0, NewInvalidTransitionError("payment", p.Status, PaymentRefunded)
	}
	remaining := p.RefundableAmount()
	if requested == nil {
		return remaining, nil
	}
	if *requested <= 0 || *requested > remaining {
		return 0, NewInvalidInputError("refund amount %d must be between 1 and %d", *requested, remaining)
	}
	return *requested, nil
}

// RecordRefund books a successful provider refund.
func (p *PaymentIntent) RecordRefund(amount int64, reason string, now time.Time) error {
	target := PaymentPartiallyRefunded
	if p.RefundedAmount+amount >= p.Amount {
		target = PaymentRefunded
	}
	if err := p.transition(target); err != nil {
		return err
	}
	p.RefundedAmount += amount
	if reason != "" {
		p.RefundReason = &reason
	}
	p.UpdatedAt = now
	return nil
}

func (p *PaymentIntent) CanTransitionTo(target PaymentStatus) bool {
	return p.canTransitionTo(target) == nil
}

func (p *PaymentIntent) transition(target PaymentStatus) error {
	if err := p.canTransitionTo(target); err != nil {
		return err
	}
	p.Status = target
	return nil
}

// defines the statuses each status can move to
func (p *PaymentIntent) canTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case PaymentPending:
		return p.allow(target, PaymentAwaitingConfirmation, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled)
	case PaymentAwaitingConfirmation:
		return p.allow(target, PaymentCompleted, PaymentFailed, PaymentCancelled)
	case PaymentProcessing:
		return p.allow(target, PaymentCompleted, PaymentFailed, PaymentCancelled)
	case PaymentCompleted:
		return p.allow(target, PaymentRefunded, PaymentPartiallyRefunded)
	case PaymentPartiallyRefunded:
		return p.allow(target, PaymentPartiallyRefunded, PaymentRefunded)
	}
	return NewInvalidTransitionError("payment", p.Status, target)
}

// Helper to check allowed state transitions
func (p *PaymentIntent) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError("payment", p.Status, target)
}
