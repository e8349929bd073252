package services

import "time"

type CreatePaymentCommand struct {
	TenantID       string
	OrderID        string
	Amount         int64
	Currency       string
	Provider       string
	Description    string
	IdempotencyKey string
}

type ConfirmTransferCommand struct {
	PaymentID     string
	ConfirmedBy   string
	BankReference string
}

type RefundCommand struct {
	PaymentID string
	// Amount nil refunds whatever is left.
	Amount *int64
	Reason string
	Actor  string
}

type CheckoutCommand struct {
	CartID string
	// Provider is optional; when set, a payment is requested right after the
	// order is created.
	Provider       string
	IdempotencyKey string
}

type AssignCommand struct {
	OrderID        string
	Team           string
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	Actor          string
}

type DispatchCommand struct {
	OrderID        string
	TrackingNumber string
	Carrier        string
	Actor          string
}

type CompleteCommand struct {
	OrderID string
	Notes   string
	Actor   string
}

type CancelCommand struct {
	OrderID string
	Reason  string
	Actor   string
}
