package api

import "time"

type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Requests

type CreateCartRequest struct {
	OwnerID  string `json:"owner_id"`
	Currency string `json:"currency"`
}

type AddItemRequest struct {
	ProductID string         `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Options   map[string]any `json:"options,omitempty"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type SetCurrencyRequest struct {
	Currency string `json:"currency"`
}

type SetDeliveryRequest struct {
	Method string `json:"method"`
}

type CheckoutRequest struct {
	Provider string `json:"provider,omitempty"`
}

type RequestPaymentRequest struct {
	Provider string `json:"provider"`
}

type CreatePaymentRequest struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Provider    string `json:"provider"`
	Description string `json:"description,omitempty"`
}

type RefundRequest struct {
	Amount *int64 `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

type ConfirmTransferRequest struct {
	BankReference string `json:"bank_reference,omitempty"`
}

type ActorRequest struct {
	Actor string `json:"actor,omitempty"`
}

type AssignRequest struct {
	Team           string     `json:"team"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	Actor          string     `json:"actor,omitempty"`
}

type CompleteRequest struct {
	Notes string `json:"notes,omitempty"`
	Actor string `json:"actor,omitempty"`
}

type DispatchRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier,omitempty"`
	Actor          string `json:"actor,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

// Responses

type CartLine struct {
	ID            string         `json:"id"`
	ProductID     string         `json:"product_id"`
	Variant       string         `json:"variant,omitempty"`
	Quantity      int            `json:"quantity"`
	UnitPrice     int64          `json:"unit_price"`
	TaxRate       string         `json:"tax_rate"`
	TotalPrice    int64          `json:"total_price"`
	TaxAmount     int64          `json:"tax_amount"`
	ScheduledDate *time.Time     `json:"scheduled_date,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
}

type Cart struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id,omitempty"`
	Currency       string     `json:"currency"`
	Lines          []CartLine `json:"lines"`
	CouponCode     string     `json:"coupon_code,omitempty"`
	Subtotal       int64      `json:"subtotal"`
	DiscountAmount int64      `json:"discount_amount"`
	TaxAmount      int64      `json:"tax_amount"`
	DeliveryMethod string     `json:"delivery_method"`
	DeliveryCost   int64      `json:"delivery_cost"`
	Total          int64      `json:"total"`
	Active         bool       `json:"active"`
	ExpiresAt      time.Time  `json:"expires_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CouponResult struct {
	Valid          bool   `json:"valid"`
	DiscountAmount int64  `json:"discount_amount"`
	Error          string `json:"error,omitempty"`
	Cart           Cart   `json:"cart"`
}

type OrderItem struct {
	ID            string         `json:"id"`
	ProductID     string         `json:"product_id"`
	Variant       string         `json:"variant,omitempty"`
	Quantity      int            `json:"quantity"`
	UnitPrice     int64          `json:"unit_price"`
	TotalPrice    int64          `json:"total_price"`
	TaxAmount     int64          `json:"tax_amount"`
	ScheduledDate *time.Time     `json:"scheduled_date,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
}

type Fulfillment struct {
	AssignedTeam    *string    `json:"assigned_team,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	TrackingNumber  *string    `json:"tracking_number,omitempty"`
	Carrier         *string    `json:"carrier,omitempty"`
	CompletionNotes *string    `json:"completion_notes,omitempty"`
}

type Order struct {
	ID                 string      `json:"id"`
	OrderNumber        string      `json:"order_number"`
	CartID             string      `json:"cart_id"`
	OwnerID            string      `json:"owner_id,omitempty"`
	Status             string      `json:"status"`
	Currency           string      `json:"currency"`
	Subtotal           int64       `json:"subtotal"`
	DiscountAmount     int64       `json:"discount_amount"`
	TaxAmount          int64       `json:"tax_amount"`
	DeliveryMethod     string      `json:"delivery_method"`
	DeliveryCost       int64       `json:"delivery_cost"`
	Total              int64       `json:"total"`
	CouponCode         string      `json:"coupon_code,omitempty"`
	PaymentMethod      *string     `json:"payment_method,omitempty"`
	PaymentReference   *string     `json:"payment_reference,omitempty"`
	CancellationReason *string     `json:"cancellation_reason,omitempty"`
	Fulfillment        Fulfillment `json:"fulfillment"`
	Items              []OrderItem `json:"items"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	PaymentConfirmedAt *time.Time  `json:"payment_confirmed_at,omitempty"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty"`
}

type OrderEvent struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Actor       string         `json:"actor"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Payment struct {
	ID             string            `json:"id"`
	OrderID        string            `json:"order_id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Provider       string            `json:"provider"`
	Status         string            `json:"status"`
	ProviderRef    *string           `json:"provider_ref,omitempty"`
	NextAction     map[string]string `json:"next_action,omitempty"`
	RefundedAmount int64             `json:"refunded_amount"`
	FailureCode    *string           `json:"failure_code,omitempty"`
	FailureMessage string            `json:"failure_message,omitempty"`
	ConfirmedBy    *string           `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
}

type CheckoutResult struct {
	Order   Order    `json:"order"`
	Payment *Payment `json:"payment"`
}

type WebhookAck struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}
