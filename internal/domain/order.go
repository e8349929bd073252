package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current state of an order in its lifecycle
type OrderStatus string

const (
	OrderCreated           OrderStatus = "created"
	OrderAwaitingPayment   OrderStatus = "awaiting_payment"
	OrderPaid              OrderStatus = "paid"
	OrderProcessing        OrderStatus = "processing"
	OrderAssigned          OrderStatus = "assigned"
	OrderInProgress        OrderStatus = "in_progress"
	OrderCompleted         OrderStatus = "completed"
	OrderDispatched        OrderStatus = "dispatched"
	OrderDelivered         OrderStatus = "delivered"
	OrderCancelled         OrderStatus = "cancelled"
	OrderRefunded          OrderStatus = "refunded"
	OrderPartiallyRefunded OrderStatus = "partially_refunded"
)

// ActorSystem marks events produced by the engine itself.
const ActorSystem = "system"

type OrderItem struct {
	ID            string
	OrderID       string
	ProductID     string
	Variant       string
	Quantity      int
	UnitPrice     int64
	TaxRate       decimal.Decimal
	TotalPrice    int64
	TaxAmount     int64
	ScheduledDate *time.Time
	Options       map[string]any
}

// Fulfillment holds the operator-supplied metadata of the fulfillment paths.
type Fulfillment struct {
	AssignedTeam    *string
	ScheduledStart  *time.Time
	ScheduledEnd    *time.Time
	TrackingNumber  *string
	Carrier         *string
	CompletionNotes *string
	ActualEnd       *time.Time
	ActualDelivery  *time.Time
}

// Order is the immutable money snapshot of a checked-out cart plus a mutable
// status and fulfillment record.
type Order struct {
	ID             string
	OrderNumber    string
	CartID         string
	OwnerID        string
	TenantID       string
	Currency       Currency
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	DeliveryMethod DeliveryMethod
	DeliveryCost   int64
	Total          int64
	CouponCode     string

	Status             OrderStatus
	PaymentMethod      *Provider
	PaymentReference   *string
	CancellationReason *string

	Fulfillment
	Items []OrderItem

	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaymentRequestedAt *time.Time
	PaymentConfirmedAt *time.Time
	ProcessingAt       *time.Time
	AssignedAt         *time.Time
	StartedAt          *time.Time
	DispatchedAt       *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	RefundedAt         *time.Time
}

// FormatOrderNumber renders <PREFIX>-<YEAR>-<6-digit-sequence>.
func FormatOrderNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, seq)
}

func NewOrderFromSnapshot(id, orderNumber, tenantID string, snap *CartSnapshot, itemID func() string, now time.Time) (*Order, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("order ID")
	}
	if orderNumber == "" {
		return nil, NewMissingRequiredFieldError("order number")
	}
	if snap == nil || len(snap.Lines) == 0 {
		return nil, NewEmptyCartError("")
	}

	o := &Order{
		ID:             id,
		OrderNumber:    orderNumber,
		CartID:         snap.CartID,
		OwnerID:        snap.OwnerID,
		TenantID:       tenantID,
		Currency:       snap.Currency,
		Subtotal:       snap.Subtotal,
		DiscountAmount: snap.DiscountAmount,
		TaxAmount:      snap.TaxAmount,
		DeliveryMethod: snap.DeliveryMethod,
		DeliveryCost:   snap.DeliveryCost,
		Total:          snap.Total,
		CouponCode:     snap.CouponCode,
		Status:         OrderCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, l := range snap.Lines {
		o.Items = append(o.Items, OrderItem{
			ID:            itemID(),
			OrderID:       id,
			ProductID:     l.ProductID,
			Variant:       l.Variant,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			TaxRate:       l.TaxRate,
			TotalPrice:    l.TotalPrice,
			TaxAmount:     l.TaxAmount,
			ScheduledDate: l.ScheduledDate,
			Options:       l.Options,
		})
	}
	return o, nil
}

// Created returns the creation event.
func (o *Order) Created(now time.Time) *OrderEvent {
	return o.event(EventOrderCreated, "Order placed",
		fmt.Sprintf("Order %s placed for %d %s", o.OrderNumber, o.Total, o.Currency),
		ActorSystem, true, map[string]any{"cart_id": o.CartID}, now)
}

// AwaitPayment records a new payment attempt. Repeating it while awaiting
// payment records the newer attempt.
func (o *Order) AwaitPayment(method Provider, providerRef string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderAwaitingPayment); err != nil {
		return nil, err
	}
	o.PaymentMethod = &method
	o.PaymentReference = nil
	if providerRef != "" {
		o.PaymentReference = &providerRef
	}
	o.PaymentRequestedAt = &now
	o.UpdatedAt = now
	return o.event(EventPaymentRequested, "Payment requested",
		fmt.Sprintf("Awaiting %s payment", method), ActorSystem, true,
		map[string]any{"provider": string(method), "provider_ref": providerRef}, now), nil
}

// IsPaidOrLater reports whether payment confirmation has already been applied.
func (o *Order) IsPaidOrLater() bool {
	switch o.Status {
	case OrderCreated, OrderAwaitingPayment, OrderCancelled:
		return false
	}
	return true
}

func (o *Order) MarkPaid(paymentID string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderPaid); err != nil {
		return nil, err
	}
	o.PaymentConfirmedAt = &now
	o.UpdatedAt = now
	return o.event(EventPaymentConfirmed, "Payment confirmed",
		"Payment received", ActorSystem, true,
		map[string]any{"payment_id": paymentID}, now), nil
}

// WaivePayment confirms an order with nothing to collect. No intent backs it.
func (o *Order) WaivePayment(now time.Time) (*OrderEvent, error) {
	if o.Total != 0 {
		return nil, NewInvalidTransitionError("order", o.Status, OrderPaid)
	}
	if err := o.transition(OrderPaid); err != nil {
		return nil, err
	}
	o.PaymentConfirmedAt = &now
	o.UpdatedAt = now
	return o.event(EventPaymentConfirmed, "Payment confirmed",
		"Nothing to pay", ActorSystem, true,
		map[string]any{"waived": true}, now), nil
}

func (o *Order) StartProcessing(actor string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderProcessing); err != nil {
		return nil, err
	}
	o.ProcessingAt = &now
	o.UpdatedAt = now
	return o.event(EventProcessingStarted, "Order is being processed", "", actor, true, nil, now), nil
}

// Assign hands the order to a field team with an optional scheduling window.
func (o *Order) Assign(team string, start, end *time.Time, actor string, now time.Time) (*OrderEvent, error) {
	if team == "" {
		return nil, NewMissingRequiredFieldError("team")
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, NewInvalidInputError("scheduled end is before scheduled start")
	}
	if err := o.transition(OrderAssigned); err != nil {
		return nil, err
	}
	o.AssignedTeam = &team
	o.ScheduledStart = start
	o.ScheduledEnd = end
	o.AssignedAt = &now
	o.UpdatedAt = now

	md := map[string]any{"team": team}
	if start != nil {
		md["scheduled_start"] = start.Format(time.RFC3339)
	}
	if end != nil {
		md["scheduled_end"] = end.Format(time.RFC3339)
	}
	return o.event(EventTeamAssigned, "Team assigned", fmt.Sprintf("Assigned to %s", team), actor, true, md, now), nil
}

func (o *Order) StartWork(actor string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderInProgress); err != nil {
		return nil, err
	}
	o.StartedAt = &now
	o.UpdatedAt = now
	return o.event(EventWorkStarted, "Work started", "", actor, true, nil, now), nil
}

func (o *Order) Complete(notes, actor string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderCompleted); err != nil {
		return nil, err
	}
	if notes != "" {
		o.CompletionNotes = &notes
	}
	o.ActualEnd = &now
	o.CompletedAt = &now
	o.UpdatedAt = now
	return o.event(EventWorkCompleted, "Work completed", notes, actor, true, nil, now), nil
}

func (o *Order) Dispatch(trackingNumber, carrier, actor string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderDispatched); err != nil {
		return nil, err
	}
	md := map[string]any{}
	if trackingNumber != "" {
		o.TrackingNumber = &trackingNumber
		md["tracking_number"] = trackingNumber
	}
	if carrier != "" {
		o.Carrier = &carrier
		md["carrier"] = carrier
	}
	o.DispatchedAt = &now
	o.UpdatedAt = now
	return o.event(EventDispatched, "Order dispatched", "", actor, true, md, now), nil
}

func (o *Order) Deliver(actor string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderDelivered); err != nil {
		return nil, err
	}
	o.ActualDelivery = &now
	o.CompletedAt = &now
	o.UpdatedAt = now
	return o.event(EventDelivered, "Order delivered", "", actor, true, nil, now), nil
}

func (o *Order) Cancel(reason, actor string, now time.Time) (*OrderEvent, error) {
	if err := o.transition(OrderCancelled); err != nil {
		return nil, err
	}
	if reason != "" {
		o.CancellationReason = &reason
	}
	o.CancelledAt = &now
	o.UpdatedAt = now
	return o.event(EventCancelled, "Order cancelled", reason, actor, true, nil, now), nil
}

// RecordRefund reflects a refund of the order's payment. A cancelled order,
// or one still being fulfilled, keeps its status and only gains the event.
func (o *Order) RecordRefund(paymentID string, amount int64, full bool, reason, actor string, now time.Time) (*OrderEvent, error) {
	eventType, target := EventPartiallyRefunded, OrderPartiallyRefunded
	title := "Payment partially refunded"
	if full {
		eventType, target = EventRefunded, OrderRefunded
		title = "Payment refunded"
	}
	md := map[string]any{"payment_id": paymentID, "amount": amount}

	switch {
	case o.canTransitionTo(target) == nil:
		o.Status = target
		o.RefundedAt = &now
	case o.Status == OrderCancelled || o.IsPaidOrLater():
	default:
		return nil, NewInvalidTransitionError("order", o.Status, target)
	}
	o.UpdatedAt = now
	return o.event(eventType, title, reason, actor, true, md, now), nil
}

// PaymentFailed records a failed attempt without moving the order.
func (o *Order) PaymentFailed(paymentID, code string, now time.Time) *OrderEvent {
	return o.event(EventPaymentFailed, "Payment failed", "", ActorSystem, true,
		map[string]any{"payment_id": paymentID, "code": code}, now)
}

// StockDecrementFailed is an internal event for manual reconciliation.
func (o *Order) StockDecrementFailed(productID string, quantity int, now time.Time) *OrderEvent {
	return o.event(EventStockDecrementFailed, "Stock decrement failed",
		fmt.Sprintf("could not decrement %d of product %s", quantity, productID),
		ActorSystem, false, map[string]any{"product_id": productID, "quantity": quantity}, now)
}

// IsTerminal reports whether no further transition is possible.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderCancelled || o.Status == OrderRefunded
}

func (o *Order) event(t OrderEventType, title, description, actor string, visible bool, md map[string]any, now time.Time) *OrderEvent {
	if actor == "" {
		actor = ActorSystem
	}
	return NewOrderEvent("", o.ID, t, title, description, actor, visible, md, now)
}

func (o *Order) transition(target OrderStatus) error {
	if err := o.canTransitionTo(target); err != nil {
		return err
	}
	o.Status = target
	return nil
}

func (o *Order) canTransitionTo(target OrderStatus) error {
	switch o.Status {
	case OrderCreated:
		if o.Total == 0 {
			return o.allow(target, OrderPaid, OrderCancelled)
		}
		return o.allow(target, OrderAwaitingPayment, OrderCancelled)
	case OrderAwaitingPayment:
		return o.allow(target, OrderAwaitingPayment, OrderPaid, OrderCancelled)
	case OrderPaid:
		return o.allow(target, OrderProcessing, OrderRefunded, OrderPartiallyRefunded, OrderCancelled)
	case OrderProcessing:
		return o.allow(target, OrderAssigned, OrderDispatched, OrderCancelled)
	case OrderAssigned:
		return o.allow(target, OrderInProgress, OrderCancelled)
	case OrderInProgress:
		return o.allow(target, OrderCompleted, OrderCancelled)
	case OrderDispatched:
		return o.allow(target, OrderDelivered, OrderCancelled)
	case OrderCompleted, OrderDelivered:
		return o.allow(target, OrderRefunded, OrderPartiallyRefunded)
	case OrderPartiallyRefunded:
		return o.allow(target, OrderPartiallyRefunded, OrderRefunded)
	}
	return NewInvalidTransitionError("order", o.Status, target)
}

func (o *Order) allow(target OrderStatus, allowed ...OrderStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError("order", o.Status, target)
}
