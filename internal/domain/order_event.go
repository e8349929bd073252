package domain

import "time"

type OrderEventType string

const (
	EventOrderCreated         OrderEventType = "order_created"
	EventPaymentRequested     OrderEventType = "payment_requested"
	EventPaymentFailed        OrderEventType = "payment_failed"
	EventPaymentConfirmed     OrderEventType = "payment_confirmed"
	EventProcessingStarted    OrderEventType = "processing_started"
	EventTeamAssigned         OrderEventType = "team_assigned"
	EventWorkStarted          OrderEventType = "work_started"
	EventWorkCompleted        OrderEventType = "work_completed"
	EventDispatched           OrderEventType = "dispatched"
	EventDelivered            OrderEventType = "delivered"
	EventCancelled            OrderEventType = "cancelled"
	EventRefunded             OrderEventType = "refunded"
	EventPartiallyRefunded    OrderEventType = "partially_refunded"
	EventStockDecrementFailed OrderEventType = "stock_decrement_failed"
)

// OrderEvent is one entry of an order's append-only timeline.
type OrderEvent struct {
	ID              string
	OrderID         string
	Type            OrderEventType
	Title           string
	Description     string
	Actor           string
	CustomerVisible bool
	Metadata        map[string]any
	CreatedAt       time.Time
}

func NewOrderEvent(id, orderID string, eventType OrderEventType, title, description, actor string, visible bool, metadata map[string]any, now time.Time) *OrderEvent {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &OrderEvent{
		ID:              id,
		OrderID:         orderID,
		Type:            eventType,
		Title:           title,
		Description:     description,
		Actor:           actor,
		CustomerVisible: visible,
		Metadata:        metadata,
		CreatedAt:       now,
	}
}

// Notification is an outbox entry describing a customer-facing order change.
type Notification struct {
	ID          string
	OrderID     string
	OrderNumber string
	EventType   OrderEventType
	Status      OrderStatus
	Payload     map[string]any
	CreatedAt   time.Time
	Attempts    int
}
