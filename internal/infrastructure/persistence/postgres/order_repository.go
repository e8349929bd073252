package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	q Executor
}

func NewOrderRepository(q Executor) *OrderRepository {
	return &OrderRepository{q: q}
}

const orderColumns = `
	id, order_number, cart_id, owner_id, tenant_id, currency, subtotal, discount_amount,
	tax_amount, delivery_method, delivery_cost, total, coupon_code, status, payment_method,
	payment_reference, cancellation_reason, assigned_team, scheduled_start, scheduled_end,
	tracking_number, carrier, completion_notes, actual_end, actual_delivery, created_at,
	updated_at, payment_requested_at, payment_confirmed_at, processing_at, assigned_at,
	started_at, dispatched_at, completed_at, cancelled_at, refunded_at`

// NextOrderNumber allocates the next value of the per-prefix, per-year
// sequence. The upsert takes a row lock, so concurrent checkouts serialize
// on it and never observe the same value.
func (r *OrderRepository) NextOrderNumber(ctx context.Context, prefix string, year int) (string, error) {
	var seq int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO order_sequences (prefix, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year) DO UPDATE SET last_value = order_sequences.last_value + 1
		RETURNING last_value
	`, prefix, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	return domain.FormatOrderNumber(prefix, year, seq), nil
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)
	`, orderArgs(o)...)
	if err != nil {
		if IsUniqueViolation(err) && violatedConstraint(err) == "idx_orders_cart" {
			return domain.NewConflictError("cart %s was already checked out", o.CartID)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range o.Items {
		options, err := marshalJSON(item.Options)
		if err != nil {
			return err
		}
		_, err = r.q.Exec(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, variant, quantity, unit_price, tax_rate,
				total_price, tax_amount, scheduled_date, options
			) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11)
		`, item.ID, o.ID, item.ProductID, item.Variant, item.Quantity, item.UnitPrice,
			item.TaxRate.String(), item.TotalPrice, item.TaxAmount, item.ScheduledDate, options)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func orderArgs(o *domain.Order) []any {
	var method *string
	if o.PaymentMethod != nil {
		m := string(*o.PaymentMethod)
		method = &m
	}
	return []any{
		o.ID, o.OrderNumber, o.CartID, nullIfEmpty(o.OwnerID), o.TenantID, string(o.Currency),
		o.Subtotal, o.DiscountAmount, o.TaxAmount, string(o.DeliveryMethod), o.DeliveryCost,
		o.Total, nullIfEmpty(o.CouponCode), string(o.Status), method, o.PaymentReference,
		o.CancellationReason, o.AssignedTeam, o.ScheduledStart, o.ScheduledEnd,
		o.TrackingNumber, o.Carrier, o.CompletionNotes, o.ActualEnd, o.ActualDelivery,
		o.CreatedAt, o.UpdatedAt, o.PaymentRequestedAt, o.PaymentConfirmedAt, o.ProcessingAt,
		o.AssignedAt, o.StartedAt, o.DispatchedAt, o.CompletedAt, o.CancelledAt, o.RefundedAt,
	}
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// FindByIDForUpdate retrieves an order with row-level lock
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) FindByCartID(ctx context.Context, cartID string) (*domain.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE cart_id = $1`, cartID)
}

func (r *OrderRepository) find(ctx context.Context, query, id string) (*domain.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("order", id)
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	items, err := r.findItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                domain.Order
		owner, coupon, method            *string
		currency, deliveryMethod, status string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CartID, &owner, &o.TenantID, &currency, &o.Subtotal,
		&o.DiscountAmount, &o.TaxAmount, &deliveryMethod, &o.DeliveryCost, &o.Total, &coupon,
		&status, &method, &o.PaymentReference, &o.CancellationReason, &o.AssignedTeam,
		&o.ScheduledStart, &o.ScheduledEnd, &o.TrackingNumber, &o.Carrier, &o.CompletionNotes,
		&o.ActualEnd, &o.ActualDelivery, &o.CreatedAt, &o.UpdatedAt, &o.PaymentRequestedAt,
		&o.PaymentConfirmedAt, &o.ProcessingAt, &o.AssignedAt, &o.StartedAt, &o.DispatchedAt,
		&o.CompletedAt, &o.CancelledAt, &o.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	o.OwnerID = deref(owner)
	o.CouponCode = deref(coupon)
	o.Currency = domain.Currency(currency)
	o.DeliveryMethod = domain.DeliveryMethod(deliveryMethod)
	o.Status = domain.OrderStatus(status)
	if method != nil {
		p := domain.Provider(*method)
		o.PaymentMethod = &p
	}
	return &o, nil
}

func (r *OrderRepository) findItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, product_id, variant, quantity, unit_price, tax_rate::text,
		       total_price, tax_amount, scheduled_date, options
		FROM order_items WHERE order_id = $1
		ORDER BY product_id, variant
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderItem, error) {
		var (
			item    domain.OrderItem
			rate    string
			options []byte
		)
		err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Variant, &item.Quantity,
			&item.UnitPrice, &rate, &item.TotalPrice, &item.TaxAmount, &item.ScheduledDate, &options)
		if err != nil {
			return item, err
		}
		if item.TaxRate, err = parseDecimal(rate); err != nil {
			return item, err
		}
		item.Options, err = unmarshalMap(options)
		return item, err
	})
}

// UpdateStatus persists the mutable part of an order, guarded by the status
// the caller read. A concurrent writer that moved the order first turns this
// into a stale write.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order, expected domain.OrderStatus) error {
	var method *string
	if o.PaymentMethod != nil {
		m := string(*o.PaymentMethod)
		method = &m
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET
			status = $3, payment_method = $4, payment_reference = $5, cancellation_reason = $6,
			assigned_team = $7, scheduled_start = $8, scheduled_end = $9, tracking_number = $10,
			carrier = $11, completion_notes = $12, actual_end = $13, actual_delivery = $14,
			updated_at = $15, payment_requested_at = $16, payment_confirmed_at = $17,
			processing_at = $18, assigned_at = $19, started_at = $20, dispatched_at = $21,
			completed_at = $22, cancelled_at = $23, refunded_at = $24
		WHERE id = $1 AND status = $2
	`,
		o.ID, string(expected), string(o.Status), method, o.PaymentReference, o.CancellationReason,
		o.AssignedTeam, o.ScheduledStart, o.ScheduledEnd, o.TrackingNumber, o.Carrier,
		o.CompletionNotes, o.ActualEnd, o.ActualDelivery, o.UpdatedAt, o.PaymentRequestedAt,
		o.PaymentConfirmedAt, o.ProcessingAt, o.AssignedAt, o.StartedAt, o.DispatchedAt,
		o.CompletedAt, o.CancelledAt, o.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStaleWriteError("order", o.ID)
	}
	return nil
}

func (r *OrderRepository) AppendEvent(ctx context.Context, ev *domain.OrderEvent) error {
	metadata, err := marshalJSON(ev.Metadata)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO order_events (
			id, order_id, event_type, title, description, actor, customer_visible, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, ev.OrderID, string(ev.Type), ev.Title, ev.Description, ev.Actor,
		ev.CustomerVisible, metadata, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append order event: %w", err)
	}
	return nil
}

// ListEvents returns the timeline oldest first.
func (r *OrderRepository) ListEvents(ctx context.Context, orderID string, visibleOnly bool) ([]*domain.OrderEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, event_type, title, description, actor, customer_visible, metadata, created_at
		FROM order_events
		WHERE order_id = $1 AND (customer_visible OR NOT $2)
		ORDER BY created_at, seq
	`, orderID, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("query order events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.OrderEvent, error) {
		var (
			ev        domain.OrderEvent
			eventType string
			metadata  []byte
		)
		err := row.Scan(&ev.ID, &ev.OrderID, &eventType, &ev.Title, &ev.Description, &ev.Actor,
			&ev.CustomerVisible, &metadata, &ev.CreatedAt)
		if err != nil {
			return nil, err
		}
		ev.Type = domain.OrderEventType(eventType)
		ev.Metadata, err = unmarshalMap(metadata)
		return &ev, err
	})
}
