package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository stores customer notifications written in the same
// transaction as the order transition that caused them.
type OutboxRepository struct {
	q Executor
}

func NewOutboxRepository(q Executor) *OutboxRepository {
	return &OutboxRepository{q: q}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, n *domain.Notification) error {
	payload, err := marshalJSON(n.Payload)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO notification_outbox (id, order_id, order_number, event_type, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.OrderID, n.OrderNumber, string(n.EventType), string(n.Status), payload, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ClaimUnpublished leases the oldest pending rows that have not exhausted
// maxAttempts until at+lease. Rows leased by another publisher are skipped,
// so concurrent publishers never receive the same row.
func (r *OutboxRepository) ClaimUnpublished(ctx context.Context, maxAttempts, limit int, at time.Time, lease time.Duration) ([]*domain.Notification, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE notification_outbox o SET claimed_until = $4
		FROM (
			SELECT id FROM notification_outbox
			WHERE published_at IS NULL AND attempts < $1
				AND (claimed_until IS NULL OR claimed_until <= $3)
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) claimed
		WHERE o.id = claimed.id
		RETURNING o.id, o.order_id, o.order_number, o.event_type, o.status, o.payload, o.created_at, o.attempts
	`, maxAttempts, limit, at, at.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("claim outbox rows: %w", err)
	}
	claimed, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Notification, error) {
		var (
			n                 domain.Notification
			eventType, status string
			payload           []byte
		)
		err := row.Scan(&n.ID, &n.OrderID, &n.OrderNumber, &eventType, &status, &payload, &n.CreatedAt, &n.Attempts)
		if err != nil {
			return nil, err
		}
		n.EventType = domain.OrderEventType(eventType)
		n.Status = domain.OrderStatus(status)
		n.Payload, err = unmarshalMap(payload)
		return &n, err
	})
	if err != nil {
		return nil, err
	}
	// RETURNING carries no order
	slices.SortFunc(claimed, func(a, b *domain.Notification) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return claimed, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE notification_outbox SET published_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification published: %w", err)
	}
	return nil
}

// MarkFailed counts an attempt and releases the lease for the next tick.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `UPDATE notification_outbox SET attempts = attempts + 1, claimed_until = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to record notification attempt: %w", err)
	}
	return nil
}
