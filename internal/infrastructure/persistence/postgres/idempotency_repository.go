package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/jackc/pgx/v5"
)

var ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

// IdempotencyKey is the stored record of a client key. LockedAt is set while
// the request that inserted it is still in flight.
type IdempotencyKey struct {
	Key         string
	PaymentID   string
	RequestHash string
	LockedAt    *time.Time
	CreatedAt   time.Time
}

type IdempotencyRepository struct {
	q Executor
}

func NewIdempotencyRepository(q Executor) *IdempotencyRepository {
	return &IdempotencyRepository{q: q}
}

// AcquireLock inserts the key in locked state. Another request holding the
// same key surfaces as ErrDuplicateIdempotencyKey.
func (r *IdempotencyRepository) AcquireLock(ctx context.Context, key, paymentID, requestHash string, now time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO idempotency_keys (key, payment_id, request_hash, locked_at, created_at)
		VALUES ($1, $2, $3, $4, $4)
	`, key, paymentID, requestHash, now)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to acquire idempotency lock: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) FindByKey(ctx context.Context, key string) (*IdempotencyKey, error) {
	var k IdempotencyKey
	err := r.q.QueryRow(ctx, `
		SELECT key, payment_id, request_hash, locked_at, created_at
		FROM idempotency_keys
		WHERE key = $1
	`, key).Scan(&k.Key, &k.PaymentID, &k.RequestHash, &k.LockedAt, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("idempotency key", key)
		}
		return nil, fmt.Errorf("failed to find idempotency key: %w", err)
	}
	return &k, nil
}

func (r *IdempotencyRepository) ReleaseLock(ctx context.Context, key string) error {
	_, err := r.q.Exec(ctx, `UPDATE idempotency_keys SET locked_at = NULL WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to release idempotency lock: %w", err)
	}
	return nil
}
