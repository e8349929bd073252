package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct {
	q Executor
}

func NewPaymentRepository(q Executor) *PaymentRepository {
	return &PaymentRepository{q: q}
}

const paymentColumns = `
	id, order_id, tenant_id, amount, currency, provider, idempotency_key, status, provider_ref,
	description, metadata, refunded_amount, refund_reason, failure_code, failure_message,
	confirmed_by, confirmed_at, bank_reference, created_at, updated_at, expires_at`

const openStatuses = `('pending', 'awaiting_confirmation', 'processing')`

func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentIntent) error {
	metadata, err := marshalJSON(p.Metadata)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO payment_intents (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		p.ID, p.OrderID, p.TenantID, p.Amount, string(p.Currency), string(p.Provider),
		p.IdempotencyKey, string(p.Status), p.ProviderRef, p.Description, metadata,
		p.RefundedAmount, p.RefundReason, p.FailureCode, p.FailureMessage, p.ConfirmedBy,
		p.ConfirmedAt, p.BankReference, p.CreatedAt, p.UpdatedAt, p.ExpiresAt,
	)
	if err != nil {
		if IsUniqueViolation(err) && violatedConstraint(err) == "idx_payment_intents_open_per_order" {
			return domain.NewPaymentInProgressError(p.OrderID)
		}
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return r.findOne(ctx, id, `SELECT `+paymentColumns+` FROM payment_intents WHERE id = $1`, id)
}

// FindByIDForUpdate retrieves an intent with row-level lock
func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return r.findOne(ctx, id, `SELECT `+paymentColumns+` FROM payment_intents WHERE id = $1 FOR UPDATE`, id)
}

func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	return r.findOne(ctx, key, `SELECT `+paymentColumns+` FROM payment_intents WHERE idempotency_key = $1`, key)
}

func (r *PaymentRepository) FindByProviderRef(ctx context.Context, provider domain.Provider, ref string) (*domain.PaymentIntent, error) {
	return r.findOne(ctx, ref, `
		SELECT `+paymentColumns+` FROM payment_intents
		WHERE provider = $1 AND provider_ref = $2
	`, string(provider), ref)
}

// FindOpenByOrder returns the order's non-terminal intent, if any.
func (r *PaymentRepository) FindOpenByOrder(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	return r.findOne(ctx, orderID, `
		SELECT `+paymentColumns+` FROM payment_intents
		WHERE order_id = $1 AND status IN `+openStatuses+`
		FOR UPDATE
	`, orderID)
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.PaymentIntent, error) {
	return r.findMany(ctx, `
		SELECT `+paymentColumns+` FROM payment_intents
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
}

// FindExpired finds open intents whose expiry passed before cutoff.
func (r *PaymentRepository) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentIntent, error) {
	return r.findMany(ctx, `
		SELECT `+paymentColumns+` FROM payment_intents
		WHERE status IN `+openStatuses+`
		  AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`, cutoff, limit)
}

// FindReconcilable finds open, unexpired intents of automatically confirmed
// rails that have been waiting since before olderThan.
func (r *PaymentRepository) FindReconcilable(ctx context.Context, now, olderThan time.Time, limit int) ([]*domain.PaymentIntent, error) {
	return r.findMany(ctx, `
		SELECT `+paymentColumns+` FROM payment_intents
		WHERE status IN ('pending', 'processing')
		  AND provider <> $1
		  AND provider_ref IS NOT NULL
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4
	`, string(domain.ProviderBankTransfer), now, olderThan, limit)
}

// Update writes the mutable fields of an intent if its stored status still
// equals expected. Losing the race is reported as a stale write.
func (r *PaymentRepository) Update(ctx context.Context, p *domain.PaymentIntent, expected domain.PaymentStatus) error {
	metadata, err := marshalJSON(p.Metadata)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_intents SET
			status = $3, provider_ref = $4, metadata = $5, refunded_amount = $6,
			refund_reason = $7, failure_code = $8, failure_message = $9, confirmed_by = $10,
			confirmed_at = $11, bank_reference = $12, updated_at = $13
		WHERE id = $1 AND status = $2
	`,
		p.ID, string(expected), string(p.Status), p.ProviderRef, metadata, p.RefundedAmount,
		p.RefundReason, p.FailureCode, p.FailureMessage, p.ConfirmedBy, p.ConfirmedAt,
		p.BankReference, p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) && violatedConstraint(err) == "idx_payment_intents_open_per_order" {
			return domain.NewPaymentInProgressError(p.OrderID)
		}
		return fmt.Errorf("failed to update payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStaleWriteError("payment intent", p.ID)
	}
	return nil
}

// ClaimForRefund marks the intent as busy with a refund. A claim older than
// staleAfter is considered abandoned and may be taken over.
func (r *PaymentRepository) ClaimForRefund(ctx context.Context, id string, now time.Time, staleAfter time.Duration) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_intents SET locked_at = $2
		WHERE id = $1
		  AND status IN ('completed', 'partially_refunded')
		  AND (locked_at IS NULL OR locked_at < $3)
	`, id, now, now.Add(-staleAfter))
	if err != nil {
		return false, fmt.Errorf("failed to claim payment intent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) ReleaseClaim(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `UPDATE payment_intents SET locked_at = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to release payment claim: %w", err)
	}
	return nil
}

func (r *PaymentRepository) findOne(ctx context.Context, label, query string, args ...any) (*domain.PaymentIntent, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("payment intent", label)
		}
		return nil, fmt.Errorf("failed to find payment intent: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) findMany(ctx context.Context, query string, args ...any) ([]*domain.PaymentIntent, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payment intents: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentIntent, error) {
		return scanPayment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan payment intents: %w", err)
	}
	return results, nil
}

func scanPayment(row pgx.Row) (*domain.PaymentIntent, error) {
	var (
		p                          domain.PaymentIntent
		currency, provider, status string
		metadata                   []byte
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &p.TenantID, &p.Amount, &currency, &provider, &p.IdempotencyKey,
		&status, &p.ProviderRef, &p.Description, &metadata, &p.RefundedAmount, &p.RefundReason,
		&p.FailureCode, &p.FailureMessage, &p.ConfirmedBy, &p.ConfirmedAt, &p.BankReference,
		&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	p.Currency = domain.Currency(currency)
	p.Provider = domain.Provider(provider)
	p.Status = domain.PaymentStatus(status)
	if p.Metadata, err = unmarshalMap(metadata); err != nil {
		return nil, err
	}
	return &p, nil
}
