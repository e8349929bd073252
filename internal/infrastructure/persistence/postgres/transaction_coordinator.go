package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories groups every repository bound to one Executor, either the
// pool or an open transaction.
type Repositories struct {
	Catalog     *CatalogRepository
	Carts       *CartRepository
	Orders      *OrderRepository
	Payments    *PaymentRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
}

func NewRepositories(q Executor) Repositories {
	return Repositories{
		Catalog:     NewCatalogRepository(q),
		Carts:       NewCartRepository(q),
		Orders:      NewOrderRepository(q),
		Payments:    NewPaymentRepository(q),
		Idempotency: NewIdempotencyRepository(q),
		Outbox:      NewOutboxRepository(q),
	}
}

// TransactionCoordinator manages transactions across multiple repositories
type TransactionCoordinator struct {
	pool *pgxpool.Pool
}

func NewTransactionCoordinator(db *DB) *TransactionCoordinator {
	return &TransactionCoordinator{
		pool: db.Pool,
	}
}

// WithTransaction executes a function within a database transaction
// The function receives repository instances that use the transaction
func (tc *TransactionCoordinator) WithTransaction(
	ctx context.Context,
	fn func(ctx context.Context, repos Repositories) error,
) error {
	tx, err := tc.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		if IsLockConflict(err) {
			return domain.NewConflictError("concurrent update, retry the request")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if IsLockConflict(err) {
			return domain.NewConflictError("concurrent update, retry the request")
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
