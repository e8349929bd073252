package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
)

// CartSweeper deletes active carts whose TTL has elapsed. Checked-out carts
// are kept; their orders reference them.
type CartSweeper struct {
	carts     *postgres.CartRepository
	cache     application.CartCache
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewCartSweeper builds a sweeper. cache may be nil.
func NewCartSweeper(
	db *postgres.DB,
	cache application.CartCache,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *CartSweeper {
	return &CartSweeper{
		carts:     postgres.NewCartRepository(db.Pool),
		cache:     cache,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *CartSweeper) Start(ctx context.Context) {
	runEvery(ctx, "cart sweeper", s.interval, s.logger, func(ctx context.Context) error {
		_, err := s.Sweep(ctx)
		return err
	})
}

// Sweep deletes expired carts in batches until none are left.
func (s *CartSweeper) Sweep(ctx context.Context) (int, error) {
	var total int
	cutoff := time.Now().UTC()

	for {
		ids, err := s.carts.DeleteExpired(ctx, cutoff, s.batchSize)
		if err != nil {
			return total, err
		}
		for _, id := range ids {
			if s.cache == nil {
				break
			}
			if err := s.cache.Delete(ctx, id); err != nil {
				s.logger.Warn("failed to evict swept cart", "cart_id", id, "error", err)
			}
		}
		total += len(ids)
		if len(ids) < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("swept expired carts", "count", total)
	}
	return total, nil
}
