package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CartRepository struct {
	q Executor
}

func NewCartRepository(q Executor) *CartRepository {
	return &CartRepository{q: q}
}

const cartColumns = `
	id, owner_id, currency, coupon, discount_amount, delivery_method, delivery_cost,
	subtotal, tax_amount, total, active, created_at, updated_at, expires_at, checked_out_at`

func (r *CartRepository) Create(ctx context.Context, c *domain.Cart) error {
	coupon, err := couponJSON(c.Coupon)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO carts (`+cartColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		c.ID, nullIfEmpty(c.OwnerID), string(c.Currency), coupon, c.DiscountAmount,
		string(c.DeliveryMethod), c.DeliveryCost, c.Subtotal, c.TaxAmount, c.Total,
		c.Active, c.CreatedAt, c.UpdatedAt, c.ExpiresAt, c.CheckedOutAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return r.replaceLines(ctx, c)
}

func (r *CartRepository) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.find(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
}

// FindByIDForUpdate retrieves a cart with row-level lock
func (r *CartRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Cart, error) {
	return r.find(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1 FOR UPDATE`, id)
}

func (r *CartRepository) find(ctx context.Context, query, id string) (*domain.Cart, error) {
	var (
		c        domain.Cart
		owner    *string
		currency string
		coupon   []byte
		method   string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &owner, &currency, &coupon, &c.DiscountAmount, &method, &c.DeliveryCost,
		&c.Subtotal, &c.TaxAmount, &c.Total, &c.Active, &c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt, &c.CheckedOutAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("cart", id)
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	c.OwnerID = deref(owner)
	c.Currency = domain.Currency(currency)
	c.DeliveryMethod = domain.DeliveryMethod(method)
	if len(coupon) > 0 && string(coupon) != "null" {
		var terms domain.CouponTerms
		if err := json.Unmarshal(coupon, &terms); err != nil {
			return nil, fmt.Errorf("decode cart coupon: %w", err)
		}
		c.Coupon = &terms
	}

	lines, err := r.findLines(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = lines
	return &c, nil
}

func (r *CartRepository) findLines(ctx context.Context, cartID string) ([]*domain.CartLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, variant, quantity, unit_price, tax_rate::text, total_price, tax_amount,
		       scheduled_date, options, added_at
		FROM cart_lines WHERE cart_id = $1
		ORDER BY added_at, id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.CartLine, error) {
		var (
			l       domain.CartLine
			rate    string
			options []byte
		)
		err := row.Scan(&l.ID, &l.ProductID, &l.Variant, &l.Quantity, &l.UnitPrice, &rate,
			&l.TotalPrice, &l.TaxAmount, &l.ScheduledDate, &options, &l.AddedAt)
		if err != nil {
			return nil, err
		}
		if l.TaxRate, err = parseDecimal(rate); err != nil {
			return nil, err
		}
		if l.Options, err = unmarshalMap(options); err != nil {
			return nil, err
		}
		return &l, nil
	})
}

// Save writes the cart header and replaces its lines. Only active carts are
// written, so a checked-out cart cannot be resurrected by a late mutation.
func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	coupon, err := couponJSON(c.Coupon)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE carts SET
			owner_id = $2, currency = $3, coupon = $4, discount_amount = $5,
			delivery_method = $6, delivery_cost = $7, subtotal = $8, tax_amount = $9,
			total = $10, updated_at = $11
		WHERE id = $1 AND active
	`,
		c.ID, nullIfEmpty(c.OwnerID), string(c.Currency), coupon, c.DiscountAmount,
		string(c.DeliveryMethod), c.DeliveryCost, c.Subtotal, c.TaxAmount, c.Total, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewInactiveError(c.ID)
	}
	return r.replaceLines(ctx, c)
}

func (r *CartRepository) replaceLines(ctx context.Context, c *domain.Cart) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("failed to clear cart lines: %w", err)
	}
	for _, l := range c.Lines {
		options, err := marshalJSON(l.Options)
		if err != nil {
			return err
		}
		_, err = r.q.Exec(ctx, `
			INSERT INTO cart_lines (
				id, cart_id, product_id, variant, quantity, unit_price, tax_rate,
				total_price, tax_amount, scheduled_date, options, added_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12)
		`, l.ID, c.ID, l.ProductID, l.Variant, l.Quantity, l.UnitPrice, l.TaxRate.String(),
			l.TotalPrice, l.TaxAmount, l.ScheduledDate, options, l.AddedAt)
		if err != nil {
			return fmt.Errorf("failed to save cart line: %w", err)
		}
	}
	return nil
}

// Freeze flips an active cart to checked out. It reports false when the
// cart was already inactive.
func (r *CartRepository) Freeze(ctx context.Context, cartID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE carts SET active = FALSE, checked_out_at = $2, updated_at = $2
		WHERE id = $1 AND active
	`, cartID, at)
	if err != nil {
		return false, fmt.Errorf("failed to freeze cart: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reactivate is the compensating write for Freeze.
func (r *CartRepository) Reactivate(ctx context.Context, cartID string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE carts SET active = TRUE, checked_out_at = NULL, updated_at = $2
		WHERE id = $1 AND NOT active
	`, cartID, at)
	if err != nil {
		return fmt.Errorf("failed to reactivate cart: %w", err)
	}
	return nil
}

// DeleteExpired removes up to limit active carts whose TTL elapsed before
// cutoff and returns their ids.
func (r *CartRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		DELETE FROM carts WHERE id IN (
			SELECT id FROM carts WHERE active AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired carts: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func couponJSON(t *domain.CouponTerms) ([]byte, error) {
	if t == nil {
		return nil, nil
	}
	return marshalJSON(t)
}
