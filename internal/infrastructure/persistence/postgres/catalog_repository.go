package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository reads products and coupons and owns the two
// conditional writes against them: stock decrement and coupon redemption.
type CatalogRepository struct {
	q Executor
}

func NewCatalogRepository(q Executor) *CatalogRepository {
	return &CatalogRepository{q: q}
}

const productColumns = `id, name, active, track_inventory, stock, tax_rate::text`

func (r *CatalogRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	products, err := r.FindProducts(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p, ok := products[id]
	if !ok {
		return nil, domain.NewNotFoundError("product", id)
	}
	return p, nil
}

// FindProducts loads the given products with their price lists. Missing ids
// are absent from the result.
func (r *CatalogRepository) FindProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Product, error) {
		var (
			p    domain.Product
			rate string
		)
		if err := row.Scan(&p.ID, &p.Name, &p.Active, &p.TrackInventory, &p.Stock, &rate); err != nil {
			return nil, err
		}
		d, err := parseDecimal(rate)
		if err != nil {
			return nil, err
		}
		p.TaxRate = d
		p.Prices = map[domain.Currency]int64{}
		return &p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}

	out := make(map[string]*domain.Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	if len(out) == 0 {
		return out, nil
	}

	priceRows, err := r.q.Query(ctx,
		`SELECT product_id, currency, unit_price FROM product_prices WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query product prices: %w", err)
	}
	defer priceRows.Close()
	for priceRows.Next() {
		var (
			productID, currency string
			price               int64
		)
		if err := priceRows.Scan(&productID, &currency, &price); err != nil {
			return nil, fmt.Errorf("scan product price: %w", err)
		}
		if p, ok := out[productID]; ok {
			p.Prices[domain.Currency(currency)] = price
		}
	}
	return out, priceRows.Err()
}

// SaveProduct upserts a product and replaces its price list.
func (r *CatalogRepository) SaveProduct(ctx context.Context, p *domain.Product) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (id, name, active, track_inventory, stock, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			track_inventory = EXCLUDED.track_inventory,
			stock = EXCLUDED.stock,
			tax_rate = EXCLUDED.tax_rate
	`, p.ID, p.Name, p.Active, p.TrackInventory, p.Stock, p.TaxRate.String())
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM product_prices WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to clear product prices: %w", err)
	}
	for currency, price := range p.Prices {
		_, err := r.q.Exec(ctx,
			`INSERT INTO product_prices (product_id, currency, unit_price) VALUES ($1, $2, $3)`,
			p.ID, string(currency), price)
		if err != nil {
			return fmt.Errorf("failed to save product price: %w", err)
		}
	}
	return nil
}

// DecrementStock takes quantity units of a tracked product in one
// conditional update. It reports false when stock is insufficient at the
// moment of the update or the product no longer exists. Untracked products
// always succeed.
func (r *CatalogRepository) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE products
		SET stock = CASE WHEN track_inventory THEN stock - $2 ELSE stock END
		WHERE id = $1 AND (NOT track_inventory OR stock >= $2)
	`, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CatalogRepository) FindCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	var (
		c        domain.Coupon
		value    string
		currency *string
	)
	err := r.q.QueryRow(ctx, `
		SELECT code, discount_type, currency, value::text, min_order, max_discount, usage_limit, used_count, expires_at, active
		FROM coupons WHERE code = $1
	`, code).Scan(&c.Code, &c.Type, &currency, &value, &c.MinOrder, &c.MaxDiscount, &c.UsageLimit, &c.UsedCount, &c.ExpiresAt, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("coupon", code)
		}
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	if currency != nil {
		c.Currency = domain.Currency(*currency)
	}
	if c.Value, err = parseDecimal(value); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CatalogRepository) SaveCoupon(ctx context.Context, c *domain.Coupon) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO coupons (code, discount_type, value, min_order, max_discount, usage_limit, used_count, expires_at, active, currency)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			currency = EXCLUDED.currency,
			value = EXCLUDED.value,
			min_order = EXCLUDED.min_order,
			max_discount = EXCLUDED.max_discount,
			usage_limit = EXCLUDED.usage_limit,
			used_count = EXCLUDED.used_count,
			expires_at = EXCLUDED.expires_at,
			active = EXCLUDED.active
	`, c.Code, string(c.Type), c.Value.String(), c.MinOrder, c.MaxDiscount, c.UsageLimit, c.UsedCount, c.ExpiresAt, c.Active, nullIfEmpty(string(c.Currency)))
	if err != nil {
		return fmt.Errorf("failed to save coupon: %w", err)
	}
	return nil
}

// RedeemCoupon counts one use of a coupon if it is still redeemable at now.
func (r *CatalogRepository) RedeemCoupon(ctx context.Context, code string, now time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1
		  AND active
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		  AND (expires_at IS NULL OR expires_at > $2)
	`, code, now)
	if err != nil {
		return false, fmt.Errorf("failed to redeem coupon: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
