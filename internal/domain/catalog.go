package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the read model of a catalog entry the cart prices against.
// Prices are tax-inclusive, keyed by currency.
type Product struct {
	ID             string
	Name           string
	Active         bool
	TrackInventory bool
	Stock          int
	TaxRate        decimal.Decimal
	Prices         map[Currency]int64
}

// PriceIn returns the unit price in the given currency.
func (p *Product) PriceIn(c Currency) (int64, error) {
	price, ok := p.Prices[c]
	if !ok {
		return 0, NewUnsupportedCurrencyError(string(c))
	}
	return price, nil
}

// CheckStock fails when a tracked product cannot cover quantity.
func (p *Product) CheckStock(quantity int) error {
	if p.TrackInventory && quantity > p.Stock {
		return NewInsufficientStockError(p.ID, quantity, p.Stock)
	}
	return nil
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a catalog-side discount definition. Value is percent points for
// percentage coupons and minor units for fixed coupons. Every amount the
// coupon carries (fixed value, minimum order, discount cap) is denominated in
// Currency; only a plain percentage coupon may leave it empty.
type Coupon struct {
	Code        string
	Type        DiscountType
	Currency    Currency
	Value       decimal.Decimal
	MinOrder    int64
	MaxDiscount *int64
	UsageLimit  *int
	UsedCount   int
	ExpiresAt   *time.Time
	Active      bool
}

// CouponTerms is the snapshot of a coupon carried on a cart so the discount
// can be re-derived without another catalog lookup.
type CouponTerms struct {
	Code        string          `json:"code"`
	Type        DiscountType    `json:"type"`
	Currency    Currency        `json:"currency,omitempty"`
	Value       decimal.Decimal `json:"value"`
	MinOrder    int64           `json:"min_order"`
	MaxDiscount *int64          `json:"max_discount,omitempty"`
}

// CouponResult is what ApplyCoupon reports back to the caller.
type CouponResult struct {
	Valid          bool
	DiscountAmount int64
	Error          string
}

// Validate checks whether the coupon may be used against subtotal in
// currency at now.
func (c *Coupon) Validate(subtotal int64, currency Currency, now time.Time) error {
	if !c.Active {
		return NewCouponInvalidError("coupon is not active")
	}
	if c.Currency == "" && c.carriesAmounts() {
		return NewCouponInvalidError("coupon has no currency for its amounts")
	}
	if c.Currency != "" && c.Currency != currency {
		return NewCouponInvalidError(fmt.Sprintf("coupon only applies to %s carts", c.Currency))
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return NewCouponInvalidError("coupon has expired")
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return NewCouponInvalidError("coupon usage limit reached")
	}
	if subtotal < c.MinOrder {
		return NewCouponInvalidError("order does not reach the coupon minimum")
	}
	return nil
}

func (c *Coupon) carriesAmounts() bool {
	return c.Type == DiscountFixed || c.MinOrder > 0 || c.MaxDiscount != nil
}

func (c *Coupon) Terms() CouponTerms {
	return CouponTerms{
		Code:        c.Code,
		Type:        c.Type,
		Currency:    c.Currency,
		Value:       c.Value,
		MinOrder:    c.MinOrder,
		MaxDiscount: c.MaxDiscount,
	}
}

// AppliesTo reports whether the terms can price a cart in currency.
func (t CouponTerms) AppliesTo(currency Currency) bool {
	return t.Currency == "" || t.Currency == currency
}

// DiscountFor derives the discount for subtotal. The result never exceeds
// the subtotal.
func (t CouponTerms) DiscountFor(subtotal int64) int64 {
	var discount int64
	switch t.Type {
	case DiscountPercentage:
		discount = PercentOf(subtotal, t.Value)
		if t.MaxDiscount != nil && *t.MaxDiscount > 0 && discount > *t.MaxDiscount {
			discount = *t.MaxDiscount
		}
	case DiscountFixed:
		discount = t.Value.Truncate(0).IntPart()
	}
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
