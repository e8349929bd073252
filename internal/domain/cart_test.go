package domain_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cartNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newProduct(id string, aoa int64, rate string) *domain.Product {
	return &domain.Product{
		ID:      id,
		Name:    "Product " + id,
		Active:  true,
		TaxRate: decimal.RequireFromString(rate),
		Prices: map[domain.Currency]int64{
			domain.CurrencyAOA: aoa,
			domain.CurrencyUSD: aoa / 100,
		},
	}
}

func newCart(t *testing.T) *domain.Cart {
	t.Helper()
	cart, err := domain.NewCart("cart-1", "user-1", domain.CurrencyAOA, 7*24*time.Hour, cartNow)
	require.NoError(t, err)
	return cart
}

func TestCart_AddLine(t *testing.T) {
	t.Run("prices a single line tax-inclusive", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")

		_, err := cart.AddLine("line-1", p, 2, nil, cartNow)

		require.NoError(t, err)
		assert.Equal(t, int64(20000), cart.Subtotal)
		assert.Equal(t, int64(2456), cart.TaxAmount)
		assert.Equal(t, int64(20000), cart.Total)
	})

	t.Run("merges the same product and variant", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")

		_, err := cart.AddLine("line-1", p, 1, map[string]any{"variant": "red"}, cartNow)
		require.NoError(t, err)
		line, err := cart.AddLine("line-2", p, 2, map[string]any{"variant": "red"}, cartNow)
		require.NoError(t, err)

		require.Len(t, cart.Lines, 1)
		assert.Equal(t, "line-1", line.ID)
		assert.Equal(t, 3, line.Quantity)
		assert.Equal(t, int64(30000), line.TotalPrice)
		assert.Equal(t, domain.TaxPortion(30000, p.TaxRate), line.TaxAmount)
	})

	t.Run("keeps variants apart", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")

		_, _ = cart.AddLine("line-1", p, 1, map[string]any{"variant": "red"}, cartNow)
		_, _ = cart.AddLine("line-2", p, 1, map[string]any{"variant": "blue"}, cartNow)

		assert.Len(t, cart.Lines, 2)
	})

	t.Run("rejects disabled product", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")
		p.Active = false

		_, err := cart.AddLine("line-1", p, 1, nil, cartNow)

		assert.ErrorIs(t, err, domain.ErrInactive)
	})

	t.Run("rejects quantity above tracked stock including merged quantity", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")
		p.TrackInventory = true
		p.Stock = 3

		_, err := cart.AddLine("line-1", p, 2, nil, cartNow)
		require.NoError(t, err)
		_, err = cart.AddLine("line-2", p, 2, nil, cartNow)

		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Equal(t, 2, cart.Lines[0].Quantity)
	})

	t.Run("ignores stock for untracked products", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")
		p.Stock = 0

		_, err := cart.AddLine("line-1", p, 50, nil, cartNow)

		assert.NoError(t, err)
	})

	t.Run("rejects inactive cart", func(t *testing.T) {
		cart := newCart(t)
		cart.Active = false

		_, err := cart.AddLine("line-1", newProduct("p-1", 100, "0"), 1, nil, cartNow)

		assert.ErrorIs(t, err, domain.ErrInactive)
	})

	t.Run("rejects expired cart", func(t *testing.T) {
		cart := newCart(t)

		_, err := cart.AddLine("line-1", newProduct("p-1", 100, "0"), 1, nil, cartNow.Add(8*24*time.Hour))

		assert.ErrorIs(t, err, domain.ErrInactive)
	})

	t.Run("captures scheduled date option", func(t *testing.T) {
		cart := newCart(t)

		line, err := cart.AddLine("line-1", newProduct("p-1", 100, "0"), 1,
			map[string]any{"scheduled_date": "2026-04-01"}, cartNow)

		require.NoError(t, err)
		require.NotNil(t, line.ScheduledDate)
		assert.Equal(t, 2026, line.ScheduledDate.Year())
	})
}

func TestCart_UpdateQuantity(t *testing.T) {
	t.Run("zero removes the line", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")
		_, _ = cart.AddLine("line-1", p, 2, nil, cartNow)

		err := cart.UpdateQuantity("line-1", 0, nil, cartNow)

		require.NoError(t, err)
		assert.Empty(t, cart.Lines)
		assert.Zero(t, cart.Total)
	})

	t.Run("recomputes totals", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")
		_, _ = cart.AddLine("line-1", p, 2, nil, cartNow)

		err := cart.UpdateQuantity("line-1", 5, p, cartNow)

		require.NoError(t, err)
		assert.Equal(t, int64(50000), cart.Subtotal)
		assert.Equal(t, domain.TaxPortion(50000, p.TaxRate), cart.TaxAmount)
	})

	t.Run("re-validates stock", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")
		p.TrackInventory = true
		p.Stock = 4
		_, _ = cart.AddLine("line-1", p, 2, nil, cartNow)

		err := cart.UpdateQuantity("line-1", 5, p, cartNow)

		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	})

	t.Run("unknown line is not found", func(t *testing.T) {
		cart := newCart(t)

		err := cart.UpdateQuantity("missing", 1, nil, cartNow)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func welcome10(minOrder int64) *domain.Coupon {
	return &domain.Coupon{
		Code:     "WELCOME10",
		Type:     domain.DiscountPercentage,
		Currency: domain.CurrencyAOA,
		Value:    decimal.NewFromInt(10),
		MinOrder: minOrder,
		Active:   true,
	}
}

func TestCart_ApplyCoupon(t *testing.T) {
	t.Run("percentage coupon discounts the subtotal", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)

		res, err := cart.ApplyCoupon(welcome10(5000), cartNow)

		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Equal(t, int64(2000), res.DiscountAmount)
		assert.Equal(t, int64(18000), cart.Total)
		assert.Equal(t, int64(2456), cart.TaxAmount)
	})

	t.Run("rejects subtotal below minimum order", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)

		res, err := cart.ApplyCoupon(welcome10(500000), cartNow)

		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Error)
		assert.Nil(t, cart.Coupon)
		assert.Equal(t, int64(20000), cart.Total)
	})

	t.Run("caps percentage discounts", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)
		coupon := welcome10(0)
		limit := int64(500)
		coupon.MaxDiscount = &limit

		res, err := cart.ApplyCoupon(coupon, cartNow)

		require.NoError(t, err)
		assert.Equal(t, int64(500), res.DiscountAmount)
	})

	t.Run("fixed coupon uses stored amount", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)

		res, err := cart.ApplyCoupon(&domain.Coupon{
			Code: "FLAT", Type: domain.DiscountFixed, Currency: domain.CurrencyAOA, Value: decimal.NewFromInt(3000), Active: true,
		}, cartNow)

		require.NoError(t, err)
		assert.Equal(t, int64(3000), res.DiscountAmount)
		assert.Equal(t, int64(17000), cart.Total)
	})

	t.Run("rejects expired, inactive and exhausted coupons", func(t *testing.T) {
		expired := welcome10(0)
		past := cartNow.Add(-time.Hour)
		expired.ExpiresAt = &past

		inactive := welcome10(0)
		inactive.Active = false

		exhausted := welcome10(0)
		limit := 5
		exhausted.UsageLimit = &limit
		exhausted.UsedCount = 5

		for _, c := range []*domain.Coupon{expired, inactive, exhausted} {
			cart := newCart(t)
			_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)

			res, err := cart.ApplyCoupon(c, cartNow)

			require.NoError(t, err)
			assert.False(t, res.Valid)
		}
	})

	t.Run("new coupon replaces the old one", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)
		_, _ = cart.ApplyCoupon(welcome10(0), cartNow)

		_, err := cart.ApplyCoupon(&domain.Coupon{
			Code: "FLAT", Type: domain.DiscountFixed, Currency: domain.CurrencyAOA, Value: decimal.NewFromInt(100), Active: true,
		}, cartNow)

		require.NoError(t, err)
		assert.Equal(t, "FLAT", cart.Coupon.Code)
		assert.Equal(t, int64(100), cart.DiscountAmount)
	})

	t.Run("drops coupon when subtotal falls below minimum", func(t *testing.T) {
		cart := newCart(t)
		p := newProduct("p-1", 10000, "0.14")
		_, _ = cart.AddLine("line-1", p, 2, nil, cartNow)
		_, _ = cart.ApplyCoupon(welcome10(15000), cartNow)

		require.NoError(t, cart.UpdateQuantity("line-1", 1, p, cartNow))

		assert.Nil(t, cart.Coupon)
		assert.Zero(t, cart.DiscountAmount)
	})

	t.Run("total never goes negative", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 100, "0"), 1, nil, cartNow)

		_, err := cart.ApplyCoupon(&domain.Coupon{
			Code: "HUGE", Type: domain.DiscountFixed, Currency: domain.CurrencyAOA, Value: decimal.NewFromInt(100000), Active: true,
		}, cartNow)

		require.NoError(t, err)
		assert.Equal(t, int64(0), cart.Total)
	})

	t.Run("rejects a coupon denominated in another currency", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)

		res, err := cart.ApplyCoupon(&domain.Coupon{
			Code: "FLAT", Type: domain.DiscountFixed, Currency: domain.CurrencyUSD, Value: decimal.NewFromInt(20), Active: true,
		}, cartNow)

		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Nil(t, cart.Coupon)
	})

	t.Run("rejects amounts without a currency", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)

		res, err := cart.ApplyCoupon(&domain.Coupon{
			Code: "FLAT", Type: domain.DiscountFixed, Value: decimal.NewFromInt(2000), Active: true,
		}, cartNow)

		require.NoError(t, err)
		assert.False(t, res.Valid)
	})
}

func TestCart_Reprice(t *testing.T) {
	cart := newCart(t)
	p := newProduct("p-1", 10000, "0.14")
	_, _ = cart.AddLine("line-1", p, 2, nil, cartNow)

	t.Run("switches every line to the new price list", func(t *testing.T) {
		err := cart.Reprice(domain.CurrencyUSD, map[string]*domain.Product{"p-1": p}, cartNow)

		require.NoError(t, err)
		assert.Equal(t, domain.CurrencyUSD, cart.Currency)
		assert.Equal(t, int64(200), cart.Subtotal)
		assert.Equal(t, domain.TaxPortion(200, p.TaxRate), cart.TaxAmount)
	})

	t.Run("fails when a product has no price in the currency", func(t *testing.T) {
		err := cart.Reprice(domain.CurrencyEUR, map[string]*domain.Product{"p-1": p}, cartNow)

		assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
		assert.Equal(t, domain.CurrencyUSD, cart.Currency)
	})

	t.Run("fails for a currency outside the enumerated set", func(t *testing.T) {
		err := cart.Reprice(domain.Currency("GBP"), map[string]*domain.Product{"p-1": p}, cartNow)

		assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
	})
}

func TestCart_RepriceCoupons(t *testing.T) {
	p := newProduct("p-1", 10000, "0.14")
	products := map[string]*domain.Product{"p-1": p}

	t.Run("drops a fixed coupon of the old currency", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", p, 2, nil, cartNow)
		res, err := cart.ApplyCoupon(&domain.Coupon{
			Code: "KZ2000", Type: domain.DiscountFixed, Currency: domain.CurrencyAOA, Value: decimal.NewFromInt(2000), Active: true,
		}, cartNow)
		require.NoError(t, err)
		require.True(t, res.Valid)

		require.NoError(t, cart.Reprice(domain.CurrencyUSD, products, cartNow))

		assert.Nil(t, cart.Coupon)
		assert.Zero(t, cart.DiscountAmount)
		assert.Equal(t, int64(200), cart.Total)
	})

	t.Run("keeps a plain percentage coupon", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", p, 2, nil, cartNow)
		res, err := cart.ApplyCoupon(&domain.Coupon{
			Code: "TEN", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true,
		}, cartNow)
		require.NoError(t, err)
		require.True(t, res.Valid)

		require.NoError(t, cart.Reprice(domain.CurrencyUSD, products, cartNow))

		require.NotNil(t, cart.Coupon)
		assert.Equal(t, int64(20), cart.DiscountAmount)
		assert.Equal(t, int64(180), cart.Total)
	})
}

func TestCart_Freeze(t *testing.T) {
	t.Run("empty cart cannot be checked out", func(t *testing.T) {
		cart := newCart(t)

		_, err := cart.Freeze(cartNow)

		assert.ErrorIs(t, err, domain.ErrEmptyCart)
		assert.True(t, cart.Active)
	})

	t.Run("freezes and snapshots totals", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)
		require.NoError(t, cart.SetDelivery(domain.DeliveryExpress, 1500, cartNow))

		snap, err := cart.Freeze(cartNow)

		require.NoError(t, err)
		assert.False(t, cart.Active)
		assert.Equal(t, int64(21500), snap.Total)
		assert.Equal(t, int64(2456), snap.TaxAmount)
		assert.Equal(t, domain.DeliveryExpress, snap.DeliveryMethod)

		_, err = cart.Freeze(cartNow)
		assert.ErrorIs(t, err, domain.ErrInactive)
	})

	t.Run("reactivate restores a frozen cart", func(t *testing.T) {
		cart := newCart(t)
		_, _ = cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 1, nil, cartNow)
		_, _ = cart.Freeze(cartNow)

		cart.Reactivate(cartNow)

		assert.True(t, cart.Active)
		assert.Nil(t, cart.CheckedOutAt)
	})
}

// Random carts must always satisfy the subtotal, tax and total identities.
func TestCart_TotalsInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rates := []string{"0", "0.05", "0.14", "0.2", "0.23"}

	for i := 0; i < 200; i++ {
		cart := newCart(t)
		for j := 0; j < 1+rng.Intn(5); j++ {
			p := newProduct(fmt.Sprintf("p-%d", j), int64(1+rng.Intn(50000)), rates[rng.Intn(len(rates))])
			_, err := cart.AddLine(fmt.Sprintf("l-%d", j), p, 1+rng.Intn(9), nil, cartNow)
			require.NoError(t, err)
		}
		if rng.Intn(2) == 0 {
			_, _ = cart.ApplyCoupon(welcome10(0), cartNow)
		}
		_ = cart.SetDelivery(domain.DeliveryStandard, int64(rng.Intn(3000)), cartNow)

		var subtotal, tax int64
		for _, l := range cart.Lines {
			assert.Equal(t, l.UnitPrice*int64(l.Quantity), l.TotalPrice)
			subtotal += l.TotalPrice
			tax += domain.TaxPortion(l.TotalPrice, l.TaxRate)
		}
		assert.Equal(t, subtotal, cart.Subtotal)
		assert.Equal(t, tax, cart.TaxAmount)
		assert.Equal(t, max(0, subtotal-cart.DiscountAmount+cart.DeliveryCost), cart.Total)
		assert.LessOrEqual(t, cart.TaxAmount, cart.Subtotal)
	}
}
