package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
)

func ParseDeliveryMethod(s string) (DeliveryMethod, error) {
	switch m := DeliveryMethod(s); m {
	case DeliveryPickup, DeliveryStandard, DeliveryExpress:
		return m, nil
	}
	return "", NewInvalidInputError("unknown delivery method %q", s)
}

type CartLine struct {
	ID            string
	ProductID     string
	Variant       string
	Quantity      int
	UnitPrice     int64
	TaxRate       decimal.Decimal
	TotalPrice    int64
	TaxAmount     int64
	ScheduledDate *time.Time
	Options       map[string]any
	AddedAt       time.Time
}

func (l *CartLine) recompute() {
	l.TotalPrice = l.UnitPrice * int64(l.Quantity)
	l.TaxAmount = TaxPortion(l.TotalPrice, l.TaxRate)
}

// Cart is a mutable, single-owner basket. All money fields are minor units
// of Currency and tax-inclusive.
type Cart struct {
	ID             string
	OwnerID        string
	Currency       Currency
	Lines          []*CartLine
	Coupon         *CouponTerms
	DiscountAmount int64
	DeliveryMethod DeliveryMethod
	DeliveryCost   int64
	Subtotal       int64
	TaxAmount      int64
	Total          int64
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
	CheckedOutAt   *time.Time
}

func NewCart(id, ownerID string, currency Currency, ttl time.Duration, now time.Time) (*Cart, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("cart ID")
	}
	if !currency.Valid() {
		return nil, NewUnsupportedCurrencyError(string(currency))
	}
	return &Cart{
		ID:             id,
		OwnerID:        ownerID,
		Currency:       currency,
		DeliveryMethod: DeliveryPickup,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}, nil
}

func (c *Cart) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// EnsureMutable fails once the cart is checked out or past its TTL.
func (c *Cart) EnsureMutable(now time.Time) error {
	if !c.Active || c.IsExpired(now) {
		return NewInactiveError(c.ID)
	}
	return nil
}

func (c *Cart) Line(lineID string) (*CartLine, bool) {
	for _, l := range c.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return nil, false
}

func (c *Cart) findLine(productID, variant string) *CartLine {
	for _, l := range c.Lines {
		if l.ProductID == productID && l.Variant == variant {
			return l
		}
	}
	return nil
}

// AddLine prices quantity units of product into the cart, merging with an
// existing line for the same product and variant.
func (c *Cart) AddLine(lineID string, product *Product, quantity int, options map[string]any, now time.Time) (*CartLine, error) {
	if err := c.EnsureMutable(now); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, NewInvalidInputError("quantity must be at least 1")
	}
	if !product.Active {
		return nil, NewProductInactiveError(product.ID)
	}
	price, err := product.PriceIn(c.Currency)
	if err != nil {
		return nil, err
	}

	variant := variantOf(options)
	line := c.findLine(product.ID, variant)
	newQty := quantity
	if line != nil {
		newQty += line.Quantity
	}
	if err := product.CheckStock(newQty); err != nil {
		return nil, err
	}

	if line == nil {
		line = &CartLine{
			ID:        lineID,
			ProductID: product.ID,
			Variant:   variant,
			Options:   options,
			AddedAt:   now,
		}
		c.Lines = append(c.Lines, line)
	}
	line.Quantity = newQty
	line.UnitPrice = price
	line.TaxRate = product.TaxRate
	if d, ok := scheduledDateOf(options); ok {
		line.ScheduledDate = &d
	}
	line.recompute()

	c.touch(now)
	return line, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
// product is only consulted when the line is kept.
func (c *Cart) UpdateQuantity(lineID string, quantity int, product *Product, now time.Time) error {
	if err := c.EnsureMutable(now); err != nil {
		return err
	}
	line, ok := c.Line(lineID)
	if !ok {
		return NewNotFoundError("cart line", lineID)
	}

	if quantity <= 0 {
		c.removeLine(lineID)
		c.touch(now)
		return nil
	}

	if product == nil {
		return NewNotFoundError("product", line.ProductID)
	}
	if !product.Active {
		return NewProductInactiveError(product.ID)
	}
	if err := product.CheckStock(quantity); err != nil {
		return err
	}
	line.Quantity = quantity
	line.recompute()
	c.touch(now)
	return nil
}

func (c *Cart) removeLine(lineID string) {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
}

// ApplyCoupon validates coupon against the current subtotal and, when valid,
// replaces any coupon already on the cart.
func (c *Cart) ApplyCoupon(coupon *Coupon, now time.Time) (CouponResult, error) {
	if err := c.EnsureMutable(now); err != nil {
		return CouponResult{}, err
	}
	c.Recompute()
	if err := coupon.Validate(c.Subtotal, c.Currency, now); err != nil {
		return CouponResult{Valid: false, Error: err.Error()}, nil
	}
	terms := coupon.Terms()
	c.Coupon = &terms
	c.touch(now)
	return CouponResult{Valid: true, DiscountAmount: c.DiscountAmount}, nil
}

func (c *Cart) RemoveCoupon(now time.Time) error {
	if err := c.EnsureMutable(now); err != nil {
		return err
	}
	c.Coupon = nil
	c.touch(now)
	return nil
}

// Reprice switches the cart to currency, taking each line's unit price from
// products. Every line's product must be present.
func (c *Cart) Reprice(currency Currency, products map[string]*Product, now time.Time) error {
	if err := c.EnsureMutable(now); err != nil {
		return err
	}
	if !currency.Valid() {
		return NewUnsupportedCurrencyError(string(currency))
	}
	prices := make([]int64, len(c.Lines))
	for i, l := range c.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			return NewNotFoundError("product", l.ProductID)
		}
		price, err := p.PriceIn(currency)
		if err != nil {
			return err
		}
		prices[i] = price
	}
	for i, l := range c.Lines {
		l.UnitPrice = prices[i]
		l.TaxRate = products[l.ProductID].TaxRate
		l.recompute()
	}
	c.Currency = currency
	c.touch(now)
	return nil
}

func (c *Cart) SetDelivery(method DeliveryMethod, cost int64, now time.Time) error {
	if err := c.EnsureMutable(now); err != nil {
		return err
	}
	if cost < 0 {
		return NewInvalidAmountError(cost)
	}
	c.DeliveryMethod = method
	c.DeliveryCost = cost
	c.touch(now)
	return nil
}

// Recompute derives subtotal, tax, discount and total from the lines.
// A coupon whose minimum order is no longer met, or whose amounts are in
// another currency, is dropped.
func (c *Cart) Recompute() {
	var subtotal, tax int64
	for _, l := range c.Lines {
		l.recompute()
		subtotal += l.TotalPrice
		tax += l.TaxAmount
	}
	c.Subtotal = subtotal
	c.TaxAmount = tax

	c.DiscountAmount = 0
	if c.Coupon != nil {
		if !c.Coupon.AppliesTo(c.Currency) || subtotal < c.Coupon.MinOrder {
			c.Coupon = nil
		} else {
			c.DiscountAmount = c.Coupon.DiscountFor(subtotal)
		}
	}

	c.Total = max(0, subtotal-c.DiscountAmount+c.DeliveryCost)
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
	c.Recompute()
}

// CartSnapshot is the frozen view of a cart that order creation consumes.
type CartSnapshot struct {
	CartID         string
	OwnerID        string
	Currency       Currency
	Lines          []CartLine
	CouponCode     string
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	DeliveryMethod DeliveryMethod
	DeliveryCost   int64
	Total          int64
}

// Freeze marks the cart inactive and returns its totals snapshot.
func (c *Cart) Freeze(now time.Time) (*CartSnapshot, error) {
	if err := c.EnsureMutable(now); err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, NewEmptyCartError(c.ID)
	}
	c.Recompute()

	snap := &CartSnapshot{
		CartID:         c.ID,
		OwnerID:        c.OwnerID,
		Currency:       c.Currency,
		Lines:          make([]CartLine, 0, len(c.Lines)),
		Subtotal:       c.Subtotal,
		DiscountAmount: c.DiscountAmount,
		TaxAmount:      c.TaxAmount,
		DeliveryMethod: c.DeliveryMethod,
		DeliveryCost:   c.DeliveryCost,
		Total:          c.Total,
	}
	if c.Coupon != nil {
		snap.CouponCode = c.Coupon.Code
	}
	for _, l := range c.Lines {
		snap.Lines = append(snap.Lines, *l)
	}

	c.Active = false
	c.CheckedOutAt = &now
	c.UpdatedAt = now
	return snap, nil
}

// Reactivate undoes Freeze.
func (c *Cart) Reactivate(now time.Time) {
	c.Active = true
	c.CheckedOutAt = nil
	c.UpdatedAt = now
}

func variantOf(options map[string]any) string {
	if v, ok := options["variant"].(string); ok {
		return v
	}
	return ""
}

func scheduledDateOf(options map[string]any) (time.Time, bool) {
	raw, ok := options["scheduled_date"].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
