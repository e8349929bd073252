package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-4217 code. Amounts are always integers in minor units.
type Currency string

const (
	CurrencyAOA Currency = "AOA"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

var supportedCurrencies = []Currency{CurrencyAOA, CurrencyUSD, CurrencyEUR}

func SupportedCurrencies() []Currency {
	return append([]Currency(nil), supportedCurrencies...)
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", NewUnsupportedCurrencyError(s)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

type Money struct {
	Amount   int64
	Currency Currency
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, NewInvalidAmountError(amount)
	}
	if currency == "" {
		return Money{}, NewMissingRequiredFieldError("currency")
	}
	c, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: c}, nil
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// TaxPortion returns the tax already contained in a tax-inclusive amount:
// amount - amount/(1+rate), truncated toward zero.
func TaxPortion(amount int64, rate decimal.Decimal) int64 {
	if amount == 0 || rate.IsZero() {
		return 0
	}
	gross := decimal.NewFromInt(amount)
	net := gross.DivRound(one.Add(rate), 12)
	return gross.Sub(net).Truncate(0).IntPart()
}

// PercentOf returns pct percent of amount, truncated toward zero.
func PercentOf(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Truncate(0).IntPart()
}
