package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/providers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const MockSecret = "test-webhook-secret"

// StoreConfig returns the store settings every service suite runs with.
func StoreConfig() config.StoreConfig {
	return config.StoreConfig{
		TenantID:           "ficmart",
		OrderPrefix:        "FM",
		CartTTL:            7 * 24 * time.Hour,
		PaymentExpiry:      30 * time.Minute,
		BankTransferExpiry: 72 * time.Hour,
		IdempotencyWait:    5 * time.Second,
		RefundClaimTTL:     2 * time.Minute,
		Delivery: map[string]map[string]int64{
			"standard": {"aoa": 250000, "usd": 500, "eur": 450},
			"express":  {"aoa": 500000, "usd": 1200, "eur": 1100},
		},
	}
}

func ProvidersConfig() config.ProvidersConfig {
	cfg := config.ProviderConfig{Timeout: 5 * time.Second}
	return config.ProvidersConfig{
		MobileMoney:  cfg,
		Card:         cfg,
		BankTransfer: cfg,
		Wallet:       cfg,
		MockSecret:   MockSecret,
	}
}

// RegistryWith puts one adapter behind every rail, keeping each rail's
// real webhook decoder.
func RegistryWith(adapter application.PaymentProvider) *providers.Registry {
	r := providers.NewRegistry()
	r.Register(domain.ProviderMobileMoney, adapter, providers.DecodeMobileMoneyWebhook)
	r.Register(domain.ProviderCard, adapter, providers.DecodeCardWebhook)
	r.Register(domain.ProviderBankTransfer, adapter, providers.DecodeBankTransferWebhook)
	r.Register(domain.ProviderWallet, adapter, providers.DecodeWalletWebhook)
	return r
}

// MockModeRegistry wires the real adapters in mock mode.
func MockModeRegistry() *providers.Registry {
	p := ProvidersConfig()
	r := providers.NewRegistry()
	r.Register(domain.ProviderMobileMoney, providers.NewMobileMoneyAdapter(p.MobileMoney, MockSecret), providers.DecodeMobileMoneyWebhook)
	r.Register(domain.ProviderCard, providers.NewCardAdapter(p.Card, MockSecret), providers.DecodeCardWebhook)
	r.Register(domain.ProviderBankTransfer, providers.NewBankTransferAdapter(p.BankTransfer), providers.DecodeBankTransferWebhook)
	r.Register(domain.ProviderWallet, providers.NewWalletAdapter(p.Wallet, MockSecret), providers.DecodeWalletWebhook)
	return r
}

// SeedProduct stores a product priced in USD and AOA. A negative stock
// leaves inventory untracked.
func SeedProduct(t *testing.T, db *postgres.DB, id string, usdPrice int64, taxRate string, stock int) *domain.Product {
	t.Helper()

	p := &domain.Product{
		ID:             id,
		Name:           "Product " + id,
		Active:         true,
		TrackInventory: stock >= 0,
		TaxRate:        decimal.RequireFromString(taxRate),
		Prices: map[domain.Currency]int64{
			domain.CurrencyUSD: usdPrice,
			domain.CurrencyAOA: usdPrice * 900,
		},
	}
	if stock >= 0 {
		p.Stock = stock
	}

	require.NoError(t, postgres.NewCatalogRepository(db.Pool).SaveProduct(context.Background(), p))
	return p
}

// Seeded coupons are denominated in USD, the currency of every suite cart.
func SeedPercentCoupon(t *testing.T, db *postgres.DB, code string, percent int64, minOrder int64) *domain.Coupon {
	t.Helper()

	c := &domain.Coupon{
		Code:     code,
		Type:     domain.DiscountPercentage,
		Currency: domain.CurrencyUSD,
		Value:    decimal.NewFromInt(percent),
		MinOrder: minOrder,
		Active:   true,
	}
	require.NoError(t, postgres.NewCatalogRepository(db.Pool).SaveCoupon(context.Background(), c))
	return c
}

func SeedFixedCoupon(t *testing.T, db *postgres.DB, code string, amount int64, usageLimit *int) *domain.Coupon {
	t.Helper()

	c := &domain.Coupon{
		Code:       code,
		Type:       domain.DiscountFixed,
		Currency:   domain.CurrencyUSD,
		Value:      decimal.NewFromInt(amount),
		UsageLimit: usageLimit,
		Active:     true,
	}
	require.NoError(t, postgres.NewCatalogRepository(db.Pool).SaveCoupon(context.Background(), c))
	return c
}

// PendingResult is the provider answer for a freshly created intent.
func PendingResult(ref string) *application.ProviderPaymentResult {
	return &application.ProviderPaymentResult{
		ProviderRef: ref,
		Status:      domain.PaymentPending,
		NextAction:  map[string]string{domain.MetaQRCode: "qr-" + ref},
	}
}

// Signed returns payload with the signature the mock-mode adapters accept.
func Signed(payload string) ([]byte, string) {
	body := []byte(payload)
	return body, providers.SignPayload(MockSecret, body)
}
