package providers

import (
	"log/slog"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
)

type entry struct {
	adapter application.PaymentProvider
	decode  application.WebhookDecoder
}

// Registry maps each provider to its decorated adapter and webhook decoder.
type Registry struct {
	entries map[domain.Provider]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[domain.Provider]entry)}
}

// NewDefaultRegistry wires all four rails behind a circuit breaker and
// retries. Rails without credentials answer in mock mode.
func NewDefaultRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	r := NewRegistry()
	p := cfg.Providers

	adapters := map[domain.Provider]struct {
		adapter application.PaymentProvider
		decode  application.WebhookDecoder
		live    bool
	}{
		domain.ProviderMobileMoney:  {NewMobileMoneyAdapter(p.MobileMoney, p.MockSecret), DecodeMobileMoneyWebhook, p.MobileMoney.Live()},
		domain.ProviderCard:         {NewCardAdapter(p.Card, p.MockSecret), DecodeCardWebhook, p.Card.Live()},
		domain.ProviderBankTransfer: {NewBankTransferAdapter(p.BankTransfer), DecodeBankTransferWebhook, p.BankTransfer.AccountIBAN != ""},
		domain.ProviderWallet:       {NewWalletAdapter(p.Wallet, p.MockSecret), DecodeWalletWebhook, p.Wallet.Live()},
	}

	for provider, a := range adapters {
		breaker := NewBreakerProvider(a.adapter, provider, cfg.Breaker, logger)
		r.Register(provider, NewRetryProvider(breaker, cfg.Retry), a.decode)
		if !a.live {
			logger.Info("payment provider running in mock mode", "provider", provider)
		}
	}

	return r
}

// Register replaces the adapter and decoder of a provider.
func (r *Registry) Register(provider domain.Provider, adapter application.PaymentProvider, decode application.WebhookDecoder) {
	r.entries[provider] = entry{adapter: adapter, decode: decode}
}

func (r *Registry) Lookup(provider domain.Provider) (application.PaymentProvider, application.WebhookDecoder, error) {
	e, ok := r.entries[provider]
	if !ok {
		return nil, nil, application.NewProviderNotConfiguredError(provider)
	}
	return e.adapter, e.decode, nil
}

var signatureHeaders = map[domain.Provider]string{
	domain.ProviderMobileMoney:  "X-Callback-Signature",
	domain.ProviderCard:         "X-Card-Signature",
	domain.ProviderBankTransfer: "X-Signature",
	domain.ProviderWallet:       "X-Wallet-Signature",
}

// SignatureHeader names the request header a provider signs its webhooks in.
func SignatureHeader(provider domain.Provider) string {
	if h, ok := signatureHeaders[provider]; ok {
		return h
	}
	return "X-Signature"
}
