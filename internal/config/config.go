package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	envPrefix  = "ENGINE_"
	envFileVar = "ENGINE_CONFIG_FILE"
)

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Store     StoreConfig     `koanf:"store"`
	Providers ProvidersConfig `koanf:"providers"`
	Retry     RetryConfig     `koanf:"retry"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Logger    LoggerConfig    `koanf:"logger"`
	Worker    WorkerConfig    `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	CartTTL  time.Duration `koanf:"cart_ttl" validate:"required"`
}

type KafkaConfig struct {
	Enabled bool   `koanf:"enabled"`
	Brokers string `koanf:"brokers"`
	Topic   string `koanf:"topic" validate:"required"`
}

// BrokerList splits the comma separated broker list.
func (c KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StoreConfig carries the per-store commercial settings.
type StoreConfig struct {
	TenantID           string                      `koanf:"tenant_id" validate:"required"`
	OrderPrefix        string                      `koanf:"order_prefix" validate:"required"`
	CartTTL            time.Duration               `koanf:"cart_ttl" validate:"required"`
	PaymentExpiry      time.Duration               `koanf:"payment_expiry" validate:"required"`
	BankTransferExpiry time.Duration               `koanf:"bank_transfer_expiry" validate:"required"`
	IdempotencyWait    time.Duration               `koanf:"idempotency_wait" validate:"required"`
	RefundClaimTTL     time.Duration               `koanf:"refund_claim_ttl" validate:"required"`
	Delivery           map[string]map[string]int64 `koanf:"delivery"`
}

// DeliveryRate returns the configured cost of a delivery method in a
// currency. Pickup is free unless configured otherwise.
func (c StoreConfig) DeliveryRate(method, currency string) (int64, error) {
	rates, ok := c.Delivery[strings.ToLower(method)]
	if !ok {
		if strings.EqualFold(method, "pickup") {
			return 0, nil
		}
		return 0, fmt.Errorf("no delivery rates for method %q", method)
	}
	cost, ok := rates[strings.ToLower(currency)]
	if !ok {
		return 0, fmt.Errorf("no %s delivery rate for currency %s", method, currency)
	}
	return cost, nil
}

type ProviderConfig struct {
	BaseURL       string        `koanf:"base_url"`
	APIKey        string        `koanf:"api_key"`
	WebhookSecret string        `koanf:"webhook_secret"`
	Timeout       time.Duration `koanf:"timeout" validate:"required"`
	ReturnURL     string        `koanf:"return_url"`
	AccountIBAN   string        `koanf:"account_iban"`
}

// Live reports whether real credentials are configured; otherwise the
// adapter answers with deterministic mock responses.
func (c ProviderConfig) Live() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

type ProvidersConfig struct {
	MobileMoney  ProviderConfig `koanf:"mobile_money"`
	Card         ProviderConfig `koanf:"card"`
	BankTransfer ProviderConfig `koanf:"bank_transfer"`
	Wallet       ProviderConfig `koanf:"wallet"`
	MockSecret   string         `koanf:"mock_secret" validate:"required"`
}

// ByName returns the settings of a provider by its identifier.
func (c ProvidersConfig) ByName(name string) (ProviderConfig, bool) {
	switch name {
	case "mobile_money":
		return c.MobileMoney, true
	case "card":
		return c.Card, true
	case "bank_transfer":
		return c.BankTransfer, true
	case "wallet":
		return c.Wallet, true
	}
	return ProviderConfig{}, false
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries" validate:"required"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout" validate:"required"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"required"`
}

type WorkerConfig struct {
	Interval          time.Duration `koanf:"interval" validate:"required"`
	BatchSize         int           `koanf:"batch_size" validate:"required"`
	OutboxInterval    time.Duration `koanf:"outbox_interval" validate:"required"`
	SweepInterval     time.Duration `koanf:"sweep_interval" validate:"required"`
	ReconcileMinAge   time.Duration `koanf:"reconcile_min_age" validate:"required"`
	OutboxMaxAttempts int           `koanf:"outbox_max_attempts" validate:"required"`
	OutboxClaimTTL    time.Duration `koanf:"outbox_claim_ttl" validate:"required"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                     "development",
		"server.port":                     "8080",
		"server.read_timeout":             "15s",
		"server.write_timeout":            "30s",
		"server.idle_timeout":             "60s",
		"server.request_timeout":          "25s",
		"database.ssl_mode":               "disable",
		"database.max_open_conns":         20,
		"database.max_idle_conns":         5,
		"database.conn_max_lifetime":      "1h",
		"database.conn_max_idle_time":     "30m",
		"redis.cart_ttl":                  "10m",
		"kafka.topic":                     "order-notifications",
		"store.order_prefix":              "FM",
		"store.cart_ttl":                  "168h",
		"store.payment_expiry":            "30m",
		"store.bank_transfer_expiry":      "72h",
		"store.idempotency_wait":          "30s",
		"store.refund_claim_ttl":          "2m",
		"store.delivery.standard.aoa":     250000,
		"store.delivery.standard.usd":     500,
		"store.delivery.standard.eur":     450,
		"store.delivery.express.aoa":      500000,
		"store.delivery.express.usd":      1200,
		"store.delivery.express.eur":      1100,
		"providers.mock_secret":           "mock-webhook-secret",
		"providers.mobile_money.timeout":  "10s",
		"providers.card.timeout":          "10s",
		"providers.bank_transfer.timeout": "10s",
		"providers.wallet.timeout":        "10s",
		"retry.base_delay":                "200ms",
		"retry.max_retries":               3,
		"breaker.max_requests":            1,
		"breaker.interval":                "60s",
		"breaker.timeout":                 "30s",
		"breaker.failure_threshold":       5,
		"worker.interval":                 "1m",
		"worker.batch_size":               100,
		"worker.outbox_interval":          "5s",
		"worker.sweep_interval":           "1h",
		"worker.reconcile_min_age":        "1m",
		"worker.outbox_max_attempts":      10,
		"worker.outbox_claim_ttl":         "1m",
		"logger.level":                    "info",
		"logger.format":                   "json",
	}
}

// LoadConfig layers defaults, an optional YAML file named by
// ENGINE_CONFIG_FILE and ENGINE_* environment variables, in that order.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load defaults", "error", err)
		return nil, err
	}

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
