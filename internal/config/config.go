package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	Currency           string

	// Pricing.
	TaxRate decimal.Decimal

	// Coupons.
	CouponCacheTTL            time.Duration
	CouponPerCustomerDefault  int
	CouponApplyRateLimitMax   int
	CouponApplyRateLimitEvery time.Duration

	// Shipping. The per-item weight fallback and box dimensions mirror the
	// carrier defaults; they are configuration, not engine constants.
	OriginCEP                  string
	ShippingDefaultItemKg      decimal.Decimal
	ShippingDefaultBoxWidthCm  int
	ShippingDefaultBoxHeightCm int
	ShippingDefaultBoxLengthCm int
	ViaCEPBaseURL              string
	ViaCEPTimeout              time.Duration

	CheckoutIdempotencyTTL time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	taxRate, err := parseDecimal(k.String("PRICING_TAX_RATE"), "0")
	if err != nil {
		return nil, fmt.Errorf("PRICING_TAX_RATE: %w", err)
	}
	defaultItemKg, err := parseDecimal(k.String("SHIPPING_DEFAULT_ITEM_KG"), "0.3")
	if err != nil {
		return nil, fmt.Errorf("SHIPPING_DEFAULT_ITEM_KG: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Currency:           valueOrDefault(k.String("CURRENCY"), "BRL"),

		TaxRate: taxRate,

		CouponCacheTTL:            parseDuration(k.String("COUPON_CACHE_TTL"), "1m"),
		CouponPerCustomerDefault:  k.Int("COUPON_PER_CUSTOMER_DEFAULT"),
		CouponApplyRateLimitMax:   intOrDefault(k.Int("COUPON_APPLY_RATE_LIMIT_MAX"), 10),
		CouponApplyRateLimitEvery: parseDuration(k.String("COUPON_APPLY_RATE_LIMIT_WINDOW"), "1m"),

		OriginCEP:                  valueOrDefault(k.String("SHIPPING_ORIGIN_CEP"), "01001-000"),
		ShippingDefaultItemKg:      defaultItemKg,
		ShippingDefaultBoxWidthCm:  intOrDefault(k.Int("SHIPPING_DEFAULT_BOX_WIDTH_CM"), 16),
		ShippingDefaultBoxHeightCm: intOrDefault(k.Int("SHIPPING_DEFAULT_BOX_HEIGHT_CM"), 11),
		ShippingDefaultBoxLengthCm: intOrDefault(k.Int("SHIPPING_DEFAULT_BOX_LENGTH_CM"), 20),
		ViaCEPBaseURL:              valueOrDefault(k.String("VIACEP_BASE_URL"), "https://viacep.com.br"),
		ViaCEPTimeout:              parseDuration(k.String("VIACEP_TIMEOUT"), "400ms"),

		CheckoutIdempotencyTTL: parseDuration(k.String("CHECKOUT_IDEMPOTENCY_TTL"), "24h"),
	}

	if cfg.CouponPerCustomerDefault <= 0 {
		cfg.CouponPerCustomerDefault = 1
	}
	if cfg.TaxRate.IsNegative() {
		return nil, errors.New("PRICING_TAX_RATE must not be negative")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return decimal.NewFromString(base)
}
