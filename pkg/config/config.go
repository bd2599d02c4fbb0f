package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"repairdesk/pkg/client"
	"repairdesk/pkg/logger"

	"github.com/joho/godotenv"
)

var (
	timeRegex       = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Pricing PricingConfig

	DefaultStartOfDay         string
	DefaultEndOfDay           string
	DefaultSlotDurationMin    int
	DefaultMaxBookingsPerSlot int
	DefaultSlotTypes          []string
	ReservationTokenKey       string

	CatalogSource  string
	CatalogURL     string
	CatalogTimeout time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	OtelEnabled       bool
	OtelEndpoint      string
	OtelSamplingRatio float64

	Log    *logger.Logger
	Client *client.Client
}

// PricingConfig holds the tunable parts of the quote rules.
type PricingConfig struct {
	Currency          string
	DepositRate       float64
	QuoteValidity     time.Duration
	PremiumBrands     []string
	PremiumCategories []string
}

func DefaultPricing() PricingConfig {
	return PricingConfig{
		Currency:          DefaultCurrency,
		DepositRate:       DefaultDepositRate,
		QuoteValidity:     DefaultQuoteValidity,
		PremiumBrands:     DefaultPremiumBrands,
		PremiumCategories: DefaultPremiumCategories,
	}
}

func Load(serviceName string) *Config {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, 0),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Pricing: PricingConfig{
			Currency:          getEnvStr(EnvCurrency, DefaultCurrency),
			DepositRate:       getEnvFloat(EnvDepositRate, DefaultDepositRate),
			QuoteValidity:     getEnvDuration(EnvQuoteValidity, DefaultQuoteValidity),
			PremiumBrands:     getEnvList(EnvPremiumBrands, DefaultPremiumBrands),
			PremiumCategories: getEnvList(EnvPremiumCategories, DefaultPremiumCategories),
		},

		DefaultStartOfDay:         getEnvStr(EnvDefaultStartOfDay, DefaultDefaultStartOfDay),
		DefaultEndOfDay:           getEnvStr(EnvDefaultEndOfDay, DefaultDefaultEndOfDay),
		DefaultSlotDurationMin:    getEnvNum(EnvDefaultSlotDurationMin, DefaultDefaultSlotDurationMin),
		DefaultMaxBookingsPerSlot: getEnvNum(EnvDefaultMaxBookingsPerSlot, DefaultDefaultMaxBookingsPerSlot),
		DefaultSlotTypes:          getEnvList(EnvDefaultSlotTypes, DefaultDefaultSlotTypes),
		ReservationTokenKey:       getEnvStr(EnvReservationTokenKey, ""),

		CatalogSource:  getEnvStr(EnvCatalogSource, DefaultCatalogSource),
		CatalogURL:     getEnvStr(EnvCatalogURL, ""),
		CatalogTimeout: getEnvDuration(EnvCatalogTimeout, DefaultCatalogTimeout),

		OutboxPollInterval: getEnvDuration(EnvOutboxPollInterval, DefaultOutboxPollInterval),
		OutboxBatchSize:    getEnvNum(EnvOutboxBatchSize, DefaultOutboxBatchSize),
		OutboxMaxAttempts:  getEnvNum(EnvOutboxMaxAttempts, DefaultOutboxMaxAttempts),

		OtelEnabled:       getEnvBool(EnvOtelEnabled, false),
		OtelEndpoint:      getEnvStr(EnvOtelEndpoint, DefaultOtelEndpoint),
		OtelSamplingRatio: getEnvFloat(EnvOtelSamplingRatio, DefaultOtelSamplingRatio),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"QuoteValidity", cfg.Pricing.QuoteValidity},
		{"CatalogTimeout", cfg.CatalogTimeout},
		{"OutboxPollInterval", cfg.OutboxPollInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if len(cfg.Pricing.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("Currency must be a 3 letter ISO code, got: %s", cfg.Pricing.Currency))
	}
	if cfg.Pricing.DepositRate < 0 || cfg.Pricing.DepositRate > 1 {
		errors = append(errors, fmt.Sprintf("DepositRate must be between 0 and 1, got: %v", cfg.Pricing.DepositRate))
	}

	if !timeRegex.MatchString(cfg.DefaultStartOfDay) {
		errors = append(errors, fmt.Sprintf("DefaultStartOfDay must be in HH:MM format (00:00-23:59), got: %s", cfg.DefaultStartOfDay))
	}
	if !timeRegex.MatchString(cfg.DefaultEndOfDay) {
		errors = append(errors, fmt.Sprintf("DefaultEndOfDay must be in HH:MM format (00:00-23:59), got: %s", cfg.DefaultEndOfDay))
	}
	if timeRegex.MatchString(cfg.DefaultStartOfDay) && timeRegex.MatchString(cfg.DefaultEndOfDay) &&
		cfg.DefaultStartOfDay >= cfg.DefaultEndOfDay {
		errors = append(errors, fmt.Sprintf("DefaultEndOfDay (%s) must be after DefaultStartOfDay (%s)", cfg.DefaultEndOfDay, cfg.DefaultStartOfDay))
	}
	if cfg.DefaultSlotDurationMin < 5 || cfg.DefaultSlotDurationMin > 480 {
		errors = append(errors, fmt.Sprintf("DefaultSlotDurationMin must be between 5 and 480, got: %d", cfg.DefaultSlotDurationMin))
	}
	if cfg.DefaultMaxBookingsPerSlot <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultMaxBookingsPerSlot must be positive, got: %d", cfg.DefaultMaxBookingsPerSlot))
	}
	if len(cfg.DefaultSlotTypes) == 0 {
		errors = append(errors, "DefaultSlotTypes cannot be empty")
	}
	for _, st := range cfg.DefaultSlotTypes {
		if st != "regular" && st != "express" && st != "same_day" {
			errors = append(errors, fmt.Sprintf("DefaultSlotTypes contains unknown type: %s", st))
		}
	}

	switch cfg.CatalogSource {
	case CatalogSourceMongo:
	case CatalogSourceHTTP:
		if cfg.CatalogURL == "" {
			errors = append(errors, "CatalogURL is required when CatalogSource is http")
		}
	default:
		errors = append(errors, fmt.Sprintf("CatalogSource must be '%s' or '%s', got: %s", CatalogSourceMongo, CatalogSourceHTTP, cfg.CatalogSource))
	}

	if cfg.OutboxBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxBatchSize must be positive, got: %d", cfg.OutboxBatchSize))
	}
	if cfg.OutboxMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxMaxAttempts must be positive, got: %d", cfg.OutboxMaxAttempts))
	}
	if cfg.OtelSamplingRatio < 0 || cfg.OtelSamplingRatio > 1 {
		errors = append(errors, fmt.Sprintf("OtelSamplingRatio must be between 0 and 1, got: %v", cfg.OtelSamplingRatio))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"currency", cfg.Pricing.Currency,
		"deposit_rate", cfg.Pricing.DepositRate,
		"quote_validity", cfg.Pricing.QuoteValidity,
		"premium_brands", cfg.Pricing.PremiumBrands,
		"premium_categories", cfg.Pricing.PremiumCategories,
		"default_start_of_day", cfg.DefaultStartOfDay,
		"default_end_of_day", cfg.DefaultEndOfDay,
		"default_slot_duration_min", cfg.DefaultSlotDurationMin,
		"default_max_bookings_per_slot", cfg.DefaultMaxBookingsPerSlot,
		"default_slot_types", cfg.DefaultSlotTypes,
		"reservation_key_set", cfg.ReservationTokenKey != "",
		"catalog_source", cfg.CatalogSource,
		"catalog_url", cfg.CatalogURL,
		"outbox_poll_interval", cfg.OutboxPollInterval,
		"outbox_batch_size", cfg.OutboxBatchSize,
		"otel_enabled", cfg.OtelEnabled,
		"otel_endpoint", cfg.OtelEndpoint,
	)
}

func redactMongoURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList reads a comma separated list, lower-cased and trimmed.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
