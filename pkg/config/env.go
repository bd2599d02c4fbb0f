package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvCurrency          = "PRICING_CURRENCY"
	EnvDepositRate       = "PRICING_DEPOSIT_RATE"
	EnvQuoteValidity     = "PRICING_QUOTE_VALIDITY"
	EnvPremiumBrands     = "PRICING_PREMIUM_BRANDS"
	EnvPremiumCategories = "PRICING_PREMIUM_CATEGORIES"

	EnvDefaultStartOfDay         = "SLOTS_START_OF_DAY"
	EnvDefaultEndOfDay           = "SLOTS_END_OF_DAY"
	EnvDefaultSlotDurationMin    = "SLOTS_DURATION_MIN"
	EnvDefaultMaxBookingsPerSlot = "SLOTS_MAX_BOOKINGS"
	EnvDefaultSlotTypes          = "SLOTS_TYPES"
	EnvReservationTokenKey       = "RESERVATION_TOKEN_KEY"

	EnvCatalogSource  = "CATALOG_SOURCE"
	EnvCatalogURL     = "CATALOG_URL"
	EnvCatalogTimeout = "CATALOG_TIMEOUT"

	EnvOutboxPollInterval = "OUTBOX_POLL_INTERVAL"
	EnvOutboxBatchSize    = "OUTBOX_BATCH_SIZE"
	EnvOutboxMaxAttempts  = "OUTBOX_MAX_ATTEMPTS"

	EnvOtelEnabled       = "OTEL_ENABLED"
	EnvOtelEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOtelSamplingRatio = "OTEL_SAMPLING_RATIO"
)
