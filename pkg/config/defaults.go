package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "repairdesk"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultCurrency      = "GBP"
	DefaultDepositRate   = 0.30
	DefaultQuoteValidity = 7 * 24 * time.Hour

	DefaultDefaultStartOfDay         = "09:00"
	DefaultDefaultEndOfDay           = "17:00"
	DefaultDefaultSlotDurationMin    = 60
	DefaultDefaultMaxBookingsPerSlot = 3

	CatalogSourceMongo    = "mongo"
	CatalogSourceHTTP     = "http"
	DefaultCatalogSource  = CatalogSourceMongo
	DefaultCatalogTimeout = 5 * time.Second

	DefaultOutboxPollInterval = 2 * time.Second
	DefaultOutboxBatchSize    = 100
	DefaultOutboxMaxAttempts  = 10

	DefaultOtelEndpoint      = "localhost:4317"
	DefaultOtelSamplingRatio = 1.0
)

var (
	DefaultPremiumBrands     = []string{"apple"}
	DefaultPremiumCategories = []string{"premium_laptop"}
	DefaultDefaultSlotTypes  = []string{"regular", "express", "same_day"}
)
