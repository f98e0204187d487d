package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "keiteki"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Billing rules for the building's shared fleet.
	DefaultBaseFeeAmount           = 250           // per half-month, charged on first return in that half
	DefaultOverageFeeAmount        = 200           // once per resident per local day
	DefaultOverageThresholdMinutes = 480           // 8 hours of daily usage
	DefaultLocalOffset             = 9 * time.Hour // JST, fixed, no DST

	DefaultTxMaxAttempts  = 5
	DefaultTxRetryBackoff = 50 * time.Millisecond

	DefaultEventsEnabled = false
)
