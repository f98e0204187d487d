package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

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

	EnvBaseFeeAmount           = "BASE_FEE_AMOUNT"
	EnvOverageFeeAmount        = "OVERAGE_FEE_AMOUNT"
	EnvOverageThresholdMinutes = "OVERAGE_THRESHOLD_MINUTES"
	EnvLocalOffset             = "LOCAL_UTC_OFFSET"

	EnvTxMaxAttempts  = "TX_MAX_ATTEMPTS"
	EnvTxRetryBackoff = "TX_RETRY_BACKOFF"

	EnvEventsEnabled = "EVENTS_ENABLED"
)
