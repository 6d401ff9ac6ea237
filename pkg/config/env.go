package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotLockTTL          = "SLOT_LOCK_TTL"
	EnvSweepLeaseTTL        = "SWEEP_LEASE_TTL"
	EnvSweepInterval        = "SWEEP_INTERVAL"
	EnvMaxConflictRetries   = "MAX_CONFLICT_RETRIES"
	EnvConflictRetryBackoff = "CONFLICT_RETRY_BACKOFF"

	EnvKafkaBrokers = "KAFKA_BROKERS"
	EnvEventsTopic  = "EVENTS_TOPIC"
)
