package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "shelterwalk"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout  = 30 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Advisory locks and leases expire on their own so a crashed holder
	// cannot wedge a slot or the sweep.
	DefaultSlotLockTTL   = 10 * time.Second
	DefaultSweepLeaseTTL = 5 * time.Minute
	DefaultSweepInterval = 1 * time.Hour

	DefaultMaxConflictRetries   = 3
	DefaultConflictRetryBackoff = 50 * time.Millisecond

	DefaultKafkaBrokers = ""
	DefaultEventsTopic  = "shelterwalk.events"
)
