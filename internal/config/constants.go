package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Upper bound for OUTBOUND_TIMEOUT_SECONDS; the gateway gives up on the webhook well before this.
const MaxOutboundTimeoutSeconds = 60

// Default operator API rate limiting
const DefaultRateLimitPerMin = 60

// Retention job run timeout
const RetentionJobTimeout = 2 * time.Minute
