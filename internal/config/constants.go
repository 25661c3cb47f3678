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

// Default rate limiting for authenticated API routes
const DefaultRateLimitPerMin = 60

// How long a resolved token -> user mapping may live in Redis.
// Logout deletes the entry explicitly, so this only bounds staleness
// after out-of-band row deletion.
const TokenCacheTTL = 5 * time.Minute
