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

// Stale session sweep. A session open for at least StaleSessionThreshold
// is reported on every pass.
const (
	StaleSweepInterval    = 10 * time.Minute
	StaleSessionThreshold = 10 * time.Hour
	StaleSweepTimeout     = 2 * time.Minute
	NotifyConcurrency     = 8
)

// Work session engine
const (
	RecentSessionsLimit        = 10
	PublicIDAllocationAttempts = 5
)

// Default rate limiting
const DefaultCommandRateLimitPerMin = 30

// Export downloads are rate limited per client address.
const ExportRateLimitPerMin = 20
