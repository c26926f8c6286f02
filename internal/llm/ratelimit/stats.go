package ratelimit

// Stats exposes limiter state for monitoring.
type Stats struct {
	// LocalLimiters is the number of live per-key token buckets.
	LocalLimiters int
	// Enabled reports whether limiting is enforced.
	Enabled bool
}
