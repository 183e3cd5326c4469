package config

import (
    "time"
)

// CacheConfig defines settings for the response cache sitting in front
// of public protocol reads.  When Enabled is false or no Redis client is
// configured, caching is disabled.  Only GET responses are cached; the
// key is derived from route and query string so each filter/sort
// combination caches separately.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults keep entries short-lived: protocol lists go stale the moment
// a doctor saves a record, so 30 seconds is the ceiling worth risking.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
