package config

import (
	"os"
	"time"
)

// CacheConfig controls the Redis copy of the Seats table used for display
// reads. When Enabled is false or no Redis client is configured every read
// goes to the ledger. A non-positive TTL disables the cache. The Whitelist
// table is always read from the ledger and never copied to Redis.
type CacheConfig struct {
	Enabled  bool
	SeatsTTL time.Duration
	Prefix   string
}

// LoadCacheConfig reads the cache settings, falling back to defaults.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:  getenv("CACHE_ENABLED", "true") == "true",
		SeatsTTL: parseDur(getenv("CACHE_SEATS_TTL", "20s")),
		Prefix:   getenv("CACHE_PREFIX", "ledger"),
	}
}

// Helper functions reused from the other loaders
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
