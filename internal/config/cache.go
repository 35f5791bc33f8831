package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is
// disabled.  Methods lists the HTTP methods to cache.  KeyStrategy
// determines which parts of the request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

func loadCacheConfig(e *source) CacheConfig {
	return CacheConfig{
		Enabled:      e.envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(e.envStr("CACHE_METHODS", "GET")),
		TTL:          e.envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  e.envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       e.envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: e.envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
