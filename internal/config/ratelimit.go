package config

import "time"

// RateLimitConfig configures the Redis token bucket.  LoginCapacity applies
// to POST /admin/login instead of Capacity.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	LoginCapacity  int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func loadRateLimitConfig(e *source) RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        e.envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       e.envInt("RATE_LIMIT_CAPACITY", 20),
		LoginCapacity:  e.envInt("RATE_LIMIT_LOGIN_CAPACITY", 5),
		RefillTokens:   e.envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: e.envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            e.envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    e.envStr("RATE_LIMIT_KEY_STRATEGY", "ip"),
		Prefix:         e.envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          e.envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := e.envInt("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if every := e.envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	return def.normalized()
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.LoginCapacity < 1 {
		c.LoginCapacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// ForLogin returns a copy limited to LoginCapacity.
func (c RateLimitConfig) ForLogin() RateLimitConfig {
	c.Capacity = c.LoginCapacity
	return c
}
