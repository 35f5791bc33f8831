// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// minSecretLen is the shortest JWT secret accepted outside dev.
const minSecretLen = 32

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env    string // application environment (dev, test, prod)
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret    string        // secret used to sign session tokens
	TokenTTL     time.Duration // session token lifetime
	BcryptCost   int           // bcrypt cost for password hashing
	CookieName   string        // name of the session cookie
	CookieSecure bool          // Secure flag on the session cookie

	DBMigrate            bool   // apply the embedded schema on startup
	LogLevel             string // debug, info, warn or error
	MetricsEnabled       bool   // expose GET /metrics
	AMQPURL              string // RabbitMQ URL; empty disables slot events
	AuditConsumerEnabled bool   // run the audit consumer in-process
	AuditLogDir          string // directory of slots.log

	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// Load reads the process environment.  Invalid or missing values are fatal.
func Load() Config {
	cfg, err := LoadFrom(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// LoadFrom builds a Config from lookup, reporting every missing required
// variable in one error.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	e := &source{lookup: lookup}
	cfg := Config{
		Env:    e.envStr("APP_ENV", "dev"),
		Port:   e.must("APP_PORT"),
		DBUser: e.must("DB_USER"),
		DBPass: e.envStr("DB_PASS", ""),
		DBHost: e.must("DB_HOST"),
		DBPort: e.must("DB_PORT"),
		DBName: e.must("DB_NAME"),

		JWTSecret:    e.must("JWT_SECRET"),
		TokenTTL:     time.Duration(e.envInt("TOKEN_TTL_HOURS", 168)) * time.Hour,
		BcryptCost:   e.envInt("BCRYPT_COST", 12),
		CookieName:   e.envStr("COOKIE_NAME", "token"),
		CookieSecure: e.envBool("COOKIE_SECURE", true),

		DBMigrate:            e.envBool("DB_MIGRATE", true),
		LogLevel:             strings.ToLower(e.envStr("LOG_LEVEL", "info")),
		MetricsEnabled:       e.envBool("METRICS_ENABLED", true),
		AMQPURL:              e.envStr("RABBITMQ_URL", e.envStr("AMQP_URL", "")),
		AuditConsumerEnabled: e.envBool("AUDIT_CONSUMER_ENABLED", false),
		AuditLogDir:          e.envStr("AUDIT_LOG_DIR", "logs"),

		Redis:     loadRedisConfig(e),
		Cache:     loadCacheConfig(e),
		RateLimit: loadRateLimitConfig(e),
	}
	if len(e.missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(e.missing, ", "))
	}
	if !cfg.IsDev() && len(cfg.JWTSecret) < minSecretLen {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d bytes outside dev", minSecretLen)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("TOKEN_TTL_HOURS must be positive")
	}
	if cfg.AuditConsumerEnabled && cfg.AMQPURL == "" {
		return Config{}, errors.New("AUDIT_CONSUMER_ENABLED requires RABBITMQ_URL")
	}
	return cfg, nil
}

// IsDev reports whether the app runs in the dev environment.
func (c Config) IsDev() bool { return c.Env == "dev" }
