package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr             string
	DatabaseURL      string
	RedisURL         string
	JWTSigningKey    string
	AnonymizationKey string
	// AnonymizationStrategy selects how personal fields are transformed
	// during a soft delete. Only "pseudonymize" is currently implemented.
	AnonymizationStrategy string
	TrustedProxies        []string
	ShutdownTimeout       time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("SAPPHIRE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development fallback - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	anonKey := os.Getenv("ANONYMIZATION_KEY")
	if anonKey == "" {
		anonKey = jwtSigningKey
	}

	strategy := os.Getenv("ANONYMIZATION_STRATEGY")
	if strategy == "" {
		strategy = "pseudonymize"
	}

	var proxies []string
	if raw := os.Getenv("TRUSTED_PROXIES"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				proxies = append(proxies, p)
			}
		}
	}

	return Server{
		Addr:                  addr,
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		JWTSigningKey:         jwtSigningKey,
		AnonymizationKey:      anonKey,
		AnonymizationStrategy: strategy,
		TrustedProxies:        proxies,
		ShutdownTimeout:       10 * time.Second,
	}
}
