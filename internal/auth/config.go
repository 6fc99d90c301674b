// Package auth provides users, roles, password login, JWT sessions and
// passkeys.
package auth

import (
	"os"
	"time"
)

const defaultTokenTTL = 10 * time.Hour

// Config holds authentication configuration.
type Config struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	JWTSecret     string
	TokenTTL      time.Duration
	DevMode       bool
	BaseURL       string // e.g. http://localhost:8080
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		AdminUsername: envOrDefault("FD_ADMIN_USERNAME", "admin"),
		AdminEmail:    envOrDefault("FD_ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: os.Getenv("FD_ADMIN_PASSWORD"),
		JWTSecret:     os.Getenv("FD_JWT_SECRET"),
		TokenTTL:      durationOrDefault("FD_TOKEN_TTL", defaultTokenTTL),
		DevMode:       os.Getenv("FD_DEV_MODE") == "true",
		BaseURL:       envOrDefault("FD_BASE_URL", "http://localhost:8080"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
