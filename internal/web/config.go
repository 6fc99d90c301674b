package web

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/notify"
)

// Config holds everything the HTTP server needs beyond the database.
type Config struct {
	Auth     auth.Config
	SMTP     notify.SMTPConfig
	Port     int
	PhotoDir string
	// Location decides which calendar day counts as "today" on the dashboard
	// when a request does not name a time zone.
	Location *time.Location
}

// ConfigFromEnv reads the server configuration from FD_* variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Auth: auth.ConfigFromEnv(),
		SMTP: notify.SMTPConfig{
			Host: os.Getenv("FD_SMTP_HOST"),
			Port: envOr("FD_SMTP_PORT", "587"),
			User: os.Getenv("FD_SMTP_USER"),
			Pass: os.Getenv("FD_SMTP_PASS"),
			From: os.Getenv("FD_SMTP_FROM"),
		},
		Port:     8080,
		PhotoDir: envOr("FD_PHOTO_DIR", "visitor_photos"),
		Location: time.Local,
	}

	if p := os.Getenv("FD_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 {
			return Config{}, fmt.Errorf("invalid FD_PORT %q", p)
		}
		cfg.Port = port
	}

	if tz := os.Getenv("FD_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FD_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// relyingParty derives the WebAuthn relying party ID and origin from the
// public base URL.
func (c Config) relyingParty() (id, origin string, err error) {
	u, err := url.Parse(c.Auth.BaseURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("base URL %q has no host", c.Auth.BaseURL)
	}
	return u.Hostname(), u.Scheme + "://" + u.Host, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
