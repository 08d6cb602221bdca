// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the slug service.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:3000"] (frontend dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// CMSBaseURL is the content store's API base URL
	// (e.g. "https://abc123.api.example-cms.io/v2024-01-01"). Required.
	CMSBaseURL string

	// CMSDataset is the content store dataset name. Required.
	CMSDataset string

	// CMSToken is the bearer token for the content store. Optional: without
	// it, resolution against a public dataset still works, but history
	// capture degrades (the transaction history API needs history-read
	// permission) and history patches cannot be committed.
	CMSToken string

	// CMSHistoryTimeout bounds the per-document store calls made while
	// processing one webhook notification. Defaults to 5s.
	// Set CMS_TIMEOUT_SECONDS to override.
	CMSHistoryTimeout time.Duration

	// OutboxDatabaseURL is the Postgres connection string for the history
	// outbox. Optional: when empty the outbox is disabled and failed history
	// writes are only logged.
	OutboxDatabaseURL string

	// WebhookMaxBodyBytes limits webhook request bodies. Defaults to 1 MiB.
	// Set WEBHOOK_MAX_BODY_BYTES to override.
	WebhookMaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		CMSToken:          os.Getenv("CMS_TOKEN"),
		OutboxDatabaseURL: os.Getenv("OUTBOX_DATABASE_URL"),
	}

	timeoutSeconds, err := parseIntEnv("CMS_TIMEOUT_SECONDS", 5)
	if err != nil {
		return Config{}, err
	}
	cfg.CMSHistoryTimeout = time.Duration(timeoutSeconds) * time.Second

	maxBody, err := parseIntEnv("WEBHOOK_MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.WebhookMaxBodyBytes = int64(maxBody)

	var missing []string

	cfg.CMSBaseURL = os.Getenv("CMS_BASE_URL")
	if cfg.CMSBaseURL == "" {
		missing = append(missing, "CMS_BASE_URL")
	}
	cfg.CMSDataset = os.Getenv("CMS_DATASET")
	if cfg.CMSDataset == "" {
		missing = append(missing, "CMS_DATASET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseIntEnv parses a positive integer environment variable, falling back
// when the variable is unset or empty.
func parseIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
