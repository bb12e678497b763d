package gcp

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer variable. Unparsable values fall back to the default.
func GetEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring invalid integer environment variable.", "key", key, "value", raw, "error", err)
		return fallback
	}
	return v
}

// GetEnvFloat reads a floating point variable.
func GetEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Ignoring invalid float environment variable.", "key", key, "value", raw, "error", err)
		return fallback
	}
	return v
}

// GetEnvDuration reads a duration such as "30s" or "1m".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Ignoring invalid duration environment variable.", "key", key, "value", raw, "error", err)
		return fallback
	}
	return v
}

// GetEnvBool reads a boolean such as "true" or "0".
func GetEnvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring invalid boolean environment variable.", "key", key, "value", raw, "error", err)
		return fallback
	}
	return v
}

// GetEnvList reads a comma separated list, dropping empty entries.
func GetEnvList(key string, fallback []string) []string {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
