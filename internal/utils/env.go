package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// EnvInt parses key as an integer, returning fallback when unset or malformed.
func EnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(SafeEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// EnvDuration parses key with time.ParseDuration (e.g. "72h").
func EnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(SafeEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
