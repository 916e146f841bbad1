// Package config provides environment helpers for go-teachable commands.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables understood by cmd/teachable.
const (
	EnvModel       = "TEACHABLE_MODEL"
	EnvOutputModel = "TEACHABLE_OUTPUT_MODEL"
	EnvDevice      = "TEACHABLE_CAMERA_DEVICE"
	EnvWebPort     = "TEACHABLE_WEB_PORT"
	EnvLogLevel    = "LOG_LEVEL"
)

// String returns the value of key, or def when it is unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an integer. Unset or malformed values yield def.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns key parsed with strconv.ParseBool. Unset or malformed values
// yield def.
func Bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
