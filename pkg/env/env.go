// Package env reads ad-hoc process settings that live outside the
// envconfig-managed config struct.
package env

import (
	"os"
	"strings"
)

// Lookup returns the trimmed value of key and whether it was non-blank.
func Lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// Get returns the value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v, ok := Lookup(key); ok {
		return v
	}
	return fallback
}

// First returns the first non-blank value among keys.
func First(keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}
