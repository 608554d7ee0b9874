// Package enums holds the string-backed enumerations persisted in Postgres
// enum columns and exchanged over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parseEnum matches raw case-insensitively after trimming.
func parseEnum[T ~string](known []T, raw, kind string) (T, error) {
	want := strings.ToLower(strings.TrimSpace(raw))
	if i := slices.IndexFunc(known, func(v T) bool { return string(v) == want }); i >= 0 {
		return known[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
