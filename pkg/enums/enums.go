// Package enums holds the string-backed value sets persisted in the database
// and exchanged over the API.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](set []T, kind, raw string) (T, error) {
	if v := T(raw); slices.Contains(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
