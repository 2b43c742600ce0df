package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier, optionally prefixed ("cl_...").
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// ValidID reports whether value looks like an identifier minted by NewID with
// the given prefix.
func ValidID(prefix, value string) bool {
	if prefix != "" {
		var ok bool
		value, ok = strings.CutPrefix(value, prefix+"_")
		if !ok {
			return false
		}
	}
	if len(value) != 32 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
