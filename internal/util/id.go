package util

import (
	"strconv"

	"github.com/google/uuid"
)

// ValidID reports whether id is a numeric key or a uuid, the two id shapes the API
// uses in paths.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	if _, err := strconv.ParseUint(id, 10, 64); err == nil {
		return true
	}
	_, err := uuid.Parse(id)
	return err == nil
}
