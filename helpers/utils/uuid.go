package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a random v4 UUID.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateShortID returns the first 8 hex digits of a random UUID.
func GenerateShortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
