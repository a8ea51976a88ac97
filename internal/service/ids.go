package service

import (
	"strings"

	"github.com/google/uuid"
)

// generateID produces a prefixed opaque identifier, e.g. "dev_a1b2...".
func generateID(prefix string) string {
	id := uuid.New().String()
	// Remove hyphens and take first 26 chars to fit varchar(64) with prefix
	clean := strings.ReplaceAll(id, "-", "")
	if len(prefix) > 0 {
		return prefix + "_" + clean[:26]
	}
	return clean
}
