package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID prefixed with the given module
// name, for lock values, webhook ids and locally minted tx references.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// NormalizeTrackingCode trims a user supplied tracking code. Tracking codes
// are matched exactly on the ledger, so whitespace must not leak in.
func NormalizeTrackingCode(code string) string {
	return strings.TrimSpace(code)
}

// PlaceholderContentHash builds a temporary content reference when the
// caller has not uploaded metadata yet. It keys on the tracking code so
// the reference stays recognizable in timeline views.
func PlaceholderContentHash(trackingCode string) string {
	normalized := strings.Join(strings.Fields(trackingCode), "-")
	if len(normalized) > 64 {
		normalized = normalized[:64]
	}
	if normalized == "" {
		normalized = "batch"
	}
	return fmt.Sprintf("temp://harvest/%s/%d", normalized, time.Now().UnixMilli())
}
