// Package id generates identifiers for tasks and reports.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for generated IDs.
const (
	PrefixTask   = "task"
	PrefixClient = "sse"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "task-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Report returns a fresh report ID, a random UUID.
func Report() string {
	return uuid.NewString()
}
