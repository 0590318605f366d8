// Package util provides shared identifier generation and environment helpers for FunnelForge.
package util

import (
	"math/rand/v2"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Identifier prefixes for document-internal ids. Step and option ids only
// need uniqueness within a single funnel document, so a short random suffix
// is enough; funnel, lead and session ids are ULIDs because they are
// persisted, listed and sorted by creation time.
const (
	StepIDPrefix   = "st_"
	OptionIDPrefix = "op_"
	// DocumentIDLength is the random suffix length for document-internal ids.
	DocumentIDLength = 9
)

// IDGenerator produces an identifier. Injecting one keeps the authoring
// engine deterministic under test.
type IDGenerator func() string

// GenerateRandomID generates a random ID with the specified prefix and suffix length.
// Uses math/rand/v2; these ids are not security sensitive.
func GenerateRandomID(prefix string, length int) string {
	return prefix + GenerateRandomAlphaNumeric(length)
}

// GenerateRandomAlphaNumeric generates a random alphanumeric string of the specified length.
func GenerateRandomAlphaNumeric(length int) string {
	if length <= 0 {
		return ""
	}

	const chars = "0123456789abcdefghijklmnopqrstuvwxyz"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(chars[rand.IntN(len(chars))])
	}

	return builder.String()
}

// GenerateStepID generates a step ID with "st_" prefix.
func GenerateStepID() string {
	return GenerateRandomID(StepIDPrefix, DocumentIDLength)
}

// GenerateOptionID generates a question option ID with "op_" prefix.
func GenerateOptionID() string {
	return GenerateRandomID(OptionIDPrefix, DocumentIDLength)
}

// GenerateFunnelID generates a funnel ID.
func GenerateFunnelID() string {
	return "fn_" + ulid.Make().String()
}

// GenerateLeadID generates a lead ID.
func GenerateLeadID() string {
	return "ld_" + ulid.Make().String()
}

// GenerateSessionID generates a playthrough session ID.
func GenerateSessionID() string {
	return "ps_" + ulid.Make().String()
}

// GenerateShareToken generates the public share token for a published funnel.
func GenerateShareToken() string {
	return GenerateRandomAlphaNumeric(16)
}
