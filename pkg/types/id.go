// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// StableID generates a deterministic identifier from its parts, consistent
// across re-extractions of unchanged content. The ID is the first 12 hex
// characters of SHA-256 over the parts.
func StableID(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// DeterministicAuthorID derives a stable author identity from family and
// given name, falling back to the full name when either is missing. Names
// are lowercased and whitespace-collapsed so formatting variants of the
// same person hash identically.
func DeterministicAuthorID(given, family, full string) string {
	given = foldName(given)
	family = foldName(family)
	if given != "" && family != "" {
		return StableID("author", family, given)
	}
	return StableID("author", foldName(full))
}

func foldName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
