package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first 16 hex characters, used for deterministic file names.
func (h Hash) Short() string {
	if len(h) < 16 {
		return string(h)
	}
	return string(h[:16])
}

// Domain-specific hash types
type (
	CacheKeyHash Hash
	FamilyHash   Hash
)

// Constructors
func NewCacheKeyHash(data []byte) CacheKeyHash { return CacheKeyHash(NewHash(data)) }
func NewFamilyHash(data []byte) FamilyHash     { return FamilyHash(NewHash(data)) }

// String conversions
func (h CacheKeyHash) String() string { return Hash(h).String() }
func (h FamilyHash) String() string   { return Hash(h).String() }
func (h CacheKeyHash) Short() string  { return Hash(h).Short() }

// ComputeFamilyHash hashes the canonical (sorted) hypothesis id set so that
// two families with the same members always hash identically regardless of
// insertion order.
func ComputeFamilyHash(hypothesisIDs []string) FamilyHash {
	ids := make([]string, len(hypothesisIDs))
	copy(ids, hypothesisIDs)
	sort.Strings(ids)

	var data strings.Builder
	for _, id := range ids {
		data.WriteString(id)
		data.WriteString("\x00")
	}
	return NewFamilyHash([]byte(data.String()))
}

// CanonicalKeyString renders a field map into one canonical string for
// hashing: keys sorted, "key=value" pairs joined by "|". Values must already
// be deterministic (no timestamps, no absolute paths).
func CanonicalKeyString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return strings.Join(parts, "|")
}
