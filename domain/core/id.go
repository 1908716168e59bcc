package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types. Hypothesis, family, run and dataset identifiers
// are caller-supplied stable strings (never UUIDs) so that derived seeds and
// cache keys survive process restarts; only report artifact IDs use NewID.
type (
	HypothesisID string
	FamilyID     string
	RunKey       string
	DatasetID    string
	ArtifactID   ID
)

// String conversions for domain IDs
func (id HypothesisID) String() string { return string(id) }
func (id FamilyID) String() string     { return string(id) }
func (k RunKey) String() string        { return string(k) }
func (id DatasetID) String() string    { return string(id) }
func (id ArtifactID) String() string   { return ID(id).String() }

// ParseHypothesisID parses a string into HypothesisID
func ParseHypothesisID(s string) (HypothesisID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("hypothesis ID cannot be empty")
	}
	return HypothesisID(s), nil
}

// ParseRunKey validates a run key. Run keys feed seed derivation, so anything
// that smells like a timestamp or filesystem path is rejected: semantically
// identical reruns must produce identical seeds.
func ParseRunKey(s string) (RunKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run key cannot be empty")
	}
	if strings.ContainsAny(s, "/\\") {
		return "", fmt.Errorf("run key %q must not contain path separators", s)
	}
	return RunKey(s), nil
}
