package main

import (
	"encoding/json"
	"fmt"
	"os"

	"edgecheck/domain/core"
)

// artifact is the envelope the report renderer consumes: a unique id, the
// artifact kind, and the payload. The id identifies the report artifact
// itself and never participates in seeding or caching.
type artifact struct {
	ID        core.ArtifactID `json:"id"`
	Kind      string          `json:"kind"`
	CreatedAt core.Timestamp  `json:"created_at"`
	Payload   any             `json:"payload"`
}

// writeArtifact renders the payload as JSON to a file or stdout.
func writeArtifact(path, kind string, payload any) error {
	a := artifact{
		ID:        core.ArtifactID(core.NewID()),
		Kind:      kind,
		CreatedAt: core.Now(),
		Payload:   payload,
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s artifact: %w", kind, err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
