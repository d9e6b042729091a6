// Package uuid generates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 run IDs.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewRunID returns a UUID v7. Run IDs sort by creation time, which keeps
// result rows from one run adjacent in the store.
func (Generator) NewRunID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}

// Static always returns the same run ID. Tests use it to get stable output.
type Static uuid.UUID

// NewRunID returns the fixed ID.
func (s Static) NewRunID() (uuid.UUID, error) {
	return uuid.UUID(s), nil
}
