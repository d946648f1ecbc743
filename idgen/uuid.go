package idgen

import (
	"context"

	"github.com/google/uuid"
)

// UUID mints random v4 identifiers, the default generator for run ids,
// session ids, and tool-use ids outside of tests.
type UUID struct{}

func NewUUID() UUID { return UUID{} }

func (UUID) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
