package idgen

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Counter provides deterministic, prefix-tagged ids, suitable for tests and
// for scripted model fixtures that assert against exact tool-use ids.
type Counter struct {
	prefix  string
	counter atomic.Uint64
}

// NewCounter returns a Counter minting ids of the form "<prefix>-000001".
// An empty prefix defaults to "id".
func NewCounter(prefix string) *Counter {
	if prefix == "" {
		prefix = "id"
	}
	return &Counter{prefix: prefix}
}

func (g *Counter) NewID(_ context.Context) (string, error) {
	next := g.counter.Add(1)
	return fmt.Sprintf("%s-%06d", g.prefix, next), nil
}
