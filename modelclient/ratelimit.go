package modelclient

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"deepagent/agent"
)

// RateLimit wraps a Model with a token-bucket limiter. Scope is per
// instance, not global: each Model a caller constructs (lead agent, each
// sub-agent's own handle) gets its own budget, so one sub-agent's burst
// cannot starve its siblings or the lead agent of request headroom.
type RateLimit struct {
	next    agent.Model
	limiter *rate.Limiter
}

// NewRateLimit allows up to burst requests immediately and thereafter
// refills at requestsPerSecond.
func NewRateLimit(next agent.Model, requestsPerSecond float64, burst int) (*RateLimit, error) {
	if next == nil {
		return nil, fmt.Errorf("modelclient: rate-limited model is required")
	}
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("modelclient: requestsPerSecond must be positive")
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimit{next: next, limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}, nil
}

// Generate blocks until the limiter admits the request or ctx is done,
// then delegates to the wrapped Model.
func (r *RateLimit) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return agent.Message{}, err
	}
	return r.next.Generate(ctx, request)
}

var _ agent.Model = (*RateLimit)(nil)
