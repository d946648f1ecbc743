// Package httpguard provides HTTP boundary middleware for the demo binary:
// bearer-token auth and request-size/timeout/step-budget limits. Neither
// concern belongs inside the engine, which only ever sees a context
// deadline and a MaxSteps int; this package is what turns operator-facing
// HTTP knobs into those.
package httpguard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)

var ErrUnauthorized = errors.New("httpguard: authentication failed")

// RejectFunc writes an HTTP response for a request the guard denies.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// AuthMiddleware requires a matching bearer token on every request. An empty
// expected token disables the check entirely (local/dev mode).
func AuthMiddleware(token string, reject RejectFunc) func(http.Handler) http.Handler {
	expected := strings.TrimSpace(token)
	if expected == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	expectedHeader := BearerPrefix + expected

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.Header.Get(HeaderAuthorization)) != expectedHeader {
				reject(w, r, fmt.Errorf("%w: missing or invalid bearer token", ErrUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	DefaultMaxRequestBodyBytes = 1 << 20
	DefaultRequestTimeout      = 30 * time.Second
)

var ErrRequestTimedOut = errors.New("httpguard: request timeout exceeded")

// LimitConfig bounds one HTTP request's body size and lifetime.
type LimitConfig struct {
	MaxRequestBodyBytes int64
	RequestTimeout      time.Duration
}

func normalizeLimitConfig(cfg LimitConfig) LimitConfig {
	if cfg.MaxRequestBodyBytes <= 0 {
		cfg.MaxRequestBodyBytes = DefaultMaxRequestBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return cfg
}

// LimitMiddleware caps request body size and attaches a request-scoped
// deadline derived from cfg.RequestTimeout.
func LimitMiddleware(cfg LimitConfig) func(http.Handler) http.Handler {
	cfg = normalizeLimitConfig(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBodyBytes)
			}
			ctx, cancel := context.WithTimeoutCause(r.Context(), cfg.RequestTimeout, ErrRequestTimedOut)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var ErrStepBudgetExceeded = errors.New("httpguard: requested max_steps exceeds policy limit")

// NormalizeMaxSteps checks a request's requested step budget against the
// server-side ceiling, filling in a default when the caller left it unset.
// A budget above the ceiling is rejected with ErrStepBudgetExceeded, not
// lowered to it.
func NormalizeMaxSteps(requested, defaultSteps, maxAllowed int) (int, error) {
	if maxAllowed <= 0 {
		maxAllowed = defaultSteps
	}
	if requested <= 0 {
		if defaultSteps > maxAllowed {
			return 0, fmt.Errorf("%w: default max_steps=%d exceeds policy max_steps=%d", ErrStepBudgetExceeded, defaultSteps, maxAllowed)
		}
		return defaultSteps, nil
	}
	if requested > maxAllowed {
		return 0, fmt.Errorf("%w: requested max_steps=%d policy max_steps=%d", ErrStepBudgetExceeded, requested, maxAllowed)
	}
	return requested, nil
}
