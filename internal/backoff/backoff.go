// Package backoff decides whether and when a failed catalog request is
// retried.
//
// Only rate-limit and server failures are candidates; the delay honors a
// provider-supplied retry hint when present and otherwise grows
// exponentially with uniform jitter, so concurrent workers failing against
// the same limit don't retry in lockstep.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"

	"resolvd/internal/services"
)

// Default policy parameters.
const (
	DefaultMaxRetries   = 3
	DefaultBaseDelay    = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultJitterFactor = 0.1
)

// Config parameterizes a retry policy.
type Config struct {
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultConfig returns the standard retry policy parameters.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   DefaultMaxRetries,
		BaseDelay:    DefaultBaseDelay,
		MaxDelay:     DefaultMaxDelay,
		JitterFactor: DefaultJitterFactor,
	}
}

// Decision is the outcome of a retry check. Delay is always 0 when Retry
// is false and never exceeds the configured maximum.
type Decision struct {
	Retry   bool
	Delay   time.Duration
	Attempt int
}

// Policy computes retry decisions from failure classifications.
type Policy struct {
	cfg Config
}

// NewPolicy creates a Policy, filling zero config fields with defaults.
func NewPolicy(cfg Config) *Policy {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	// a negative factor requests no jitter at all; zero means default
	if cfg.JitterFactor == 0 {
		cfg.JitterFactor = DefaultJitterFactor
	} else if cfg.JitterFactor < 0 {
		cfg.JitterFactor = 0
	}

	return &Policy{cfg: cfg}
}

// Decide reports whether the given failure on the 1-indexed attempt should
// be retried, and after what delay.
//
// Non-catalog errors and non-retryable kinds stop immediately, as does an
// attempt past the retry budget. A positive provider retry hint overrides
// the exponential computation; both paths are capped at MaxDelay.
func (p *Policy) Decide(attempt int, err error) Decision {
	d := Decision{Attempt: attempt}

	cerr, ok := services.AsCatalogError(err)
	if !ok || !cerr.Retryable() {
		return d
	}

	if attempt > p.cfg.MaxRetries {
		return d
	}

	d.Retry = true

	if cerr.RetryAfter > 0 {
		d.Delay = min(time.Duration(cerr.RetryAfter)*time.Second, p.cfg.MaxDelay)
		return d
	}

	exp := float64(p.cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	capped := min(time.Duration(exp), p.cfg.MaxDelay)

	d.Delay = capped
	if p.cfg.JitterFactor > 0 {
		// the global rand source is safe for concurrent workers
		d.Delay += time.Duration(rand.Float64() * p.cfg.JitterFactor * float64(capped))
	}
	d.Delay = min(d.Delay, p.cfg.MaxDelay)

	return d
}

// Sleep waits for the given delay, returning early with the context error
// on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
