// Package ratelimit implements a per-caller token bucket guard.
//
// The store is meant to sit in front of the resolution engine at the HTTP
// layer, keyed by whatever identity the caller chooses (bearer token,
// user, IP). It is independent of the catalog's own limits: requests the
// guard rejects never leave the process.
//
// Buckets refill continuously, accruing fractional tokens between checks,
// and idle entries are swept periodically to bound memory.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Default guard parameters.
const (
	DefaultCapacity      = 10
	DefaultWindow        = time.Minute
	DefaultSweepInterval = time.Minute
	DefaultMaxIdleAge    = 5 * time.Minute
)

// Config parameterizes a Store.
type Config struct {
	// Capacity is the bucket size: the number of requests an idle caller
	// can burst before refill pacing applies.
	Capacity int
	// Window is the time to refill a bucket from empty to Capacity.
	Window time.Duration
	// SweepInterval is how often idle buckets are collected.
	SweepInterval time.Duration
	// MaxIdleAge is the idle time after which a bucket is evicted. Clamped
	// to at least twice the window so a pending window is never cut short.
	MaxIdleAge time.Duration
}

// DefaultConfig returns the standard guard parameters.
func DefaultConfig() Config {
	return Config{
		Capacity:      DefaultCapacity,
		Window:        DefaultWindow,
		SweepInterval: DefaultSweepInterval,
		MaxIdleAge:    DefaultMaxIdleAge,
	}
}

// Result is the outcome of a single check-and-consume.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the suggested wait in seconds before the next attempt;
	// at least 1 on denial, 0 when allowed.
	RetryAfter int
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

// Store holds the per-identifier buckets behind a single mutex; safe for
// concurrent check-and-consume from any number of goroutines.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     Config
	logger  *log.Logger
	stop    chan struct{}
	once    sync.Once

	// now is swapped out by tests to advance time deterministically
	now func() time.Time
}

// NewStore creates a Store, filling zero config fields with defaults and
// clamping MaxIdleAge to at least 2x the window.
func NewStore(cfg Config, logger *log.Logger) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.MaxIdleAge < 2*cfg.Window {
		cfg.MaxIdleAge = 2 * cfg.Window
	}

	return &Store{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
}

// Check refills the identifier's bucket, then consumes one token if
// available. Unknown identifiers start a fresh bucket with the consumed
// unit already deducted.
func (s *Store) Check(identifier string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	capacity := float64(s.cfg.Capacity)
	refillPerMs := capacity / float64(s.cfg.Window.Milliseconds())

	b, ok := s.buckets[identifier]
	if !ok {
		b = &bucket{tokens: capacity - 1, lastRefill: now, lastSeen: now}
		s.buckets[identifier] = b
		return Result{Allowed: true, Remaining: int(b.tokens)}
	}

	elapsedMs := float64(now.Sub(b.lastRefill).Milliseconds())
	b.tokens = math.Min(capacity, b.tokens+elapsedMs*refillPerMs)
	b.lastRefill = now
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return Result{Allowed: true, Remaining: int(b.tokens)}
	}

	retryAfter := int(math.Ceil((1 - b.tokens) / refillPerMs / 1000))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
}

// Start runs the periodic sweep until Stop is called or ctx is canceled.
func (s *Store) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				evicted := s.Sweep()
				if evicted > 0 && s.logger != nil {
					s.logger.Debug("swept idle rate limit buckets", "evicted", evicted)
				}
			}
		}
	}()
}

// Stop tears down the sweep goroutine. Safe to call more than once.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// Sweep evicts buckets idle longer than MaxIdleAge and returns how many
// were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, b := range s.buckets {
		if now.Sub(b.lastSeen) >= s.cfg.MaxIdleAge {
			delete(s.buckets, id)
			evicted++
		}
	}

	return evicted
}

// Len returns the number of tracked identifiers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
