package backoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"resolvd/internal/services"
)

func noJitterPolicy(maxRetries int) *Policy {
	return NewPolicy(Config{
		MaxRetries:   maxRetries,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: -1, // clamped to 0
	})
}

func TestDecide(t *testing.T) {
	serverErr := fmt.Errorf("wrapped: %w", &services.CatalogError{Kind: services.KindServer, StatusCode: 502})

	t.Run("Exponential Delays", func(t *testing.T) {
		p := noJitterPolicy(3)

		tc := []struct {
			attempt int
			want    time.Duration
		}{
			{1, 1 * time.Second},
			{2, 2 * time.Second},
			{3, 4 * time.Second},
		}

		for _, tt := range tc {
			d := p.Decide(tt.attempt, serverErr)
			if !d.Retry {
				t.Fatalf("attempt %d: expected retry", tt.attempt)
			}
			if d.Delay != tt.want {
				t.Errorf("attempt %d: expected delay %v, got %v", tt.attempt, tt.want, d.Delay)
			}
			if d.Attempt != tt.attempt {
				t.Errorf("expected attempt %d echoed, got %d", tt.attempt, d.Attempt)
			}
		}
	})

	t.Run("Budget Exhausted", func(t *testing.T) {
		p := noJitterPolicy(3)
		d := p.Decide(4, serverErr)
		if d.Retry {
			t.Error("expected no retry past budget")
		}
		if d.Delay != 0 {
			t.Errorf("expected zero delay when not retrying, got %v", d.Delay)
		}
	})

	t.Run("Delay Capped", func(t *testing.T) {
		p := NewPolicy(Config{MaxRetries: 10, BaseDelay: 1 * time.Second, MaxDelay: 5 * time.Second, JitterFactor: -1})
		d := p.Decide(9, serverErr)
		if d.Delay != 5*time.Second {
			t.Errorf("expected capped delay 5s, got %v", d.Delay)
		}
	})

	t.Run("Retry-After Hint Overrides", func(t *testing.T) {
		p := noJitterPolicy(3)
		hinted := &services.CatalogError{Kind: services.KindRateLimited, StatusCode: 429, RetryAfter: 5}

		d := p.Decide(1, hinted)
		if !d.Retry {
			t.Fatal("expected retry")
		}
		if d.Delay != 5*time.Second {
			t.Errorf("expected hint delay 5s, got %v", d.Delay)
		}
	})

	t.Run("Retry-After Hint Capped", func(t *testing.T) {
		p := NewPolicy(Config{MaxRetries: 3, BaseDelay: 1 * time.Second, MaxDelay: 10 * time.Second, JitterFactor: -1})
		hinted := &services.CatalogError{Kind: services.KindRateLimited, StatusCode: 429, RetryAfter: 60}

		d := p.Decide(1, hinted)
		if d.Delay != 10*time.Second {
			t.Errorf("expected hint capped to 10s, got %v", d.Delay)
		}
	})

	t.Run("Auth Never Retried", func(t *testing.T) {
		p := noJitterPolicy(3)
		d := p.Decide(1, &services.CatalogError{Kind: services.KindAuth, StatusCode: 401})
		if d.Retry {
			t.Error("auth errors must not be retried")
		}
	})

	t.Run("Client Never Retried", func(t *testing.T) {
		p := noJitterPolicy(3)
		d := p.Decide(1, &services.CatalogError{Kind: services.KindClient, StatusCode: 400})
		if d.Retry {
			t.Error("client errors must not be retried")
		}
	})

	t.Run("Unclassified Error Never Retried", func(t *testing.T) {
		p := noJitterPolicy(3)
		d := p.Decide(1, errors.New("connection reset"))
		if d.Retry {
			t.Error("unclassified errors must not be retried")
		}
		if d.Delay != 0 {
			t.Errorf("expected zero delay, got %v", d.Delay)
		}
	})

	t.Run("Jitter Stays In Range", func(t *testing.T) {
		p := NewPolicy(Config{MaxRetries: 3, BaseDelay: 1 * time.Second, MaxDelay: 30 * time.Second, JitterFactor: 0.1})

		for range 50 {
			d := p.Decide(1, serverErr)
			if d.Delay < 1*time.Second || d.Delay > 1100*time.Millisecond {
				t.Fatalf("jittered delay %v outside [1s, 1.1s]", d.Delay)
			}
		}
	})
}

func TestNewPolicyDefaults(t *testing.T) {
	p := NewPolicy(Config{})

	if p.cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected default max retries %d, got %d", DefaultMaxRetries, p.cfg.MaxRetries)
	}
	if p.cfg.BaseDelay != DefaultBaseDelay {
		t.Errorf("expected default base delay %v, got %v", DefaultBaseDelay, p.cfg.BaseDelay)
	}
	if p.cfg.MaxDelay != DefaultMaxDelay {
		t.Errorf("expected default max delay %v, got %v", DefaultMaxDelay, p.cfg.MaxDelay)
	}
	if p.cfg.JitterFactor != DefaultJitterFactor {
		t.Errorf("expected default jitter %f, got %f", DefaultJitterFactor, p.cfg.JitterFactor)
	}
}

func TestSleep(t *testing.T) {
	t.Run("Zero Delay Returns Immediately", func(t *testing.T) {
		if err := Sleep(context.Background(), 0); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("Canceled Context Interrupts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := Sleep(ctx, 10*time.Second)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if time.Since(start) > 1*time.Second {
			t.Error("sleep did not return promptly on cancellation")
		}
	})
}
