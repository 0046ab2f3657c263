package details

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TransientError marks a backend failure that is safe to retry (timeouts,
// throttling, a model server still loading).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err, or anything it wraps, is a TransientError
// or a deadline expiry from a per-call timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// RetryConfig controls how RetryBackend paces and retries calls.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first. Default: 3.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay. Default: 30s.
	MaxBackoff time.Duration
	// JitterFraction adds ±fraction random jitter to each delay. Default: 0.
	JitterFraction float64
	// CallTimeout bounds a single Regenerate call. Zero means no limit.
	CallTimeout time.Duration
	// RatePerSecond limits call starts. Zero means unlimited.
	RatePerSecond float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

// RetryBackend decorates a Backend with a call-rate limit, a per-call
// timeout, and exponential backoff on transient failures. Permanent errors
// are returned immediately.
type RetryBackend struct {
	next    Backend
	cfg     RetryConfig
	limiter *rate.Limiter
}

// WithRetry wraps next in a RetryBackend.
func WithRetry(next Backend, cfg RetryConfig) *RetryBackend {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &RetryBackend{next: next, cfg: cfg, limiter: rate.NewLimiter(limit, 1)}
}

// Name implements Backend.
func (r *RetryBackend) Name() string { return r.next.Name() }

// Regenerate implements Backend.
func (r *RetryBackend) Regenerate(ctx context.Context, products []Product, treatment bool) ([]Product, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "details: rate limit wait")
		}

		out, err := r.call(ctx, products, treatment)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == r.cfg.MaxAttempts-1 {
			break
		}

		zap.L().Warn("details: retrying backend call",
			zap.String("backend", r.next.Name()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(r.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrapf(lastErr, "details: %s regenerate", r.next.Name())
		case <-timer.C:
		}
	}
	return nil, eris.Wrapf(lastErr, "details: %s regenerate", r.next.Name())
}

func (r *RetryBackend) call(ctx context.Context, products []Product, treatment bool) ([]Product, error) {
	if r.cfg.CallTimeout <= 0 {
		return r.next.Regenerate(ctx, products, treatment)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return r.next.Regenerate(callCtx, products, treatment)
}

func (r *RetryBackend) backoff(attempt int) time.Duration {
	delay := float64(r.cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	delay = min(delay, float64(r.cfg.MaxBackoff))
	if r.cfg.JitterFraction > 0 {
		delay += (rand.Float64()*2 - 1) * delay * r.cfg.JitterFraction
	}
	return time.Duration(max(delay, 0))
}
