package model

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryOptions configure the backoff behavior of the retry decorator.
type RetryOptions struct {
	// MaxAttempts is the total number of Complete attempts (first call
	// included).
	MaxAttempts int
	// BaseDelay is the wait before the first retry; subsequent waits double.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// Jitter adds up to this fraction of the computed delay at random to
	// avoid thundering retries. Zero disables jitter.
	Jitter float64
}

// RetryModel wraps a Model and retries transient failures with bounded
// exponential backoff. Fatal errors and context cancellation surface
// immediately; exhausting the budget returns the last transient error.
type RetryModel struct {
	inner Model
	opts  RetryOptions
}

// WithRetry decorates m with bounded exponential backoff on transient errors.
func WithRetry(m Model, optFns ...func(o *RetryOptions)) *RetryModel {
	opts := RetryOptions{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &RetryModel{inner: m, opts: opts}
}

// Complete implements Model.
func (m *RetryModel) Complete(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	delay := m.opts.BaseDelay

	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		resp, err := m.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt == m.opts.MaxAttempts {
			break
		}

		wait := delay
		if m.opts.Jitter > 0 {
			wait += time.Duration(rand.Float64() * m.opts.Jitter * float64(delay))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > m.opts.MaxDelay {
			delay = m.opts.MaxDelay
		}
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", m.opts.MaxAttempts, lastErr)
}

// Info implements Model, reporting the wrapped model's identity.
func (m *RetryModel) Info() Info { return m.inner.Info() }
