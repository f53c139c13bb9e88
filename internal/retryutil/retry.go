// Package retryutil implements the exponential-backoff retry shared by
// every component that calls an external process over the network.
package retryutil

import (
	"context"
	"math"
	"strings"
	"time"
)

// Policy is an exponential backoff schedule: initial delay, growth
// factor, and a hard ceiling per attempt.
type Policy struct {
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
	MaxAttempts   int
}

// Default is the backoff schedule named throughout the catalog store
// and backend connector contracts: 100ms initial, factor 2, capped at
// 5s, 5 attempts.
var Default = Policy{
	InitialDelay:  100 * time.Millisecond,
	BackoffFactor: 2,
	MaxDelay:      5 * time.Second,
	MaxAttempts:   5,
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	if time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, a non-retryable error is returned, or
// attempts are exhausted; it sleeps between attempts according to p,
// respecting context cancellation.
func Do(ctx context.Context, p Policy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == p.MaxAttempts-1 {
			return lastErr
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}

// Retryable reports whether an error message looks like a transient
// network or upstream-overload condition worth retrying.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	patterns := []string{
		"timeout", "rate limit", "too many requests",
		"429", "500", "502", "503", "504",
		"connection reset", "connection refused", "eof",
		"overloaded", "capacity",
	}
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
