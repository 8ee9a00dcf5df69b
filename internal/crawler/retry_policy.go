package crawler

import "time"

// RetryPolicy governs repeated attempts at a single image fetch. Page
// fetches deliberately have no retry policy: a failed page simply
// prunes that branch of the traversal.
type RetryPolicy interface {
	MaxAttempts() int
	// Backoff returns the wait after the given 1-based failed attempt.
	Backoff(attempt int) time.Duration
}

// ExponentialRetryPolicy doubles the wait after each failed attempt:
// 1s, 2s, 4s, ... capped at maxDelay.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds the default policy: one-second base
// delay, thirty-second cap.
func NewExponentialRetryPolicy(maxAttempts int) *ExponentialRetryPolicy {
	return NewRetryPolicy(maxAttempts, time.Second, 30*time.Second)
}

// NewRetryPolicy builds a policy with explicit delays.
func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *ExponentialRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ExponentialRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// MaxAttempts reports how many attempts are allowed in total.
func (p *ExponentialRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Backoff returns baseDelay * 2^(attempt-1), capped at maxDelay.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.maxDelay {
			return p.maxDelay
		}
	}
	if delay > p.maxDelay {
		return p.maxDelay
	}
	return delay
}
