package crawler

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter blocks the caller before each outbound request. It is
// invoked by both the page-fetch path and every image download worker,
// so aggregate request rate against the target host stays bounded even
// when downloads run in parallel.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// RandomDelayLimiter sleeps a duration drawn uniformly from
// [min, max], then waits on a shared token bucket acting as a hard
// requests-per-second ceiling for the session host.
type RandomDelayLimiter struct {
	min    time.Duration
	max    time.Duration
	bucket *rate.Limiter
}

// NewRandomDelayLimiter builds a limiter. hostRPS <= 0 disables the
// token-bucket ceiling and leaves only the randomized delay.
func NewRandomDelayLimiter(min, max time.Duration, hostRPS float64) *RandomDelayLimiter {
	l := &RandomDelayLimiter{min: min, max: max}
	if hostRPS > 0 {
		l.bucket = rate.NewLimiter(rate.Limit(hostRPS), 1)
	}
	return l
}

// Wait blocks for the randomized delay and then for bucket admission.
func (l *RandomDelayLimiter) Wait(ctx context.Context) error {
	if err := sleepCtx(ctx, l.delay()); err != nil {
		return err
	}
	if l.bucket != nil {
		return l.bucket.Wait(ctx)
	}
	return nil
}

func (l *RandomDelayLimiter) delay() time.Duration {
	span := l.max - l.min
	if span <= 0 {
		return l.min
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(span)))
	if err != nil {
		return l.min + span/2
	}
	return l.min + time.Duration(n.Int64())
}
