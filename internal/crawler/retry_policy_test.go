package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffSequence(t *testing.T) {
	t.Parallel()
	p := NewExponentialRetryPolicy(3)

	assert.Equal(t, 3, p.MaxAttempts())
	assert.Equal(t, 1*time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
}

func TestBackoffIsCapped(t *testing.T) {
	t.Parallel()
	p := NewRetryPolicy(10, time.Second, 3*time.Second)

	assert.Equal(t, 1*time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 3*time.Second, p.Backoff(3))
	assert.Equal(t, 3*time.Second, p.Backoff(8))
}

func TestRetryPolicyClampsInvalidInput(t *testing.T) {
	t.Parallel()
	p := NewRetryPolicy(0, time.Second, time.Minute)

	assert.Equal(t, 1, p.MaxAttempts())
	assert.Equal(t, time.Second, p.Backoff(0))
}
