package crawler

import (
	"context"
	"sync"
	"time"
)

// visitTracker provides thread-safe visited URL tracking to prevent
// revisits within one session. URLs are marked before their page is
// fetched and never removed, so a page that errors is not retried.
type visitTracker interface {
	MarkIfNew(url string) bool
	Len() int
}

type concurrentVisitTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newConcurrentVisitTracker() *concurrentVisitTracker {
	return &concurrentVisitTracker{seen: make(map[string]struct{})}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (t *concurrentVisitTracker) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[url]; ok {
		return false
	}
	t.seen[url] = struct{}{}
	return true
}

// Len reports how many distinct URLs have been marked.
func (t *concurrentVisitTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// sleepCtx blocks for the given duration or until the context finishes,
// returning the context error in the latter case.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
