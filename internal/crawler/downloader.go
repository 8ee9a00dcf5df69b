package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/imgcrawl/imgcrawl/internal/fetcher"
)

// Downloader fetches single images with retry/backoff, validates that
// the response is actually image data, and persists the bytes through
// the filename allocator. Every outcome is logged and counted so the
// crawl leaves a full audit trail.
type Downloader struct {
	client    *http.Client
	limiter   RateLimiter
	retry     RetryPolicy
	resolver  *Resolver
	alloc     *Allocator
	stats     *Stats
	logger    *zap.Logger
	userAgent string
	referer   string

	mu    sync.Mutex
	saved map[string]struct{}
}

// NewDownloader wires a Downloader. The referer is the session base
// URL, sent on every image request.
func NewDownloader(
	client *http.Client,
	limiter RateLimiter,
	retry RetryPolicy,
	resolver *Resolver,
	alloc *Allocator,
	stats *Stats,
	logger *zap.Logger,
	userAgent string,
	referer string,
) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client:    client,
		limiter:   limiter,
		retry:     retry,
		resolver:  resolver,
		alloc:     alloc,
		stats:     stats,
		logger:    logger,
		userAgent: userAgent,
		referer:   referer,
		saved:     make(map[string]struct{}),
	}
}

// Download resolves the actual image URL and fetches it, retrying
// transient failures with exponential backoff. Non-image responses are
// skipped immediately: retrying cannot fix a wrong content type.
func (d *Downloader) Download(ctx context.Context, ref ImageRef) Outcome {
	actual := d.resolver.ResolveActual(ref.RawURL)

	if !d.markSaving(actual) {
		outcome := Skipped(SkipAlreadySaved, 0)
		d.record(actual, outcome)
		return outcome
	}

	var lastErr error
	maxAttempts := d.retry.MaxAttempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			outcome := Failed(err, attempt-1)
			d.record(actual, outcome)
			return outcome
		}
		if err := d.limiter.Wait(ctx); err != nil {
			outcome := Failed(err, attempt-1)
			d.record(actual, outcome)
			return outcome
		}

		outcome, retryable := d.attempt(ctx, actual, ref.Title, attempt)
		if !retryable {
			d.record(actual, outcome)
			return outcome
		}
		lastErr = outcome.Err

		if attempt < maxAttempts {
			DownloadRetries.Inc()
			d.stats.RecordRetry()
		}
		d.logger.Warn("image fetch attempt failed",
			zap.String("url", actual),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(outcome.Err),
		)
		if err := sleepCtx(ctx, d.retry.Backoff(attempt)); err != nil {
			outcome := Failed(err, attempt)
			d.record(actual, outcome)
			return outcome
		}
	}

	outcome := Failed(
		fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr),
		maxAttempts,
	)
	d.record(actual, outcome)
	return outcome
}

// markSaving reserves the resolved URL for this session; the second
// caller for the same target gets false and skips the download.
func (d *Downloader) markSaving(actual string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.saved[actual]; ok {
		return false
	}
	d.saved[actual] = struct{}{}
	return true
}

// attempt performs one GET. The second return value reports whether
// the failure is transient and worth retrying.
func (d *Downloader) attempt(ctx context.Context, actual, title string, attempt int) (Outcome, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, actual, nil)
	if err != nil {
		return Failed(fmt.Errorf("build request: %w", err), attempt), false
	}
	fetcher.ApplyBrowserHeaders(req.Header, d.userAgent, d.referer)

	resp, err := d.client.Do(req)
	if err != nil {
		return Failed(fmt.Errorf("fetch image: %w", err), attempt), true
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.logger.Debug("close image response body", zap.Error(cerr))
		}
	}()

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "image") {
		d.stats.RecordNonImage(actual, contentType)
		d.logger.Warn("response is not image content",
			zap.String("url", actual),
			zap.String("content_type", contentType),
		)
		return Skipped(SkipNotAnImage, attempt), false
	}

	if resp.StatusCode != http.StatusOK {
		return Failed(fmt.Errorf("unexpected status %d", resp.StatusCode), attempt), true
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failed(fmt.Errorf("read image body: %w", err), attempt), true
	}

	return d.persist(actual, title, body, attempt)
}

// persist reserves a filename and writes the bytes. Filesystem errors
// are fatal to this download only and never retried.
func (d *Downloader) persist(actual, title string, body []byte, attempt int) (Outcome, bool) {
	target, f, err := d.alloc.Create(actual, title)
	if err != nil {
		return Failed(fmt.Errorf("allocate filename: %w", err), attempt), false
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return Failed(fmt.Errorf("write %s: %w", target, err), attempt), false
	}
	if err := f.Close(); err != nil {
		return Failed(fmt.Errorf("close %s: %w", target, err), attempt), false
	}
	return Saved(target, attempt), false
}

// record logs and counts a terminal outcome.
func (d *Downloader) record(actual string, o Outcome) {
	d.stats.RecordOutcome(o)
	fields := []zap.Field{
		zap.String("url", actual),
		zap.Int("attempts", o.Attempts),
	}
	switch o.Status {
	case OutcomeSaved:
		ImagesSaved.Inc()
		d.logger.Info("image downloaded", append(fields, zap.String("path", o.Path))...)
	case OutcomeSkipped:
		ImagesSkipped.Inc()
		d.logger.Info("image skipped", append(fields, zap.String("reason", string(o.Reason)))...)
	case OutcomeFailed:
		ImagesFailed.Inc()
		d.logger.Error("image download failed", append(fields, zap.Error(o.Err))...)
	}
}
