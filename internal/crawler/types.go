// Package crawler implements the bounded, same-domain image crawl
// engine: visited-set traversal, politeness delays, retrying image
// downloads, and collision-free filename allocation.
package crawler

import "time"

// Config holds the settings for a crawl session. It is immutable for
// the session lifetime and shared by every component.
type Config struct {
	BaseURL     string
	OutputDir   string
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxRetries  int
	MaxDepth    int
	Concurrency int
	UserAgent   string
}

// Target is one page queued for traversal. Depth strictly decreases by
// one per recursive step; traversal stops at depth <= 0.
type Target struct {
	URL   string
	Depth int
}

// ImageRef is a discovered image candidate: the absolute URL read from
// the element plus its descriptive attribute, when present.
type ImageRef struct {
	RawURL string
	Title  string
}

// OutcomeStatus classifies the result of one download.
type OutcomeStatus string

// Download outcome statuses.
const (
	OutcomeSaved   OutcomeStatus = "saved"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// SkipReason explains a skipped download.
type SkipReason string

// Skip reasons.
const (
	SkipNotAnImage   SkipReason = "not_an_image"
	SkipAlreadySaved SkipReason = "already_saved"
)

// Outcome is the terminal result of one image download.
type Outcome struct {
	Status   OutcomeStatus
	Path     string
	Reason   SkipReason
	Attempts int
	Err      error
}

// Saved builds a successful outcome.
func Saved(path string, attempts int) Outcome {
	return Outcome{Status: OutcomeSaved, Path: path, Attempts: attempts}
}

// Skipped builds a non-retryable skip outcome.
func Skipped(reason SkipReason, attempts int) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason, Attempts: attempts}
}

// Failed builds a failure outcome.
func Failed(err error, attempts int) Outcome {
	return Outcome{Status: OutcomeFailed, Err: err, Attempts: attempts}
}
