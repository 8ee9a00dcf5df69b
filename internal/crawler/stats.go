package crawler

import "sync"

// NonImageSkip records one candidate whose response body was not image
// content. The session aggregates these into a warning-level report so
// systemic site-compatibility issues are not silently dropped.
type NonImageSkip struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Stats collects session counters. All methods are safe for concurrent
// use by parallel download workers.
type Stats struct {
	mu            sync.Mutex
	pagesFetched  int
	pagesFailed   int
	imagesSaved   int
	imagesSkipped int
	imagesFailed  int
	retries       int
	nonImageSkips []NonImageSkip
}

// NewStats returns an empty counter set.
func NewStats() *Stats {
	return &Stats{}
}

// RecordPage counts one page fetch attempt.
func (s *Stats) RecordPage(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.pagesFetched++
	} else {
		s.pagesFailed++
	}
}

// RecordOutcome counts one download outcome.
func (s *Stats) RecordOutcome(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch o.Status {
	case OutcomeSaved:
		s.imagesSaved++
	case OutcomeSkipped:
		s.imagesSkipped++
	case OutcomeFailed:
		s.imagesFailed++
	}
}

// RecordRetry counts one retried download attempt.
func (s *Stats) RecordRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
}

// RecordNonImage remembers a candidate that served non-image content.
func (s *Stats) RecordNonImage(url, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonImageSkips = append(s.nonImageSkips, NonImageSkip{URL: url, ContentType: contentType})
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	PagesFetched  int            `json:"pages_fetched"`
	PagesFailed   int            `json:"pages_failed"`
	ImagesSaved   int            `json:"images_saved"`
	ImagesSkipped int            `json:"images_skipped"`
	ImagesFailed  int            `json:"images_failed"`
	Retries       int            `json:"retries"`
	NonImageSkips []NonImageSkip `json:"non_image_skips,omitempty"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	skips := make([]NonImageSkip, len(s.nonImageSkips))
	copy(skips, s.nonImageSkips)
	return Snapshot{
		PagesFetched:  s.pagesFetched,
		PagesFailed:   s.pagesFailed,
		ImagesSaved:   s.imagesSaved,
		ImagesSkipped: s.imagesSkipped,
		ImagesFailed:  s.imagesFailed,
		Retries:       s.retries,
		NonImageSkips: skips,
	}
}
