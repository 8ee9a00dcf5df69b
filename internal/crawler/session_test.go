package crawler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imgcrawl/imgcrawl/internal/fetcher"
)

// stubPages serves pages from a map and records every fetch attempt.
type stubPages struct {
	mu      sync.Mutex
	pages   map[string]fetcher.Page
	fetches []string
}

func (s *stubPages) Fetch(_ context.Context, rawURL string) (fetcher.Page, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, rawURL)
	s.mu.Unlock()
	if page, ok := s.pages[rawURL]; ok {
		return page, nil
	}
	return fetcher.Page{}, errors.New("connection refused")
}

func (s *stubPages) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetches)
}

// stubDownloader records download requests without touching the network.
type stubDownloader struct {
	mu   sync.Mutex
	urls []string
}

func (d *stubDownloader) Download(_ context.Context, ref ImageRef) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, ref.RawURL)
	return Saved("/dev/null", 1)
}

func (d *stubDownloader) downloaded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

func htmlPage(rawURL, body string) fetcher.Page {
	return fetcher.Page{
		URL:        rawURL,
		FinalURL:   rawURL,
		StatusCode: http.StatusOK,
		Body:       []byte(body),
	}
}

func newTestSession(t *testing.T, cfg Config, pages *stubPages, dl ImageDownloader) *Session {
	t.Helper()
	resolver, err := NewResolver(cfg.BaseURL, zap.NewNop())
	require.NoError(t, err)
	return NewSession(
		cfg,
		pages,
		dl,
		resolver,
		NewRobotsPolicy(false, "TestAgent", nil, zap.NewNop()),
		NewRandomDelayLimiter(0, 0, 0),
		NewStats(),
		zap.NewNop(),
	)
}

// Seed page with two images (src and data-src) and one off-domain
// link: both images are downloaded, the off-domain branch is pruned
// before any fetch.
func TestSessionDownloadsImagesAndFiltersOffDomainLinks(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{
		seed: htmlPage(seed, `
			<img src="a.jpg">
			<img data-src="b.png">
			<a href="http://other.test/">elsewhere</a>`),
	}}
	dl := &stubDownloader{}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 3, Concurrency: 1}, pages, dl)

	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, 1, pages.fetchCount())
	assert.ElementsMatch(t,
		[]string{"https://site.test/a.jpg", "https://site.test/b.png"},
		dl.downloaded(),
	)
}

// A page linking to itself is visited exactly once; no infinite
// recursion.
func TestSessionSelfLinkVisitedOnce(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{
		seed: htmlPage(seed, `<a href="/">home</a>`),
	}}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 3, Concurrency: 1}, pages, &stubDownloader{})

	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, 1, pages.fetchCount())
	assert.Equal(t, 1, sess.VisitedCount())
}

// Depth D never fetches a page at recursion depth greater than D, and
// the visited set size equals the number of distinct fetch attempts.
func TestSessionHonorsDepthBound(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{
		seed:                      htmlPage(seed, `<a href="/two">two</a>`),
		"https://site.test/two":   htmlPage("https://site.test/two", `<a href="/three">three</a>`),
		"https://site.test/three": htmlPage("https://site.test/three", `<img src="deep.jpg">`),
	}}
	dl := &stubDownloader{}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 2, Concurrency: 1}, pages, dl)

	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, 2, pages.fetchCount())
	assert.Equal(t, sess.VisitedCount(), pages.fetchCount())
	assert.Empty(t, dl.downloaded())
}

func TestSessionDepthZeroFetchesNothing(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{seed: htmlPage(seed, "")}}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 0, Concurrency: 1}, pages, &stubDownloader{})

	require.NoError(t, sess.Run(context.Background()))
	assert.Zero(t, pages.fetchCount())
}

// A failing branch never aborts its siblings.
func TestSessionIsolatesBranchFailures(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{
		seed: htmlPage(seed, `
			<a href="/broken">broken</a>
			<a href="/good">good</a>`),
		"https://site.test/good": htmlPage("https://site.test/good", `<img src="ok.jpg">`),
	}}
	dl := &stubDownloader{}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 2, Concurrency: 1}, pages, dl)

	require.NoError(t, sess.Run(context.Background()))

	assert.Equal(t, 3, pages.fetchCount())
	assert.Equal(t, []string{"https://site.test/ok.jpg"}, dl.downloaded())

	snap := sess.Stats().Snapshot()
	assert.Equal(t, 2, snap.PagesFetched)
	assert.Equal(t, 1, snap.PagesFailed)
}

func TestSessionPrunesNon200Pages(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	gone := "https://site.test/gone"
	pages := &stubPages{pages: map[string]fetcher.Page{
		seed: htmlPage(seed, `<a href="/gone">gone</a>`),
		gone: {URL: gone, FinalURL: gone, StatusCode: http.StatusNotFound, Body: []byte(`<a href="/hidden">x</a>`)},
	}}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 3, Concurrency: 1}, pages, &stubDownloader{})

	require.NoError(t, sess.Run(context.Background()))

	// The 404 page's links are never followed.
	assert.Equal(t, 2, pages.fetchCount())
	assert.Equal(t, 1, sess.Stats().Snapshot().PagesFailed)
}

// Visited marking happens before the fetch, so an erroring page is not
// retried when rediscovered.
func TestSessionDoesNotRefetchErroredPages(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{
		seed: htmlPage(seed, `
			<a href="/flaky">first</a>
			<a href="/mid">mid</a>`),
		"https://site.test/mid": htmlPage("https://site.test/mid", `<a href="/flaky">again</a>`),
	}}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 3, Concurrency: 1}, pages, &stubDownloader{})

	require.NoError(t, sess.Run(context.Background()))

	flakyFetches := 0
	for _, u := range pages.fetches {
		if u == "https://site.test/flaky" {
			flakyFetches++
		}
	}
	assert.Equal(t, 1, flakyFetches)
}

func TestSessionParallelImageDownloads(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{
		seed: htmlPage(seed, `
			<img src="a.jpg"><img src="b.jpg"><img src="c.jpg"><img src="d.jpg">`),
	}}
	dl := &stubDownloader{}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 1, Concurrency: 4}, pages, dl)

	require.NoError(t, sess.Run(context.Background()))
	assert.Len(t, dl.downloaded(), 4)
}

func TestSessionCancellationStopsTraversal(t *testing.T) {
	t.Parallel()
	seed := "https://site.test/"
	pages := &stubPages{pages: map[string]fetcher.Page{seed: htmlPage(seed, "")}}
	sess := newTestSession(t, Config{BaseURL: seed, MaxDepth: 3, Concurrency: 1}, pages, &stubDownloader{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sess.Run(ctx)
	require.Error(t, err)
	assert.Zero(t, pages.fetchCount())
}
