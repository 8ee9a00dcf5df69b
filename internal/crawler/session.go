package crawler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imgcrawl/imgcrawl/internal/fetcher"
)

// PageFetcher retrieves a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetcher.Page, error)
}

// ImageDownloader fetches and persists a single image.
type ImageDownloader interface {
	Download(ctx context.Context, ref ImageRef) Outcome
}

// Session owns one crawl: the immutable config, the collaborators, and
// all mutable traversal state. Sessions are independent; multiple can
// run concurrently in one process.
type Session struct {
	id         string
	cfg        Config
	pages      PageFetcher
	downloader ImageDownloader
	resolver   *Resolver
	robots     RobotsPolicy
	limiter    RateLimiter
	stats      *Stats
	visited    visitTracker
	logger     *zap.Logger
}

// NewSession wires a crawl session.
func NewSession(
	cfg Config,
	pages PageFetcher,
	downloader ImageDownloader,
	resolver *Resolver,
	robots RobotsPolicy,
	limiter RateLimiter,
	stats *Stats,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:         id,
		cfg:        cfg,
		pages:      pages,
		downloader: downloader,
		resolver:   resolver,
		robots:     robots,
		limiter:    limiter,
		stats:      stats,
		visited:    newConcurrentVisitTracker(),
		logger:     logger.With(zap.String("session_id", id)),
	}
}

// ID returns the session identifier stamped on logs and the report.
func (s *Session) ID() string {
	return s.id
}

// Stats exposes the session counters.
func (s *Session) Stats() *Stats {
	return s.stats
}

// VisitedCount reports how many distinct page URLs were marked, which
// equals the number of page fetch attempts made this session.
func (s *Session) VisitedCount() int {
	return s.visited.Len()
}

// Run crawls depth-first from the seed URL down to the configured
// depth bound. Per-page and per-image failures are isolated: one
// failing branch never aborts siblings. Run returns an error only when
// the context was canceled.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("crawl starting",
		zap.String("seed", s.cfg.BaseURL),
		zap.Int("max_depth", s.cfg.MaxDepth),
	)
	s.crawl(ctx, Target{URL: s.cfg.BaseURL, Depth: s.cfg.MaxDepth})
	if err := ctx.Err(); err != nil {
		s.logger.Warn("crawl canceled", zap.Error(err))
		return err
	}
	s.logger.Info("crawl finished")
	return nil
}

func (s *Session) crawl(ctx context.Context, target Target) {
	if target.Depth <= 0 || ctx.Err() != nil {
		return
	}

	normalized, err := NormalizeURL(target.URL)
	if err != nil {
		s.logger.Warn("skipping unparseable url", zap.String("url", target.URL), zap.Error(err))
		return
	}
	// Mark before fetching so an erroring page is never retried within
	// the session.
	if !s.visited.MarkIfNew(normalized) {
		return
	}

	if !s.robots.Allowed(ctx, target.URL) {
		s.logger.Info("robots.txt disallows page", zap.String("url", target.URL))
		return
	}

	s.logger.Info("fetching page",
		zap.String("url", target.URL),
		zap.Int("depth", target.Depth),
	)
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	page, err := s.pages.Fetch(ctx, target.URL)
	if err != nil {
		PageErrors.Inc()
		s.stats.RecordPage(false)
		s.logger.Warn("page fetch failed; pruning branch",
			zap.String("url", target.URL),
			zap.Error(err),
		)
		return
	}
	if page.StatusCode != http.StatusOK {
		PageErrors.Inc()
		s.stats.RecordPage(false)
		s.logger.Warn("page returned non-200; pruning branch",
			zap.String("url", target.URL),
			zap.Int("status_code", page.StatusCode),
		)
		return
	}
	PagesFetched.Inc()
	s.stats.RecordPage(true)

	pageURL, err := url.Parse(firstNonEmpty(page.FinalURL, target.URL))
	if err != nil {
		s.logger.Warn("page url unparseable after fetch", zap.String("url", target.URL), zap.Error(err))
		return
	}
	content, err := parsePage(pageURL, page.Body)
	if err != nil {
		s.logger.Warn("page parse failed; pruning branch",
			zap.String("url", target.URL),
			zap.Error(err),
		)
		return
	}

	s.downloadImages(ctx, content.images)

	for _, link := range content.links {
		if !s.resolver.SameDomain(link) {
			continue
		}
		s.crawl(ctx, Target{URL: link, Depth: target.Depth - 1})
	}
}

// downloadImages runs the page's image candidates through a bounded
// worker pool. Workers apply their own rate-limit delay per request,
// and outcomes are recorded by the downloader itself, so a failure here
// never affects the rest of the page.
func (s *Session) downloadImages(ctx context.Context, images []ImageRef) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, s.cfg.Concurrency))
	for _, img := range images {
		if !s.resolver.SameDomain(img.RawURL) {
			s.logger.Debug("image outside session domain", zap.String("url", img.RawURL))
			continue
		}
		ref := img
		group.Go(func() error {
			s.downloader.Download(groupCtx, ref)
			return nil
		})
	}
	_ = group.Wait()
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
