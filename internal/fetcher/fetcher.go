// Package fetcher provides the HTTP fetch layer: a Colly-backed page
// fetcher plus the shared browser header set and HTTP client used by
// the rest of the crawler.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Page is a single fetched document.
type Page struct {
	// URL is the address requested.
	URL string
	// FinalURL is the address after redirects.
	FinalURL string
	// StatusCode is zero when the request failed at the network level.
	StatusCode int
	Body       []byte
}

// Config controls the page fetcher.
type Config struct {
	UserAgent string
	// Referer is the session base URL, sent on every request.
	Referer            string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// CollyFetcher retrieves single pages through a Colly collector. Visit
// bookkeeping (depth, revisits) is owned by the crawl session, not by
// Colly, so the base collector allows revisits and ignores robots.txt;
// the session enforces its own robots policy.
type CollyFetcher struct {
	baseCollector *colly.Collector
	cfg           Config
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based page fetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) *CollyFetcher {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	base.AllowURLRevisit = true

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- explicit opt-in
	}
	base.WithTransport(transport)
	base.SetRequestTimeout(cfg.Timeout)

	return &CollyFetcher{
		baseCollector: base,
		cfg:           cfg,
		logger:        logger,
	}
}

// Fetch retrieves one page. A non-2xx response is returned as a Page
// carrying the status code with a nil error; the caller decides how to
// treat it. A nil error with StatusCode zero never occurs.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		ApplyBrowserHeaders(*r.Headers, f.cfg.UserAgent, f.cfg.Referer)
	})

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			// HTTP-level failure: surface the status, keep err nil so
			// the caller can log the code rather than an opaque error.
			send(fetchResult{page: Page{
				URL:        rawURL,
				FinalURL:   r.Request.URL.String(),
				StatusCode: r.StatusCode,
				Body:       append([]byte{}, r.Body...),
			}})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return res.page, res.err
	default:
		return Page{}, errors.New("colly fetch produced no result")
	}
}

type fetchResult struct {
	page Page
	err  error
}
