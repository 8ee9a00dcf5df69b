package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// wrapperParams are the query parameters sites use to proxy images
// through CDN-rewriting URLs, in priority order. The first match wins.
var wrapperParams = []string{"src", "source", "img", "image", "url"}

// Resolver validates crawl candidates against the session domain and
// unwraps dynamically-served image URLs.
type Resolver struct {
	base   *url.URL
	logger *zap.Logger
}

// NewResolver builds a Resolver for the session base URL.
func NewResolver(baseURL string, logger *zap.Logger) (*Resolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{base: u, logger: logger}, nil
}

// SameDomain reports whether the URL may be crawled: its host matches
// the session domain (or it has no host) and its scheme is http or
// https. Malformed URLs are logged and rejected, never raised.
func (r *Resolver) SameDomain(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		r.logger.Warn("rejecting malformed url", zap.String("url", raw), zap.Error(err))
		return false
	}
	if u.Host != "" && !strings.EqualFold(u.Host, r.base.Host) {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// ResolveActual extracts the true image location from wrapper/proxy
// URLs. If the query string carries one of the recognized wrapper
// parameters, the value is URL-decoded and, when relative, resolved
// against the session base URL. URLs without a recognized parameter
// are returned unchanged, which makes resolution idempotent.
func (r *Resolver) ResolveActual(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	query := u.Query()
	for _, param := range wrapperParams {
		values, ok := query[param]
		if !ok || len(values) == 0 {
			continue
		}
		actual := values[0]
		// The reference decodes the already-parsed value once more;
		// some sites double-encode the wrapped target.
		if decoded, decErr := url.QueryUnescape(actual); decErr == nil {
			actual = decoded
		}
		if !strings.HasPrefix(actual, "http://") && !strings.HasPrefix(actual, "https://") {
			ref, refErr := url.Parse(actual)
			if refErr != nil {
				r.logger.Warn("wrapped image url is malformed",
					zap.String("url", raw),
					zap.String("param", param),
					zap.Error(refErr),
				)
				return raw
			}
			actual = r.base.ResolveReference(ref).String()
		}
		return actual
	}
	return raw
}

// NormalizeURL standardizes a URL for visited-set membership: it
// lowercases the scheme and host, removes default ports and fragments,
// and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	return u.String(), nil
}
