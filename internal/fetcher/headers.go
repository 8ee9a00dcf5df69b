package fetcher

import "net/http"

// ApplyBrowserHeaders sets the realistic browser header set used for
// every outbound page and image request. The Referer is always the
// session base URL so image CDNs that check provenance accept the
// request.
func ApplyBrowserHeaders(h http.Header, userAgent, referer string) {
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Referer", referer)
	h.Set("DNT", "1")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
}
