package crawler

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// pageContent is everything one document contributes to the crawl:
// image candidates and navigation links, both resolved to absolute
// URLs against the page address, in document order.
type pageContent struct {
	images []ImageRef
	links  []string
}

// parsePage extracts img and anchor elements. Image URLs come from the
// src attribute with data-src as a fallback for lazy-loaded images; the
// title attribute rides along for filename generation.
func parsePage(pageURL *url.URL, body []byte) (pageContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageContent{}, fmt.Errorf("parse document: %w", err)
	}

	var content pageContent
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		if src == "" {
			src = sel.AttrOr("data-src", "")
		}
		if src == "" {
			return
		}
		abs, ok := resolveRef(pageURL, src)
		if !ok {
			return
		}
		content.images = append(content.images, ImageRef{
			RawURL: abs,
			Title:  sel.AttrOr("title", ""),
		})
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if href == "" {
			return
		}
		if abs, ok := resolveRef(pageURL, href); ok {
			content.links = append(content.links, abs)
		}
	})

	return content, nil
}

func resolveRef(pageURL *url.URL, raw string) (string, bool) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return pageURL.ResolveReference(ref).String(), true
}
