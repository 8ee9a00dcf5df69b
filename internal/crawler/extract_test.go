package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParsePageExtractsImagesAndLinks(t *testing.T) {
	t.Parallel()
	pageURL := mustParse(t, "https://site.test/catalog/")
	body := []byte(`<html><body>
		<img src="a.jpg" title="Red Bottle">
		<img data-src="/media/b.png">
		<img alt="no source at all">
		<a href="/page2">next</a>
		<a href="http://other.test/away">away</a>
	</body></html>`)

	content, err := parsePage(pageURL, body)
	require.NoError(t, err)

	require.Len(t, content.images, 2)
	assert.Equal(t, "https://site.test/catalog/a.jpg", content.images[0].RawURL)
	assert.Equal(t, "Red Bottle", content.images[0].Title)
	assert.Equal(t, "https://site.test/media/b.png", content.images[1].RawURL)
	assert.Empty(t, content.images[1].Title)

	require.Len(t, content.links, 2)
	assert.Equal(t, "https://site.test/page2", content.links[0])
	assert.Equal(t, "http://other.test/away", content.links[1])
}

func TestParsePagePrefersSrcOverDataSrc(t *testing.T) {
	t.Parallel()
	pageURL := mustParse(t, "https://site.test/")
	body := []byte(`<img src="eager.jpg" data-src="lazy.jpg">`)

	content, err := parsePage(pageURL, body)
	require.NoError(t, err)
	require.Len(t, content.images, 1)
	assert.Equal(t, "https://site.test/eager.jpg", content.images[0].RawURL)
}

func TestParsePageEmptyDocument(t *testing.T) {
	t.Parallel()
	content, err := parsePage(mustParse(t, "https://site.test/"), nil)
	require.NoError(t, err)
	assert.Empty(t, content.images)
	assert.Empty(t, content.links)
}
