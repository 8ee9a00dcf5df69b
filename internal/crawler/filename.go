package crawler

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// dashCase normalizes descriptive text into a dash-separated token:
// runs of non-alphanumeric characters collapse into single dashes,
// leading/trailing dashes are trimmed, and the result is lowercased.
func dashCase(text string) string {
	if text == "" {
		return ""
	}
	return strings.ToLower(strings.Trim(nonAlnum.ReplaceAllString(text, "-"), "-"))
}

// Allocator derives stable, readable filenames for downloaded images
// and reserves them atomically so parallel workers never collide.
type Allocator struct {
	dir string
	mu  sync.Mutex
}

// NewAllocator creates the output directory if absent and returns an
// allocator rooted there.
func NewAllocator(dir string) (*Allocator, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &Allocator{dir: dir}, nil
}

// fileName derives the base filename for an image. A non-empty title
// becomes the dash-case stem with the extension taken from the URL
// path (defaulting to .jpg); otherwise the URL path's basename is used
// with path separators replaced by underscores.
func fileName(resolvedURL, title string) string {
	var urlPath string
	if u, err := url.Parse(resolvedURL); err == nil {
		urlPath = u.Path
	}
	if stem := dashCase(title); stem != "" {
		ext := path.Ext(urlPath)
		if ext == "" {
			ext = ".jpg"
		}
		return stem + ext
	}
	base := strings.ReplaceAll(path.Base(urlPath), "/", "_")
	if base == "" || base == "." || base == "_" {
		return "image.jpg"
	}
	return base
}

// Create reserves a collision-free path for the image and returns it
// along with the exclusively-created file handle. If the derived name
// already exists, _1, _2, ... suffixes are tried before the extension
// until a free name is found. Reservation and creation are one atomic
// step (O_CREATE|O_EXCL) under a mutex, so concurrent workers cannot
// race on the same name.
func (a *Allocator) Create(resolvedURL, title string) (string, *os.File, error) {
	name := fileName(resolvedURL, title)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	a.mu.Lock()
	defer a.mu.Unlock()
	for counter := 0; ; counter++ {
		candidate := name
		if counter > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, counter, ext)
		}
		target := filepath.Join(a.dir, candidate)
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return target, f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", nil, fmt.Errorf("reserve %s: %w", target, err)
		}
	}
}
