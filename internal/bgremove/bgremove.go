// Package bgremove drives the external background-removal service.
// The crawler treats background stripping as an opaque capability: it
// posts raster image bytes to a segmentation endpoint and receives a
// PNG with the background stripped to transparency.
package bgremove

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// imageExtensions are the raster formats handed to the service.
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".bmp":  {},
	".tiff": {},
}

// Client calls the background-removal HTTP service.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewClient builds a Client for the given service endpoint.
func NewClient(endpoint string, client *http.Client, logger *zap.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("bgremove endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{endpoint: endpoint, client: client, logger: logger}, nil
}

// Remove posts image bytes to the service and returns the processed
// PNG bytes.
func (c *Client) Remove(ctx context.Context, image []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "image/png")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call background-removal service: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close service response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("background-removal service returned status %d", resp.StatusCode)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read service response: %w", err)
	}
	return out, nil
}

// Batch processes a directory of images, writing nobg_<stem>.png files
// to the output directory. Processing is idempotent per input file:
// images whose output already exists are skipped, and per-file failures
// never abort the batch.
type Batch struct {
	client    *Client
	inputDir  string
	outputDir string
	recursive bool
	logger    *zap.Logger
}

// NewBatch validates the directories and returns a runner.
func NewBatch(client *Client, inputDir, outputDir string, recursive bool, logger *zap.Logger) (*Batch, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("input dir %s: %w", inputDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", inputDir)
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{
		client:    client,
		inputDir:  inputDir,
		outputDir: outputDir,
		recursive: recursive,
		logger:    logger,
	}, nil
}

// Run processes every image in the input directory and returns how
// many were newly processed.
func (b *Batch) Run(ctx context.Context) (int, error) {
	processed := 0
	err := filepath.WalkDir(b.inputDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if !b.recursive && path != b.inputDir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := imageExtensions[ext]; !ok {
			return nil
		}
		if b.processFile(ctx, path) {
			processed++
		}
		return nil
	})
	if err != nil {
		return processed, fmt.Errorf("walk %s: %w", b.inputDir, err)
	}
	b.logger.Info("background removal finished", zap.Int("processed", processed))
	return processed, nil
}

// processFile strips one image's background; returns true when a new
// output file was written.
func (b *Batch) processFile(ctx context.Context, path string) bool {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(b.outputDir, "nobg_"+stem+".png")
	if _, err := os.Stat(outPath); err == nil {
		b.logger.Debug("output exists; skipping", zap.String("input", path))
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		b.logger.Error("read image failed", zap.String("input", path), zap.Error(err))
		return false
	}
	out, err := b.client.Remove(ctx, data)
	if err != nil {
		b.logger.Error("background removal failed", zap.String("input", path), zap.Error(err))
		return false
	}
	if err := os.WriteFile(outPath, out, 0o600); err != nil {
		b.logger.Error("write output failed", zap.String("output", outPath), zap.Error(err))
		return false
	}
	b.logger.Info("background removed",
		zap.String("input", path),
		zap.String("output", outPath),
	)
	return true
}
