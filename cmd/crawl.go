package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imgcrawl/imgcrawl/internal/api"
	"github.com/imgcrawl/imgcrawl/internal/config"
	"github.com/imgcrawl/imgcrawl/internal/crawler"
	"github.com/imgcrawl/imgcrawl/internal/fetcher"
	"github.com/imgcrawl/imgcrawl/internal/report"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one crawl
// session from the configured (or flag-provided) seed URL.
func newCrawlCmd() *cobra.Command {
	var seedURL string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site and download its images",
		Long: `Starts a depth-bounded crawl from the seed URL, downloading every
same-domain image it discovers into the output directory. A markdown
report summarizing the session is written alongside the images.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush
			if seedURL != "" {
				cfg.Crawler.BaseURL = seedURL
			}
			if outputDir != "" {
				cfg.Crawler.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runCrawl(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&seedURL, "url", "", "seed URL (overrides crawler.base_url)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "image output directory (overrides crawler.output_dir)")

	return cmd
}

func runCrawl(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := buildSession(cfg, logger)
	if err != nil {
		return err
	}

	var statusServer *http.Server
	if cfg.Server.Enabled {
		statusServer = startStatusServer(cfg.Server.Port, session, logger)
		defer shutdownStatusServer(statusServer, logger)
	}

	started := time.Now().UTC()
	runErr := session.Run(ctx)

	if cfg.Report.Enabled {
		reportPath := filepath.Join(cfg.Crawler.OutputDir, "crawl-report.md")
		data := report.Data{
			SessionID: session.ID(),
			Seed:      cfg.Crawler.BaseURL,
			StartedAt: started,
			Duration:  time.Since(started),
			Stats:     session.Stats().Snapshot(),
		}
		if err := report.WriteFile(reportPath, data); err != nil {
			logger.Warn("failed to write crawl report", zap.Error(err))
		} else {
			logger.Info("crawl report written", zap.String("path", reportPath))
		}
	}

	snapshot := session.Stats().Snapshot()
	logger.Info("session summary",
		zap.Int("pages_fetched", snapshot.PagesFetched),
		zap.Int("pages_failed", snapshot.PagesFailed),
		zap.Int("images_saved", snapshot.ImagesSaved),
		zap.Int("images_skipped", snapshot.ImagesSkipped),
		zap.Int("images_failed", snapshot.ImagesFailed),
		zap.Int("retries", snapshot.Retries),
	)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run crawl: %w", runErr)
	}
	return nil
}

// buildSession assembles the crawl engine from configuration. Output
// directory creation happens here, so an unwritable directory fails
// the command before any request is made.
func buildSession(cfg config.Config, logger *zap.Logger) (*crawler.Session, error) {
	sessionCfg := crawler.Config{
		BaseURL:     cfg.Crawler.BaseURL,
		OutputDir:   cfg.Crawler.OutputDir,
		MinDelay:    cfg.Crawler.MinDelay,
		MaxDelay:    cfg.Crawler.MaxDelay,
		MaxRetries:  cfg.Crawler.MaxRetries,
		MaxDepth:    cfg.Crawler.MaxDepth,
		Concurrency: cfg.Crawler.Concurrency,
		UserAgent:   cfg.Crawler.UserAgent,
	}

	resolver, err := crawler.NewResolver(sessionCfg.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("init resolver: %w", err)
	}
	allocator, err := crawler.NewAllocator(sessionCfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init allocator: %w", err)
	}

	httpClient := fetcher.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.InsecureSkipVerify)
	limiter := crawler.NewRandomDelayLimiter(sessionCfg.MinDelay, sessionCfg.MaxDelay, cfg.Crawler.HostRPS)
	retryPolicy := crawler.NewExponentialRetryPolicy(sessionCfg.MaxRetries)
	stats := crawler.NewStats()

	downloader := crawler.NewDownloader(
		httpClient,
		limiter,
		retryPolicy,
		resolver,
		allocator,
		stats,
		logger,
		sessionCfg.UserAgent,
		sessionCfg.BaseURL,
	)

	pageFetcher := fetcher.NewCollyFetcher(fetcher.Config{
		UserAgent:          sessionCfg.UserAgent,
		Referer:            sessionCfg.BaseURL,
		Timeout:            cfg.HTTP.Timeout,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
	}, logger)

	robots := crawler.NewRobotsPolicy(cfg.Crawler.RespectRobots, sessionCfg.UserAgent, httpClient, logger)

	return crawler.NewSession(
		sessionCfg,
		pageFetcher,
		downloader,
		resolver,
		robots,
		limiter,
		stats,
		logger,
	), nil
}

func startStatusServer(port int, session *crawler.Session, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewServer(session.Stats(), session.ID(), logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("status server stopped", zap.Error(err))
		}
	}()
	return srv
}

func shutdownStatusServer(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("status server shutdown", zap.Error(err))
	}
}
