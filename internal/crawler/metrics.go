package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks pages fetched with a 200 response.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgcrawl_pages_fetched_total",
		Help: "The total number of pages fetched successfully.",
	})
	// PageErrors tracks pages whose fetch failed or returned non-200.
	PageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgcrawl_page_errors_total",
		Help: "The total number of page fetches that failed and pruned their branch.",
	})
	// ImagesSaved tracks images persisted to the output directory.
	ImagesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgcrawl_images_saved_total",
		Help: "The total number of images downloaded and saved.",
	})
	// ImagesSkipped tracks images skipped (non-image content, duplicates).
	ImagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgcrawl_images_skipped_total",
		Help: "The total number of image candidates skipped.",
	})
	// ImagesFailed tracks downloads that exhausted their retries.
	ImagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgcrawl_images_failed_total",
		Help: "The total number of image downloads that failed after retries.",
	})
	// DownloadRetries tracks retried image fetch attempts.
	DownloadRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgcrawl_download_retries_total",
		Help: "The total number of retried image fetch attempts.",
	})
)
