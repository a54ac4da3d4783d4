package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Export service metrics
var (
	// Provider page fetches, labelled by terminal result.
	ProviderPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "provider_pages_total",
			Help:      "Total provider list pages fetched",
		},
		[]string{"status"},
	)

	// Enumeration outcomes (complete / truncated / aborted).
	EnumerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "enumerations_total",
			Help:      "Total full enumerations by outcome",
		},
		[]string{"outcome"},
	)

	// Asset downloads from the provider CDN.
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "asset_downloads_total",
			Help:      "Total binary asset downloads",
		},
		[]string{"status"},
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "asset_download_bytes_total",
			Help:      "Total bytes downloaded from the provider",
		},
	)

	// Uploads to remote storage, labelled by backend.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "uploads_total",
			Help:      "Total file uploads to storage backends",
		},
		[]string{"backend", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded to storage backends",
		},
		[]string{"backend"},
	)

	// Archive builds.
	ArchivesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "archives_total",
			Help:      "Total zip archives built",
		},
	)

	ArchiveBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "archive_bytes",
			Help:      "Size distribution of built archives",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8),
		},
	)

	// Request duration histogram.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dream",
			Subsystem: "export",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)
)
