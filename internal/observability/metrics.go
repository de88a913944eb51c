package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_pages_fetched_total",
			Help: "Product pages fetched, by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	RecordsEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_records_emitted_total",
			Help: "Template rows produced, after option fan-out",
		},
	)

	ProductsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_products_skipped_total",
			Help: "Products dropped for missing title, price or image",
		},
	)

	AssetsDownloaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_assets_downloaded_total",
			Help: "Image downloads, by outcome",
		},
		[]string{"outcome"},
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_batch_duration_seconds",
			Help:    "Wall time of a batch run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Register adds the pipeline collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(PagesFetched, RecordsEmitted, ProductsSkipped, AssetsDownloaded, BatchDuration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
