package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one run. All methods are safe to call on
// a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PagesFetched    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	RecordsScraped  *prometheus.CounterVec
	SearchRequests  *prometheus.CounterVec
	ImageAttempts   prometheus.Counter
	ImagesProcessed *prometheus.CounterVec
	RunDuration     *prometheus.GaugeVec
}

// New registers a fresh set of collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "animalfacts",
				Name:      "pages_fetched_total",
				Help:      "Total number of HTML pages requested.",
			},
			[]string{"kind", "status"}, // kind: listing, detail; status: ok, error
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "animalfacts",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of page fetches.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		RecordsScraped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "animalfacts",
				Name:      "records_total",
				Help:      "Records extracted from detail pages.",
			},
			[]string{"outcome"}, // kept, dropped
		),
		SearchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "animalfacts",
				Name:      "image_search_requests_total",
				Help:      "Requests sent to the image search provider.",
			},
			[]string{"status"},
		),
		ImageAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "animalfacts",
				Name:      "image_attempts_total",
				Help:      "Image resolution attempts, retries included.",
			},
		),
		ImagesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "animalfacts",
				Name:      "images_total",
				Help:      "Entities handled by the image fetcher.",
			},
			[]string{"outcome"}, // saved, failed, skipped
		),
		RunDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "animalfacts",
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run.",
			},
			[]string{"pipeline"},
		),
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch records one page fetch
func (m *Metrics) ObserveFetch(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PagesFetched.WithLabelValues(kind, status).Inc()
	m.FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveRecords records how many records survived the filter
func (m *Metrics) ObserveRecords(kept, dropped int) {
	if m == nil {
		return
	}
	m.RecordsScraped.WithLabelValues("kept").Add(float64(kept))
	m.RecordsScraped.WithLabelValues("dropped").Add(float64(dropped))
}

// ObserveSearch records one image search request
func (m *Metrics) ObserveSearch(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SearchRequests.WithLabelValues(status).Inc()
}

// IncAttempts counts one image resolution attempt
func (m *Metrics) IncAttempts() {
	if m == nil {
		return
	}
	m.ImageAttempts.Inc()
}

// ObserveImage records the final outcome for one entity
func (m *Metrics) ObserveImage(outcome string) {
	if m == nil {
		return
	}
	m.ImagesProcessed.WithLabelValues(outcome).Inc()
}

// SetRunDuration records the wall time of a pipeline run
func (m *Metrics) SetRunDuration(pipeline string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(pipeline).Set(d.Seconds())
}

// WriteTextfile writes the current values in the Prometheus text format to
// path, for pickup by a node_exporter textfile collector. An empty path is a
// no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
