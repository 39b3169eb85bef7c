package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sriram-PR/link-auditor/pkg/models"
)

const namespace = "link_auditor"

// Recorder receives crawl events from the engine
type Recorder interface {
	ObserveFetch(kind models.ResponseKind, statusCode int, elapsed time.Duration)
	FetchFailed(category string)
	SetQueueLength(n int)
	SetVisited(n int)
}

// NoopRecorder discards everything
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetch(models.ResponseKind, int, time.Duration) {}
func (NoopRecorder) FetchFailed(string)                                   {}
func (NoopRecorder) SetQueueLength(int)                                   {}
func (NoopRecorder) SetVisited(int)                                       {}

// Compile-time interface checks.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

// PrometheusRecorder exposes crawl metrics on a private registry
type PrometheusRecorder struct {
	registry *prometheus.Registry

	fetchesTotal       *prometheus.CounterVec
	fetchFailuresTotal *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	queueLength        prometheus.Gauge
	visitedURLs        prometheus.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them on a new registry
func NewPrometheusRecorder() (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{registry: prometheus.NewRegistry()}

	r.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Completed fetches by response classification and status class",
		},
		[]string{"kind", "status_class"},
	)
	r.fetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Fetches that produced no HTTP response, by error category",
		},
		[]string{"category"},
	)
	r.fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch and read a URL",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"kind"},
	)
	r.queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_length",
		Help:      "URLs waiting in the crawl frontier",
	})
	r.visitedURLs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "visited_urls",
		Help:      "Size of the visited set",
	})

	collectors := []prometheus.Collector{
		r.fetchesTotal,
		r.fetchFailuresTotal,
		r.fetchDuration,
		r.queueLength,
		r.visitedURLs,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

// Registry returns the registry holding the crawl collectors
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) ObserveFetch(kind models.ResponseKind, statusCode int, elapsed time.Duration) {
	r.fetchesTotal.WithLabelValues(kind.String(), models.StatusClassOf(statusCode)).Inc()
	r.fetchDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (r *PrometheusRecorder) FetchFailed(category string) {
	r.fetchFailuresTotal.WithLabelValues(category).Inc()
}

func (r *PrometheusRecorder) SetQueueLength(n int) {
	r.queueLength.Set(float64(n))
}

func (r *PrometheusRecorder) SetVisited(n int) {
	r.visitedURLs.Set(float64(n))
}
