package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sds/internal/structures"
)

// BufferSizer reports the number of pending observations in the intake buffer.
type BufferSizer interface {
	GetBufferSize() int
}

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncBulkActions(index string, count int)
	IncBulkRetries()
	ObserveFlushDuration(duration time.Duration)
	ObservePersistenceDuration(duration time.Duration)
	AddBackfilledDays(docType string, days int)
	SetDocsTotal(index string, count int)
	// RegisterBufferGauge exposes the intake buffer size as a gauge. Called
	// once, after the ingest service exists.
	RegisterBufferGauge(buffer BufferSizer)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	bulkActions         *prometheus.CounterVec
	bulkRetries         prometheus.Counter
	flushDuration       prometheus.Histogram
	persistenceDuration prometheus.Histogram
	backfilledDays      *prometheus.CounterVec
	docsTotal           *prometheus.GaugeVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncBulkActions(index string, count int) {
	m.bulkActions.WithLabelValues(index).Add(float64(count))
}

func (m *MetricsProvider) IncBulkRetries() {
	m.bulkRetries.Inc()
}

func (m *MetricsProvider) ObserveFlushDuration(duration time.Duration) {
	m.flushDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) AddBackfilledDays(docType string, days int) {
	m.backfilledDays.WithLabelValues(docType).Add(float64(days))
}

func (m *MetricsProvider) SetDocsTotal(index string, count int) {
	m.docsTotal.WithLabelValues(index).Set(float64(count))
}

func (m *MetricsProvider) RegisterBufferGauge(buffer BufferSizer) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sds_buffer_size",
		Help: "Current number of observations in the active intake buffer",
	}, func() float64 {
		return float64(buffer.GetBufferSize())
	})
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sds_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sds_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sds_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sds_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		bulkActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sds_bulk_actions_total",
			Help: "Total number of partial-update actions sent to the store",
		}, []string{"index"}),

		bulkRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sds_bulk_retries_total",
			Help: "Total number of retried bulk batches",
		}),

		flushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sds_flush_duration_seconds",
			Help:    "Duration of intake buffer flushes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sds_persistence_duration_seconds",
			Help:    "Duration of snapshot writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		backfilledDays: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sds_backfilled_days_total",
			Help: "Total number of interpolated history days written",
		}, []string{"doc_type"}),

		docsTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sds_docs_total",
			Help: "Total number of documents per index",
		}, []string{"index"}),
	}

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncBulkActions(_ string, _ int)                   {}
func (n *noopMetrics) IncBulkRetries()                                  {}
func (n *noopMetrics) ObserveFlushDuration(_ time.Duration)             {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) AddBackfilledDays(_ string, _ int)                {}
func (n *noopMetrics) SetDocsTotal(_ string, _ int)                     {}
func (n *noopMetrics) RegisterBufferGauge(_ BufferSizer)                {}
