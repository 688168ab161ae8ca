package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notam_parser"

// Metrics holds the Prometheus counters and histograms for decoding.
type Metrics struct {
	BulletinsDecoded prometheus.Counter
	NoticesSegmented prometheus.Counter
	NoticesDropped   prometheus.Counter
	RecordsEmitted   *prometheus.CounterVec // labels: shape={point,polygon}
	DecodeDuration   prometheus.Histogram

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	// NATS metrics.
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	PublishErrors    prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		BulletinsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulletins_decoded_total",
			Help:      "Total bulletins decoded.",
		}),
		NoticesSegmented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_segmented_total",
			Help:      "Total notices found by segmentation.",
		}),
		NoticesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_dropped_total",
			Help:      "Total notices that yielded no coordinates.",
		}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Records emitted by shape.",
		}, []string{"shape"}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Duration of decoding one bulletin.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Decode cache lookups by result.",
		}, []string{"result"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_messages_consumed_total",
			Help:      "Total bulletins read from NATS.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_messages_produced_total",
			Help:      "Total record batches published to NATS.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_publish_errors_total",
			Help:      "Total failed NATS publishes.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.BulletinsDecoded,
		m.NoticesSegmented,
		m.NoticesDropped,
		m.RecordsEmitted,
		m.DecodeDuration,
		m.CacheLookups,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.PublishErrors,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry registers the metrics with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveDecode records the outcome of decoding one bulletin.
func (m *Metrics) ObserveDecode(notices, dropped, points, polygons int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BulletinsDecoded.Inc()
	m.NoticesSegmented.Add(float64(notices))
	m.NoticesDropped.Add(float64(dropped))
	m.RecordsEmitted.WithLabelValues("point").Add(float64(points))
	m.RecordsEmitted.WithLabelValues("polygon").Add(float64(polygons))
	m.DecodeDuration.Observe(elapsed.Seconds())
}

// CacheHit counts a decode cache hit.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// CacheMiss counts a decode cache miss.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// MessageConsumed counts a bulletin read from NATS.
func (m *Metrics) MessageConsumed() {
	if m != nil {
		m.MessagesConsumed.Inc()
	}
}

// MessageProduced counts a batch published to NATS.
func (m *Metrics) MessageProduced() {
	if m != nil {
		m.MessagesProduced.Inc()
	}
}

// PublishFailed counts a failed NATS publish.
func (m *Metrics) PublishFailed() {
	if m != nil {
		m.PublishErrors.Inc()
	}
}
