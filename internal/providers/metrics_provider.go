package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"netguard/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	SetDevicesTotal(status string, count int)
	IncEventsEmitted(kind string)
	IncCommandsProcessed()
	IncCommandsFailed()
	IncAccessDecisions(decision string)
	SetCommandQueueDepth(depth int)
	ObserveTickDuration(duration time.Duration)
	ObservePersistenceDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	devicesTotal        *prometheus.GaugeVec
	eventsEmitted       *prometheus.CounterVec
	commandsProcessed   prometheus.Counter
	commandsFailed      prometheus.Counter
	accessDecisions     *prometheus.CounterVec
	commandQueueDepth   prometheus.Gauge
	tickDuration        prometheus.Histogram
	persistenceDuration prometheus.Histogram
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

func (m *MetricsProvider) SetDevicesTotal(status string, count int) {
	m.devicesTotal.WithLabelValues(status).Set(float64(count))
}

func (m *MetricsProvider) IncEventsEmitted(kind string) {
	m.eventsEmitted.WithLabelValues(kind).Inc()
}

func (m *MetricsProvider) IncCommandsProcessed() {
	m.commandsProcessed.Inc()
}

func (m *MetricsProvider) IncCommandsFailed() {
	m.commandsFailed.Inc()
}

func (m *MetricsProvider) IncAccessDecisions(decision string) {
	m.accessDecisions.WithLabelValues(decision).Inc()
}

func (m *MetricsProvider) SetCommandQueueDepth(depth int) {
	m.commandQueueDepth.Set(float64(depth))
}

func (m *MetricsProvider) ObserveTickDuration(duration time.Duration) {
	m.tickDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
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

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "netguard_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netguard_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netguard_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netguard_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		devicesTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netguard_devices_total",
			Help: "Number of registered devices per status",
		}, []string{"status"}),

		eventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "netguard_events_emitted_total",
			Help: "Total number of emitted events per kind",
		}, []string{"kind"}),

		commandsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netguard_commands_processed_total",
			Help: "Total number of commands drained from the queue",
		}),

		commandsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netguard_commands_failed_total",
			Help: "Total number of commands that failed to apply",
		}),

		accessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "netguard_access_decisions_total",
			Help: "Total number of access decisions per outcome",
		}, []string{"decision"}),

		commandQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "netguard_command_queue_depth",
			Help: "Current number of pending commands",
		}),

		tickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "netguard_tick_duration_seconds",
			Help:    "Duration of scheduler ticks in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "netguard_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) SetDevicesTotal(_ string, _ int)                  {}
func (n *noopMetrics) IncEventsEmitted(_ string)                        {}
func (n *noopMetrics) IncCommandsProcessed()                            {}
func (n *noopMetrics) IncCommandsFailed()                               {}
func (n *noopMetrics) IncAccessDecisions(_ string)                      {}
func (n *noopMetrics) SetCommandQueueDepth(_ int)                       {}
func (n *noopMetrics) ObserveTickDuration(_ time.Duration)              {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
