package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "express_bot"

// Metrics holds the bot collectors on a dedicated registry.
type Metrics struct {
	registry      *prometheus.Registry
	eventsTotal   *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	queueDepth    prometheus.GaugeFunc
}

// New registers the event collectors plus the Go and process collectors.
// queueLen may be nil.
func New(queueLen func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Gateway events handled, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling a gateway event.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsTotal,
		m.eventDuration,
	)

	if queueLen != nil {
		m.queueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_queue_depth",
			Help:      "Gateway events waiting for a worker.",
		}, func() float64 { return float64(queueLen()) })
		m.registry.MustRegister(m.queueDepth)
	}
	return m
}

// ObserveEvent records one handled event.
func (m *Metrics) ObserveEvent(kind, outcome string, elapsed time.Duration) {
	m.eventsTotal.WithLabelValues(kind, outcome).Inc()
	m.eventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
