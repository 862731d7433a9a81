// Package metrics exposes relay metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes.
const (
	OutcomeCompleted     = "completed"
	OutcomeInvalid       = "invalid_request"
	OutcomeConfiguration = "configuration_error"
	OutcomeProvider      = "provider_error"
	OutcomeStreamError   = "stream_error"
	OutcomeCanceled      = "canceled"
)

// Collector owns its registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	turnsTotal     *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	firstFragment  prometheus.Histogram
	fragmentsTotal prometheus.Counter
	streamedBytes  prometheus.Counter
	turnsInFlight  prometheus.Gauge
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		turnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns handled by the relay, by outcome",
		}, []string{"provider", "outcome"}),
		turnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from request to the end of the relayed stream",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		firstFragment: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_fragment_seconds",
			Help:      "Time until the first fragment was available",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		fragmentsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Text fragments written to clients",
		}),
		streamedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streamed_bytes_total",
			Help:      "Bytes of fragment text written to clients",
		}),
		turnsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turns_in_flight",
			Help:      "Turns currently being relayed",
		}),
	}
}

// TurnStarted marks a turn in flight; the returned func records its outcome.
func (c *Collector) TurnStarted(provider string) func(outcome string) {
	start := time.Now()
	c.turnsInFlight.Inc()
	return func(outcome string) {
		c.turnsInFlight.Dec()
		c.turnsTotal.WithLabelValues(provider, outcome).Inc()
		c.turnDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) ObserveFirstFragment(d time.Duration) {
	c.firstFragment.Observe(d.Seconds())
}

func (c *Collector) AddFragment(n int) {
	c.fragmentsTotal.Inc()
	c.streamedBytes.Add(float64(n))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
