// Package metrics exports dispatch counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"media-player-card/internal/ports"
)

type Observer struct {
	registry *prometheus.Registry
	invoked  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	failed   *prometheus.CounterVec
	settle   *prometheus.HistogramVec
}

var _ ports.DispatchObserver = (*Observer)(nil)

func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		invoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacard_actions_invoked_total",
			Help: "Card actions accepted by the dispatch engine.",
		}, []string{"action"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacard_actions_rejected_total",
			Help: "Single-execution actions dropped because they were already running.",
		}, []string{"action"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediacard_actions_failed_total",
			Help: "Card actions whose Home Assistant call failed.",
		}, []string{"action"}),
		settle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mediacard_action_settle_seconds",
			Help:    "Time from invocation to settlement of a card action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
	}
	o.registry.MustRegister(o.invoked, o.rejected, o.failed, o.settle,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

func (o *Observer) Invoked(action string)  { o.invoked.WithLabelValues(action).Inc() }
func (o *Observer) Rejected(action string) { o.rejected.WithLabelValues(action).Inc() }

func (o *Observer) Settled(action string, took time.Duration, err error) {
	o.settle.WithLabelValues(action).Observe(took.Seconds())
	if err != nil {
		o.failed.WithLabelValues(action).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
