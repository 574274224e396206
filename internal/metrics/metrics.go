// Package metrics exposes fscope counters in the Prometheus format.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fscope/internal/fscope"
)

const namespace = "fscope"

// Metrics holds the collectors of one process. Each instance has its own
// registry so tests and multiple apps never collide.
type Metrics struct {
	reg *prometheus.Registry

	moves    *prometheus.CounterVec
	listings *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// New registers the operation counters and gauges that read guard and
// monitor state at scrape time.
func New(guard *fscope.AccessGuard, monitor *fscope.Monitor) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Move requests by result.",
		}, []string{"result"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Directory listings by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Change events delivered, by change kind.",
		}, []string{"kind"}),
	}

	m.reg.MustRegister(
		m.moves,
		m.listings,
		m.events,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "access_active",
			Help:      "Scoped accesses currently held.",
		}, func() float64 { return float64(guard.Stats().Active) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_acquired_total",
			Help:      "Scoped accesses acquired.",
		}, func() float64 { return float64(guard.Stats().Acquired) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_released_total",
			Help:      "Scoped accesses released.",
		}, func() float64 { return float64(guard.Stats().Released) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_subscriptions",
			Help:      "Native change subscriptions currently open.",
		}, func() float64 { return float64(monitor.Live()) }),
	)
	return m
}

// Registry returns the registry holding every fscope collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveMove counts a finished move.
func (m *Metrics) ObserveMove(err error) {
	m.moves.WithLabelValues(Result(err)).Inc()
}

// ObserveListing counts a finished directory listing.
func (m *Metrics) ObserveListing(err error) {
	m.listings.WithLabelValues(Result(err)).Inc()
}

// ObserveEvent counts ev once for every change kind it carries.
func (m *Metrics) ObserveEvent(ev fscope.ChangeEvent) {
	for _, k := range eventKinds {
		if ev.Flags.Has(k.flag) {
			m.events.WithLabelValues(k.label).Inc()
		}
	}
}

var eventKinds = []struct {
	flag  fscope.EventFlags
	label string
}{
	{fscope.EventCreated, "created"},
	{fscope.EventModified, "modified"},
	{fscope.EventRemoved, "removed"},
	{fscope.EventRenamed, "renamed"},
}

// Result maps an operation error onto a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, fscope.ErrDestinationExists):
		return "destination_exists"
	case errors.Is(err, fscope.ErrInvalidMove):
		return "invalid_move"
	case errors.Is(err, fscope.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, fscope.ErrMoveFailed):
		return "move_failed"
	case errors.Is(err, fscope.ErrDirectoryUnreadable):
		return "directory_unreadable"
	default:
		return "error"
	}
}
