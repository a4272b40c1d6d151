// Package metrics exposes Prometheus collectors for the signaling server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "league_voice"

// Outcome labels.
const (
	Joined    = "joined"
	Duplicate = "duplicate"
	NoMatch   = "no_match"
	Limited   = "rate_limited"
	Failed    = "failed"
	Discarded = "discarded"
	Delivered = "delivered"
	Dropped   = "dropped"
)

type Metrics struct {
	registry      *prometheus.Registry
	connections   prometheus.Gauge
	rooms         prometheus.Gauge
	rejections    *prometheus.CounterVec
	matchRequests *prometheus.CounterVec
	relayed       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Authenticated connections currently open.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_rejections_total",
			Help:      "Rejected handshakes by reason.",
		}, []string{"reason"}),
		matchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_room_requests_total",
			Help:      "Match room requests by outcome.",
		}, []string{"outcome"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signaling_frames_total",
			Help:      "Signaling frames by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.connections,
		m.rooms,
		m.rejections,
		m.matchRequests,
		m.relayed,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Presence(rooms, clients int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(rooms))
	m.connections.Set(float64(clients))
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) MatchRequest(outcome string) {
	if m == nil {
		return
	}
	m.matchRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Relayed(outcome string) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(outcome).Inc()
}
