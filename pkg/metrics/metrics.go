package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "sheetsync", Name: "collab_rooms_active", Help: "Number of rooms with at least one participant."},
	)
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "sheetsync", Name: "collab_connections_active", Help: "Number of live websocket connections."},
	)
	DeltasRelayed = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "sheetsync", Name: "collab_deltas_relayed_total", Help: "Number of edit deltas relayed to room peers."},
	)
	DeltasDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "sheetsync", Name: "collab_deltas_dropped_total", Help: "Number of deltas dropped from connections without edit capability."},
	)
	DocumentSaves = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "sheetsync", Name: "document_saves_total", Help: "Number of document content writes."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sheetsync", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sheetsync", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RoomsActive)
	reg.MustRegister(ConnectionsActive)
	reg.MustRegister(DeltasRelayed)
	reg.MustRegister(DeltasDropped)
	reg.MustRegister(DocumentSaves)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
