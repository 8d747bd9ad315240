// Package metrics holds the Prometheus collectors shared by the client
// packages and exposed by the console on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RealtimeReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mob_realtime_reconnects_total",
		Help: "Reconnect attempts scheduled after an unexpected close.",
	})

	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mob_realtime_events_total",
		Help: "Realtime events delivered to listeners, by message type.",
	}, []string{"type"})

	RealtimeDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mob_realtime_dropped_total",
		Help: "Realtime messages dropped, by reason.",
	}, []string{"reason"})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mob_api_requests_total",
		Help: "REST API calls by method and outcome.",
	}, []string{"method", "outcome"})

	APICircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mob_api_circuit_state",
		Help: "REST circuit breaker state (0 closed, 1 half-open, 2 open).",
	})

	RelayRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mob_console_relay_rooms",
		Help: "Console sessions with at least one relayed browser socket.",
	})
)
