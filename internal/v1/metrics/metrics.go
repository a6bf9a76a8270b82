// Package metrics declares the Prometheus collectors for the signaling
// plane.
//
// Naming convention: namespace_subsystem_name
// - namespace: theatre (application-level grouping)
// - subsystem: websocket, room, signaling (feature-level grouping)
// - name: specific metric (connections_active, relayed_total, ...)
//
// Gauges track current state (connections, rooms, participants); counters
// track cumulative events (frames handled, rooms reaped, signals relayed).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveWebSocketConnections tracks sockets that completed the
	// connect handshake and have not yet torn down.
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "theatre",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks rooms currently registered with the hub.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "theatre",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of registered rooms",
	})

	// RoomParticipants tracks the member count per room. The label is the
	// room's canonical code key, not the rendered emoji.
	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "theatre",
		Subsystem: "room",
		Name:      "participants_count",
		Help:      "Number of participants in each room",
	}, []string{"room"})

	// WebsocketEvents counts socket-level happenings: handshakes,
	// dropped frames, refusals.
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "theatre",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// SignalsRelayed counts offer/answer envelopes delivered to a peer's
	// queue.
	SignalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "theatre",
		Subsystem: "signaling",
		Name:      "relayed_total",
		Help:      "Total signaling envelopes relayed between peers",
	}, []string{"kind"})

	// RoomsReaped counts rooms removed from the registry, labelled by what
	// triggered the removal: the empty event, the idle timer, or shutdown.
	RoomsReaped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "theatre",
		Subsystem: "room",
		Name:      "reaped_total",
		Help:      "Total rooms removed from the registry",
	}, []string{"reason"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
