// Package transport owns the websocket side of the service: the Hub that
// registers rooms by code and the per-socket sessions that pump frames
// between a connection and its room.
package transport

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"theatre/internal/v1/logging"
	"theatre/internal/v1/metrics"
	"theatre/internal/v1/room"
	"theatre/internal/v1/types"
)

// defaultIdleGracePeriod is how long a room may exist with zero users before
// the idle reaper removes it. The usual exit is the empty event; the timer
// catches rooms whose first connect never completed.
const defaultIdleGracePeriod = 60 * time.Second

// Hub is the registry of active rooms, keyed by canonical room code.
type Hub struct {
	mu          sync.Mutex
	rooms       map[types.CodeKey]*room.Room
	idleReapers map[types.CodeKey]*time.Timer // One-shot timers armed at room creation

	pool            set.Set[string] // Shared avatar catalog, read-only
	idleGracePeriod time.Duration
}

// NewHub creates a hub whose rooms draw avatars from pool.
func NewHub(pool set.Set[string]) *Hub {
	return &Hub{
		rooms:           make(map[types.CodeKey]*room.Room),
		idleReapers:     make(map[types.CodeKey]*time.Timer),
		pool:            pool,
		idleGracePeriod: defaultIdleGracePeriod,
	}
}

// GetRoom returns the room registered under code, creating it if needed.
// Two codes with the same entry sequence always resolve to the same room.
func (h *Hub) GetRoom(code types.Code) *room.Room {
	key := code.Key()

	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[key]; ok {
		return r
	}

	logging.Info(context.Background(), "Creating room", zap.String("room", code.String()))

	r := room.New(code, h.pool, h.handleEmpty)
	h.rooms[key] = r

	// Arm the one-shot idle reaper. It self-guards on fire, so a room that
	// found users by then is left alone.
	h.idleReapers[key] = time.AfterFunc(h.idleGracePeriod, func() {
		h.reapIfEmpty(key, r, "idle")
	})

	metrics.ActiveRooms.Inc()
	return r
}

// handleEmpty is installed on every room and runs on its own goroutine when
// the room's last user leaves.
func (h *Hub) handleEmpty(r *room.Room) {
	h.reapIfEmpty(r.Code().Key(), r, "empty")
}

// reapIfEmpty removes r from the registry if it is still the room registered
// under key and still has no users. Both the idle timer and the empty event
// funnel in here; the rechecks make either path a safe no-op when the other
// already won, or when a fresh room replaced r under the same key.
func (h *Hub) reapIfEmpty(key types.CodeKey, r *room.Room, reason string) {
	h.mu.Lock()

	if current, ok := h.rooms[key]; !ok || current != r {
		h.mu.Unlock()
		return
	}
	if !r.CloseIfEmpty() {
		h.mu.Unlock()
		return
	}

	delete(h.rooms, key)
	if timer, ok := h.idleReapers[key]; ok {
		timer.Stop()
		delete(h.idleReapers, key)
	}
	h.mu.Unlock()

	metrics.ActiveRooms.Dec()
	metrics.RoomsReaped.WithLabelValues(reason).Inc()

	logging.Info(context.Background(), "Reaped room",
		zap.String("room", r.Code().String()),
		zap.String("reason", reason))
}

// Shutdown closes every room so all feeds terminate and in-flight sessions
// unwind. Rooms stay registered; new connects are refused by the rooms
// themselves.
func (h *Hub) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "Shutting down hub - closing all active rooms...")

	h.mu.Lock()
	for key, timer := range h.idleReapers {
		timer.Stop()
		delete(h.idleReapers, key)
	}
	rooms := make([]*room.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.Close()
		metrics.RoomsReaped.WithLabelValues("shutdown").Inc()
	}

	logging.Info(ctx, "All rooms closed", zap.Int("count", len(rooms)))
	return nil
}

// Len returns the number of registered rooms.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
