// Package room implements the signaling rooms at the heart of the service.
//
// A Room tracks the users connected under one emoji code, assigns each a
// unique avatar, and fans events out to per-user frame queues. Rooms never
// inspect session descriptions; they only order and route frames.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"theatre/internal/v1/logging"
	"theatre/internal/v1/messages"
	"theatre/internal/v1/metrics"
	"theatre/internal/v1/types"
)

var (
	// ErrNotEnoughResources is returned by Connect when every avatar in the
	// pool is already worn by a connected user.
	ErrNotEnoughResources = errors.New("room: no avatars left")

	// ErrRoomClosed is returned by Connect once the room has been closed.
	ErrRoomClosed = errors.New("room: closed")

	// ErrUnknownUser is returned when an operation names a user id that is
	// not connected to the room.
	ErrUnknownUser = errors.New("room: unknown user")
)

// Room coordinates the users connected under a single emoji code.
//
// All exported methods are safe for concurrent use. Roster events and
// relayed signals are delivered through per-user queues, so each websocket
// writer observes one ordered stream.
type Room struct {
	code types.Code
	pool set.Set[string]

	// onEmpty is invoked from a fresh goroutine whenever the last user
	// leaves. May be nil.
	onEmpty func(*Room)

	mu     sync.RWMutex
	users  map[types.UserID]types.User
	queues map[types.UserID]*queue
	closed bool
}

// New creates a room for code. pool is the full avatar catalog, shared and
// never mutated.
func New(code types.Code, pool set.Set[string], onEmpty func(*Room)) *Room {
	return &Room{
		code:    code,
		pool:    pool,
		onEmpty: onEmpty,
		users:   make(map[types.UserID]types.User),
		queues:  make(map[types.UserID]*queue),
	}
}

// Code returns the emoji code the room was created under.
func (r *Room) Code() types.Code {
	return r.code
}

// Connect admits a new user: it assigns a fresh id and a random unused
// avatar, snapshots the current roster, and then announces the newcomer to
// everyone already present. The snapshot is taken before the insert, so it
// never contains the new user and can be handed straight back as the
// connect response.
func (r *Room) Connect() (types.User, []types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return types.User{}, nil, ErrRoomClosed
	}

	avatar, err := r.pickAvatarLocked()
	if err != nil {
		logging.Warn(context.Background(), "Refusing connect, avatar pool exhausted",
			zap.String("room", r.code.String()),
			zap.Int("participants", len(r.users)))
		return types.User{}, nil, err
	}

	user := types.User{
		ID:     types.NewUserID(),
		Avatar: avatar,
	}

	others := make([]types.User, 0, len(r.users))
	for _, u := range r.users {
		others = append(others, u)
	}

	r.users[user.ID] = user
	r.queues[user.ID] = newQueue()

	r.broadcastLocked(messages.NewConnected(user), user.ID)

	metrics.RoomParticipants.WithLabelValues(string(r.code.Key())).Set(float64(len(r.users)))

	logging.Info(context.Background(), "User connected",
		zap.String("room", r.code.String()),
		zap.String("userId", string(user.ID)),
		zap.String("avatar", user.Avatar.String()),
		zap.Int("participants", len(r.users)))

	return user, others, nil
}

// pickAvatarLocked selects a random avatar no connected user is wearing.
// Caller must hold mu.
func (r *Room) pickAvatarLocked() (types.Avatar, error) {
	worn := set.New[string]()
	for _, u := range r.users {
		worn.Insert(u.Avatar.ID)
	}

	free := r.pool.Difference(worn).UnsortedList()
	if len(free) == 0 {
		return types.Avatar{}, ErrNotEnoughResources
	}

	id := free[rand.Intn(len(free))]
	return types.Avatar{Emoji: types.Emoji{ID: id}}, nil
}

// Disconnect removes a user, finishes their feed, and tells everyone else.
// Disconnecting an unknown or already-removed user is a no-op, so transport
// teardown paths can call it unconditionally.
func (r *Room) Disconnect(id types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return
	}

	delete(r.users, id)
	if q, ok := r.queues[id]; ok {
		q.close()
		delete(r.queues, id)
	}

	r.broadcastLocked(messages.NewDisconnected(id), id)

	logging.Info(context.Background(), "User disconnected",
		zap.String("room", r.code.String()),
		zap.String("userId", string(id)),
		zap.Int("participants", len(r.users)))

	key := string(r.code.Key())
	if len(r.users) > 0 {
		metrics.RoomParticipants.WithLabelValues(key).Set(float64(len(r.users)))
	} else {
		metrics.RoomParticipants.DeleteLabelValues(key)
		if r.onEmpty != nil {
			go r.onEmpty(r)
		}
	}
}

// MakeOffer relays an SDP offer to one connected user. The enqueued frame
// always carries the sender id the server authenticated, regardless of what
// the sender claimed on the wire.
func (r *Room) MakeOffer(from, to types.UserID, session types.Session) error {
	return r.relay(from, to, messages.NewOffer(from, to, session))
}

// MakeAnswer relays an SDP answer. Same routing rules as MakeOffer.
func (r *Room) MakeAnswer(from, to types.UserID, session types.Session) error {
	return r.relay(from, to, messages.NewAnswer(from, to, session))
}

func (r *Room) relay(from, to types.UserID, msg messages.Message) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.users[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, from)
	}
	target, ok := r.queues[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, to)
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Kind(), err)
	}

	target.push(frame)
	metrics.SignalsRelayed.WithLabelValues(msg.Kind()).Inc()
	return nil
}

// Fetch returns the frame feed for a connected user. Feeds are not
// restartable; frames already consumed are gone.
func (r *Room) Fetch(id types.UserID) (*Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.queues[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, id)
	}
	return &Feed{q: q}, nil
}

// Close finishes every user's feed so their writers unwind. Connected users
// stay in the roster until their own teardown calls Disconnect; further
// Connects are refused with ErrRoomClosed. Idempotent.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

// CloseIfEmpty closes the room only if no users remain, reporting whether it
// did. The emptiness check and the close are atomic, so a racing Connect
// either lands first and keeps the room alive or observes ErrRoomClosed.
func (r *Room) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users) > 0 {
		return false
	}
	r.closeLocked()
	return true
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true

	for _, q := range r.queues {
		q.close()
	}

	logging.Info(context.Background(), "Room closed",
		zap.String("room", r.code.String()),
		zap.Int("participants", len(r.users)))
}

// Closed reports whether Close has been called.
func (r *Room) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Empty reports whether no users remain connected.
func (r *Room) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users) == 0
}

// Len returns the number of connected users.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// broadcastLocked fans msg out to every queue except exclude. The frame is
// marshaled once and shared; recipients must not mutate it.
// Caller must hold mu.
func (r *Room) broadcastLocked(msg messages.Message, exclude types.UserID) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logging.Error(context.Background(), "Failed to marshal broadcast message",
			zap.String("room", r.code.String()), zap.Error(err))
		return
	}

	for id, q := range r.queues {
		if id == exclude {
			continue
		}
		q.push(frame)
	}
}
