package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"theatre/internal/v1/logging"
	"theatre/internal/v1/messages"
	"theatre/internal/v1/metrics"
	"theatre/internal/v1/room"
	"theatre/internal/v1/types"
)

// writeWait bounds how long a single socket write may take.
const writeWait = 10 * time.Second

// wsConnection defines the interface for WebSocket connection operations.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error) // Read the next message from the connection
	WriteMessage(messageType int, data []byte) error     // Write a message to the connection
	SetWriteDeadline(t time.Time) error
	Close() error // Close the connection
}

// upgrader is shared by every connect. The room code is the only credential
// this service has, so browsers from any origin are allowed.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
	WriteBufferPool: &sync.Pool{
		New: func() any {
			return make([]byte, 4096)
		},
	},
}

// session is one user's live connection: the socket, the room it joined,
// and the identity the handshake minted.
type session struct {
	conn wsConnection
	room *room.Room
	user types.User

	// ctx governs the pumps; it is detached from the HTTP request, which
	// ends as soon as the pumps start.
	ctx    context.Context
	cancel context.CancelFunc

	teardown sync.Once
}

// ServeWs upgrades the request and runs the signaling session until either
// side goes away.
func (h *Hub) ServeWs(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to upgrade connection", zap.Error(err))
		return
	}

	h.handleConnection(c.Request.Context(), conn)
}

// handleConnection performs the handshake and starts the two pumps. Split
// from ServeWs so tests can drive sessions over mock connections.
func (h *Hub) handleConnection(reqCtx context.Context, conn wsConnection) {
	s, err := h.handshake(reqCtx, conn)
	if err != nil {
		// A failed handshake owes the client no reply frame.
		_ = conn.Close()
		return
	}

	metrics.IncConnection()

	go s.writePump()
	go s.readPump()
}

// handshake reads exactly one frame, which must be a connect-request, and
// admits the caller to the named room. On success the connect-response has
// already been written and the session is ready to pump.
func (h *Hub) handshake(reqCtx context.Context, conn wsConnection) (*session, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	msg, err := messages.Parse(data)
	if err != nil {
		logging.Warn(reqCtx, "Handshake frame did not parse", zap.Error(err))
		metrics.WebsocketEvents.WithLabelValues("connect", "bad_request").Inc()
		return nil, err
	}

	req, ok := msg.(*messages.ConnectRequest)
	if !ok {
		logging.Warn(reqCtx, "Handshake frame was not a connect-request", zap.String("type", msg.Kind()))
		metrics.WebsocketEvents.WithLabelValues("connect", "bad_request").Inc()
		return nil, fmt.Errorf("expected %s, got %s", messages.TypeConnectRequest, msg.Kind())
	}

	r := h.GetRoom(*req.Code)
	user, others, err := r.Connect()
	if errors.Is(err, room.ErrRoomClosed) {
		// Lost a race with the reaper. The registry no longer holds that
		// room, so one fresh lookup is enough.
		r = h.GetRoom(*req.Code)
		user, others, err = r.Connect()
	}
	if err != nil {
		logging.Warn(reqCtx, "Refused connect",
			zap.String("room", r.Code().String()), zap.Error(err))
		metrics.WebsocketEvents.WithLabelValues("connect", "refused").Inc()
		return nil, err
	}

	frame, err := json.Marshal(messages.NewConnectResponse(user, others))
	if err != nil {
		r.Disconnect(user.ID)
		return nil, err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		r.Disconnect(user.ID)
		return nil, err
	}

	metrics.WebsocketEvents.WithLabelValues("connect", "ok").Inc()

	// The pumps outlive the HTTP request, so the session context descends
	// from Background and carries the log fields over.
	base := context.Background()
	if id := reqCtx.Value(logging.CorrelationIDKey); id != nil {
		base = context.WithValue(base, logging.CorrelationIDKey, id)
	}
	base = context.WithValue(base, logging.RoomCodeKey, r.Code().String())
	base = context.WithValue(base, logging.UserIDKey, string(user.ID))
	ctx, cancel := context.WithCancel(base)

	return &session{
		conn:   conn,
		room:   r,
		user:   user,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// readPump parses inbound frames and relays signaling until the socket
// errors or closes.
func (s *session) readPump() {
	defer s.close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := messages.Parse(data)
		if err != nil {
			// Bad frames are dropped; the socket stays alive.
			logging.Warn(s.ctx, "Dropping unparseable frame", zap.Error(err))
			metrics.WebsocketEvents.WithLabelValues("message", "dropped").Inc()
			continue
		}

		switch m := msg.(type) {
		case *messages.Offer:
			// from_user on the wire is ignored; the sender is whoever this
			// socket authenticated as.
			if err := s.room.MakeOffer(s.user.ID, m.ToUser, *m.Session); err != nil {
				logging.Warn(s.ctx, "Dropping offer", zap.String("toUser", string(m.ToUser)), zap.Error(err))
				metrics.WebsocketEvents.WithLabelValues("offer", "dropped").Inc()
			}
		case *messages.Answer:
			if err := s.room.MakeAnswer(s.user.ID, m.ToUser, *m.Session); err != nil {
				logging.Warn(s.ctx, "Dropping answer", zap.String("toUser", string(m.ToUser)), zap.Error(err))
				metrics.WebsocketEvents.WithLabelValues("answer", "dropped").Inc()
			}
		default:
			logging.Warn(s.ctx, "Dropping unexpected frame", zap.String("type", msg.Kind()))
			metrics.WebsocketEvents.WithLabelValues("message", "dropped").Inc()
		}
	}
}

// writePump drains the user's feed to the socket. When the feed finishes it
// sends a close frame so well-behaved clients shut down cleanly.
func (s *session) writePump() {
	defer s.close()

	feed, err := s.room.Fetch(s.user.ID)
	if err != nil {
		logging.Error(s.ctx, "No feed for connected user", zap.Error(err))
		return
	}

	for {
		frame, ok := feed.Next(s.ctx)
		if !ok {
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logging.Error(s.ctx, "error writing frame", zap.Error(err))
			return
		}
	}
}

// close tears the session down exactly once: cancel both pumps, leave the
// room, close the socket. Either pump may call it first.
func (s *session) close() {
	s.teardown.Do(func() {
		s.cancel()
		s.room.Disconnect(s.user.ID)
		_ = s.conn.Close()
		metrics.DecConnection()
		logging.Info(s.ctx, "Session closed")
	})
}
