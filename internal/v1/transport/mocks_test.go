package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MockConnection implements wsConnection with overridable behavior per test.
type MockConnection struct {
	ReadMessageFunc  func() (int, []byte, error)
	WriteMessageFunc func(int, []byte) error
	CloseFunc        func() error
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	if m.ReadMessageFunc != nil {
		return m.ReadMessageFunc()
	}
	return 0, nil, nil
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	if m.WriteMessageFunc != nil {
		return m.WriteMessageFunc(messageType, data)
	}
	return nil
}

func (m *MockConnection) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockConnection) SetWriteDeadline(_ time.Time) error {
	return nil
}

var errConnClosed = errors.New("use of closed connection")

// scriptedConn is a wsConnection driven by channels, so tests can feed
// inbound frames and observe outbound ones without a real socket.
type scriptedConn struct {
	in  chan []byte
	out chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newScriptedConn() *scriptedConn {
	return &scriptedConn{
		in:   make(chan []byte, 16),
		out:  make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-c.in:
		return websocket.TextMessage, frame, nil
	case <-c.done:
		return 0, nil, errConnClosed
	}
}

func (c *scriptedConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		// Close frames are not interesting to the scripts.
		return nil
	}
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return errConnClosed
	}
}

func (c *scriptedConn) SetWriteDeadline(_ time.Time) error {
	return nil
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *scriptedConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
