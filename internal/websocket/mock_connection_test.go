package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	messageType int
	data        []byte
}

// mockConnection is an in-memory Connection. ReadMessage blocks until a
// message is pushed or the connection is closed.
type mockConnection struct {
	mu        sync.Mutex
	written   []frame
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		inbound: make(chan []byte, 8),
		closed:  make(chan struct{}),
	}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.closed:
		return websocket.ErrCloseSent
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, frame{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.inbound:
		return websocket.TextMessage, msg, nil
	case <-m.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseGoingAway}
	}
}

func (m *mockConnection) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConnection) SetReadLimit(int64)               {}
func (m *mockConnection) SetPongHandler(func(string) error) {}
func (m *mockConnection) RemoteAddr() string               { return "127.0.0.1:5000" }

func (m *mockConnection) frames() []frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]frame(nil), m.written...)
}

func (m *mockConnection) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}
