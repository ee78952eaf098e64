package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"labanalyzer/internal/infrastructure"
	"labanalyzer/pkg/contracts/events"
)

// Size of the hub's inbound broadcast queue
const broadcastQueueSize = 64

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]struct{}

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	quit     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. Calling it again is a no-op.
func (h *Hub) Start() {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	go h.run()
}

// Stop ends the hub loop and disconnects every client. It waits for the loop to exit.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		if h.started.Load() {
			<-h.done
		}
		h.logger.Info("Hub stopped")
	})
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
				h.metrics.recordDisconnect(ctx, time.Since(client.connectedAt), "shutdown")
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.recordConnect(ctx)

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			welcome := events.New(events.MessageTypeConnect, events.LevelInfo, "Connected to analysis event stream").
				WithData(map[string]string{"client_id": client.id})
			welcome.TraceID = client.traceID
			if data, err := json.Marshal(welcome); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				h.metrics.recordDisconnect(ctx, time.Since(client.connectedAt), "closed")
				h.logger.InfoContext(client.context(), "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			h.fanOut(ctx, message)
		}
	}
}

// fanOut queues message on every client; clients with a full queue are dropped
func (h *Hub) fanOut(ctx context.Context, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered, dropped := 0, 0
	for client := range h.clients {
		select {
		case client.send <- message:
			delivered++
		default:
			dropped++
			close(client.send)
			delete(h.clients, client)
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.metrics.recordBroadcast(ctx, delivered, dropped)

	h.logger.Debug("Broadcast message to clients",
		slog.Int("client_count", delivered),
		slog.Int("message_size", len(message)))
}

// Publish broadcasts an event to every connected client. It gives up when
// the hub is stopped or ctx is done.
func (h *Hub) Publish(ctx context.Context, event events.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.TraceID == "" {
		event.TraceID = infrastructure.GetTraceID(ctx)
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling event",
			slog.String("error", err.Error()),
			slog.String("message_type", string(event.Type)))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	case <-ctx.Done():
	}
}

// Register adds a client. When the hub is stopped the client's queue is
// closed so its write pump exits.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
