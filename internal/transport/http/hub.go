package http

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizroom-service/internal/domain"
)

// Hub tracks live connections by connection id and implements app.EventSink.
// Rooms address connections by id; the hub is the only place that knows about
// sockets.
type Hub struct {
	log zerolog.Logger

	mu    sync.RWMutex
	conns map[string]*client
}

type client struct {
	send chan domain.Event
	done chan struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[string]*client),
	}
}

// Register assigns a fresh connection id and starts the writer goroutine that
// serializes all outbound traffic for the socket.
func (h *Hub) Register(conn *websocket.Conn) string {
	id := uuid.NewString()
	c := &client{
		send: make(chan domain.Event, 16),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()

	go func() {
		defer close(c.done)
		for evt := range c.send {
			if err := conn.WriteJSON(evt); err != nil {
				h.log.Debug().Err(err).Str("conn", id).Msg("ws write error")
				return
			}
		}
	}()
	return id
}

// Unregister drops the connection and stops its writer. Closing the send
// channel under the write lock means no enqueue (always under the read lock)
// can race it.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		<-c.done
	}
}

// Unicast delivers one event to one connection. Unknown ids are dropped;
// rooms may broadcast to a member racing its own disconnect.
func (h *Hub) Unicast(connectionID string, evt domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.conns[connectionID]; ok {
		c.enqueue(evt)
	}
}

// Multicast delivers one event to every listed connection.
func (h *Hub) Multicast(connectionIDs []string, evt domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range connectionIDs {
		if c, ok := h.conns[id]; ok {
			c.enqueue(evt)
		}
	}
}

// enqueue never blocks the caller: a slow client sheds its oldest queued
// event instead of stalling the room that is broadcasting.
func (c *client) enqueue(evt domain.Event) {
	select {
	case c.send <- evt:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- evt:
		default:
		}
	}
}
