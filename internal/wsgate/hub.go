package wsgate

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

// client is one registered connection's outbound queue.
type client struct {
	id     string
	send   chan chessdto.Event
	closed bool
}

// Hub routes events to connections by id. It implements pvpchess.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	buffer  int
	dropped uint64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{clients: make(map[string]*client), buffer: buffer}
}

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan chessdto.Event, h.buffer)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	c.closed = true
	close(c.send)
}

// Notify enqueues ev without blocking. Unknown connections and full queues
// drop the event.
func (h *Hub) Notify(connID string, ev chessdto.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok || c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		h.dropped++
		obslog.L().Warn("ws_event_dropped", zap.String("conn", connID), zap.String("event", ev.Event))
	}
}

// Len reports registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped reports how many events were discarded on full queues.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
