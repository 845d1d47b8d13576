package live

import (
	"sync"
	"sync/atomic"

	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/Domenick1991/deliverydesk/internal/metrics"
)

const defaultBuffer = 64

var clientIDCounter atomic.Uint64

// Client is one connected live stream. Messages arrive on C until the hub
// drops the client or shuts down, at which point C is closed.
type Client struct {
	id   uint64
	send chan []byte
	once sync.Once
}

func (c *Client) ID() uint64 {
	return c.id
}

func (c *Client) C() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans every broadcast out to all registered clients. Delivery is
// at-most-once: a client whose buffer is full misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	buffer  int
	closed  bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{clients: make(map[*Client]struct{}), buffer: buffer}
}

// Subscribe registers a new client. On a closed hub the returned client's
// channel is already closed.
func (h *Hub) Subscribe() *Client {
	c := &Client{id: clientIDCounter.Add(1), send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.close()
		return c
	}
	h.clients[c] = struct{}{}
	metrics.LiveClients.Inc()
	logging.Debug().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("live client connected")
	return c
}

func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	metrics.LiveClients.Dec()
	logging.Debug().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("live client disconnected")
}

// Broadcast queues msg for every client and reports how many accepted it.
func (h *Hub) Broadcast(msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			metrics.LiveDropped.Inc()
		}
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
		metrics.LiveClients.Dec()
	}
	logging.Info().Msg("live hub closed")
}
