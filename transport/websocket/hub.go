package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/sockgate/logging"
	"github.com/wricardo/sockgate/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound frames buffered per socket.
	sendBufferSize = 256
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Client is one open websocket and the Sender its Handler replies through
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	ticket  uuid.UUID
	handler *Handler

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

// Send queues text for the write pump. It never blocks.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- []byte(text):
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close stops the write pump; safe to call more than once
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub maintains the set of open sockets grouped by ticket
type Hub struct {
	// Open sockets by ticket
	sockets map[uuid.UUID]map[*Client]bool
	mu      sync.RWMutex

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewHub creates a new websocket hub
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		sockets:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logging.OrNop(logger),
		metrics:    m,
	}
}

// Run processes registrations until ctx is done, then closes every socket
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			return
		}
	}
}

// Live returns the number of open sockets admitted under ticket
func (h *Hub) Live(ticket uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sockets[ticket])
}

// IsLive reports whether ticket has at least one open socket
func (h *Hub) IsLive(ticket uuid.UUID) bool {
	return h.Live(ticket) > 0
}

// Sockets returns the number of open sockets across all tickets
func (h *Hub) Sockets() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.sockets {
		total += len(clients)
	}
	return total
}

// Push sends text to every open socket of ticket and returns how many
// accepted it
func (h *Hub) Push(ticket uuid.UUID, text string) int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sockets[ticket]))
	for client := range h.sockets[ticket] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		if err := client.Send(text); err != nil {
			h.log.Warn("push failed", zap.Stringer("ticket", ticket), zap.Error(err))
			h.metrics.SendFailed()
			continue
		}
		delivered++
	}
	return delivered
}

// add hands client to the Run loop; false once the hub has shut down
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// registerClient adds a client under its ticket
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.sockets[client.ticket] == nil {
		h.sockets[client.ticket] = make(map[*Client]bool)
	}
	h.sockets[client.ticket][client] = true
	count := len(h.sockets[client.ticket])
	h.mu.Unlock()

	h.metrics.SocketOpened()
	h.log.Debug("client registered", zap.Stringer("ticket", client.ticket), zap.Int("ticket_sockets", count))
}

// unregisterClient removes a client and stops its write pump
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.sockets[client.ticket]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	remaining := len(clients)

	// Clean up tickets with no open sockets
	if remaining == 0 {
		delete(h.sockets, client.ticket)
	}
	h.mu.Unlock()

	client.close()
	h.metrics.SocketClosed()
	h.log.Debug("client unregistered", zap.Stringer("ticket", client.ticket), zap.Int("ticket_sockets", remaining))
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for ticket, clients := range h.sockets {
		for client := range clients {
			client.close()
			h.metrics.SocketClosed()
		}
		delete(h.sockets, ticket)
	}
	h.log.Info("hub stopped")
}

// readPump delivers frames from the connection to the handler, in order
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.handler.OnClose(closeErr.Code, closeErr.Text)
			} else {
				c.handler.OnError(err)
			}
			return
		}

		c.handler.OnMessage(ctx, data)
	}
}

// writePump writes queued frames and pings to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
