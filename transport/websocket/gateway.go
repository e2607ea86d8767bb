package websocket

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/sockgate/game/auth"
	"github.com/wricardo/sockgate/game/envelope"
	"github.com/wricardo/sockgate/game/service"
	"github.com/wricardo/sockgate/game/session"
	"github.com/wricardo/sockgate/game/ticket"
	"github.com/wricardo/sockgate/logging"
	"github.com/wricardo/sockgate/metrics"
)

// Gateway admits websocket upgrades and wires each socket to a Handler
type Gateway struct {
	registry   *session.Registry
	hub        *Hub
	authorizer auth.Authorizer
	parser     *envelope.Parser
	dispatcher service.Dispatcher
	codec      ticket.Codec
	newTicket  func() uuid.UUID
	log        *zap.Logger
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
}

// Option configures a Gateway
type Option func(*Gateway)

// WithAuthorizer replaces the presence check
func WithAuthorizer(a auth.Authorizer) Option {
	return func(g *Gateway) { g.authorizer = a }
}

// WithDispatcher replaces the acknowledging dispatcher
func WithDispatcher(d service.Dispatcher) Option {
	return func(g *Gateway) { g.dispatcher = d }
}

// WithDecoder sets the wire format of inbound frames
func WithDecoder(d envelope.Decoder) Option {
	return func(g *Gateway) { g.parser = envelope.NewParser(d) }
}

// WithCodec sets the identity cookie attributes
func WithCodec(c ticket.Codec) Option {
	return func(g *Gateway) { g.codec = c }
}

// WithTicketGenerator overrides how fresh tickets are minted
func WithTicketGenerator(fn func() uuid.UUID) Option {
	return func(g *Gateway) { g.newTicket = fn }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.log = logging.OrNop(l) }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithCheckOrigin sets the upgrader's origin policy
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(g *Gateway) { g.upgrader.CheckOrigin = fn }
}

// NewGateway creates a Gateway over registry and hub
func NewGateway(registry *session.Registry, hub *Hub, opts ...Option) *Gateway {
	g := &Gateway{
		registry:   registry,
		hub:        hub,
		authorizer: auth.NewPresenceAuthorizer(registry),
		parser:     envelope.NewParser(nil),
		dispatcher: service.Acknowledger{},
		codec:      ticket.NewCodec(""),
		newTicket:  uuid.New,
		log:        zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin is accepted unless WithCheckOrigin narrows it.
			CheckOrigin: allowAnyOrigin,
		},
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewHandler creates the event handler for one socket writing to out
func (g *Gateway) NewHandler(out Sender) *Handler {
	return &Handler{
		gw:  g,
		out: out,
		log: g.log,
	}
}

// ServeHTTP implements http.Handler
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.ServeWS(w, r)
}

// ServeWS admits and upgrades a websocket request, then starts its pumps
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	if status, err := g.checkHandshake(r); err != nil {
		g.log.Debug("rejecting upgrade before admission", zap.Int("status", status), zap.Error(err))
		w.Header().Set("Sec-Websocket-Version", "13")
		http.Error(w, err.Error(), status)
		return
	}

	client := newClient(g.hub)
	handler := g.NewHandler(client)
	client.handler = handler

	header := http.Header{}
	adm := handler.OnRequest(r, header)

	conn, err := g.upgrader.Upgrade(w, r, header)
	if err != nil {
		handler.Withdraw()
		handler.OnError(err)
		return
	}

	client.conn = conn
	client.ticket = adm.Connection.Ticket

	if !g.hub.add(client) {
		handler.OnClose(websocket.CloseGoingAway, "server shutting down")
		conn.Close()
		return
	}

	handler.OnOpen()

	// The request context ends when ServeWS returns; keep its values only.
	ctx := context.WithoutCancel(r.Context())

	go client.writePump()
	go client.readPump(ctx)
}

var (
	errUpgradeRequired = errors.New("websocket upgrade required")
	errBadMethod       = errors.New("websocket upgrade requires GET")
	errBadVersion      = errors.New("unsupported websocket version")
	errBadKey          = errors.New("missing or malformed Sec-WebSocket-Key")
	errBadOrigin       = errors.New("origin not allowed")
)

// checkHandshake applies the upgrader's request checks ahead of admission so
// a rejected handshake never registers a ticket.
func (g *Gateway) checkHandshake(r *http.Request) (int, error) {
	if !websocket.IsWebSocketUpgrade(r) {
		return http.StatusBadRequest, errUpgradeRequired
	}
	if r.Method != http.MethodGet {
		return http.StatusMethodNotAllowed, errBadMethod
	}
	if r.Header.Get("Sec-Websocket-Version") != "13" {
		return http.StatusBadRequest, errBadVersion
	}
	if !validChallengeKey(r.Header.Get("Sec-Websocket-Key")) {
		return http.StatusBadRequest, errBadKey
	}

	checkOrigin := g.upgrader.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = sameOrigin
	}
	if !checkOrigin(r) {
		return http.StatusForbidden, errBadOrigin
	}
	return 0, nil
}

func validChallengeKey(key string) bool {
	if key == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(key)
	return err == nil && len(decoded) == 16
}

func allowAnyOrigin(r *http.Request) bool {
	return true
}

// sameOrigin mirrors the upgrader's check when CheckOrigin is nil
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
