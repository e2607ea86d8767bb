package websocket

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/sockgate/game/model"
	"github.com/wricardo/sockgate/game/session"
	"github.com/wricardo/sockgate/metrics"
)

// State is the lifecycle position of one socket
type State int32

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sender delivers a text frame to the peer
type Sender interface {
	Send(text string) error
}

// Handler processes the events of a single socket
type Handler struct {
	gw     *Gateway
	out    Sender
	state  atomic.Int32
	ticket uuid.UUID
	// generated is set when OnRequest minted the ticket itself
	generated bool
	admitted  bool
	log       *zap.Logger
}

// State returns the current lifecycle state
func (h *Handler) State() State {
	return State(h.state.Load())
}

// Ticket returns the ticket admitted by OnRequest
func (h *Handler) Ticket() uuid.UUID {
	return h.ticket
}

// OnRequest admits the upgrade request. New tickets are written to header as
// a Set-Cookie. It never rejects.
func (h *Handler) OnRequest(r *http.Request, header http.Header) session.Admission {
	codec := h.gw.codec
	presented := codec.Presented(r)

	t, ok := codec.Extract(r)
	if !ok {
		t = h.gw.newTicket()
		h.generated = true
		if presented {
			h.log.Debug("ticket cookie unparsable, issuing new ticket", zap.String("cookie", codec.Name))
		} else {
			h.log.Debug("no ticket cookie found, issuing new ticket", zap.String("cookie", codec.Name))
		}
	}

	adm := h.gw.registry.Admit(t, model.NewAnonymousPlayer)
	h.ticket = t
	h.log = h.log.With(zap.Stringer("ticket", t))

	if adm.Reconnect {
		h.log.Info("reconnect", zap.Int("connected_users", adm.Size))
	} else {
		op := "creating persistence cookie"
		if presented {
			op = "replacing persistence cookie"
		}
		codec.Attach(t, header)
		h.log.Info("new connection", zap.String("cookie_op", op), zap.Int("connected_users", adm.Size))
	}
	h.admitted = !adm.Reconnect
	h.gw.metrics.Admitted(adm.Reconnect)

	return adm
}

// Withdraw undoes an admission whose upgrade never completed. Only tickets
// minted by OnRequest are removed: the peer never received their cookie, so
// nothing else can hold them.
func (h *Handler) Withdraw() bool {
	if !h.generated || !h.admitted {
		return false
	}
	h.admitted = false
	if err := h.gw.registry.Remove(h.ticket); err != nil {
		return false
	}
	h.log.Info("admission withdrawn, upgrade failed")
	return true
}

// OnOpen marks the socket open once the handshake has completed
func (h *Handler) OnOpen() {
	if !h.state.CompareAndSwap(int32(StateUnopened), int32(StateOpen)) {
		h.log.Warn("open on socket that is not unopened", zap.Stringer("state", h.State()))
		return
	}
	h.log.Info("socket opened")
}

// OnMessage runs one inbound frame through parse, authorize and dispatch.
// Every failure is reported back on the same socket as text.
func (h *Handler) OnMessage(ctx context.Context, raw []byte) {
	if h.State() != StateOpen {
		h.log.Warn("dropping message on socket that is not open", zap.Stringer("state", h.State()))
		h.gw.metrics.Message(metrics.ResultDropped)
		return
	}

	env, err := h.gw.parser.Parse(raw)
	if err != nil {
		h.log.Debug("rejecting malformed message", zap.Error(err))
		h.gw.metrics.Message(metrics.ResultParseError)
		h.reply(err.Error())
		return
	}

	if err := h.gw.authorizer.Authorize(env.Ticket); err != nil {
		h.log.Info("rejecting unauthorized message", zap.Stringer("claimed", env.Ticket), zap.Error(err))
		h.gw.metrics.Message(metrics.ResultUnauthorized)
		h.reply(err.Error())
		return
	}

	conn, err := h.gw.registry.Get(env.Ticket)
	if err != nil {
		// Authorizers other than the presence check may accept tickets the
		// registry does not hold.
		conn = session.Connection{Ticket: env.Ticket}
	}

	reply, err := h.gw.dispatcher.Dispatch(ctx, conn, env.Action)
	if err != nil {
		h.log.Warn("dispatch failed", zap.String("action", env.Action.String()), zap.Error(err))
		h.gw.metrics.Message(metrics.ResultDispatchFail)
		h.reply(err.Error())
		return
	}

	h.log.Debug("dispatched", zap.String("action", env.Action.String()), zap.Stringer("claimed", env.Ticket))
	h.gw.metrics.Message(metrics.ResultAck)
	h.reply(reply)
}

// OnClose records a close frame from the peer
func (h *Handler) OnClose(code int, reason string) {
	h.state.Store(int32(StateClosed))
	h.log.Info("socket closed", zap.Int("code", code), zap.String("reason", reason))
}

// OnError records a transport error; the socket is finished afterwards
func (h *Handler) OnError(err error) {
	h.state.Store(int32(StateClosed))
	h.log.Warn("socket error", zap.Error(err))
}

func (h *Handler) reply(text string) {
	if err := h.out.Send(text); err != nil {
		h.log.Warn("send failed", zap.Error(err))
		h.gw.metrics.SendFailed()
	}
}
