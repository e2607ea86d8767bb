package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wricardo/sockgate/game/auth"
	"github.com/wricardo/sockgate/game/session"
)

// Notifier is the view of the websocket hub the service needs
type Notifier interface {
	Live(ticket uuid.UUID) int
	Sockets() int
	Push(ticket uuid.UUID, text string) int
}

// ConnectionService exposes registry operations to the outer transports
type ConnectionService interface {
	ListConnections(ctx context.Context) ([]*ConnectionInfo, error)
	GetConnection(ctx context.Context, ticket string) (*ConnectionInfo, error)
	EvictConnection(ctx context.Context, ticket string) error
	Authorize(ctx context.Context, ticket string) (*AuthorizeResult, error)
	Notify(ctx context.Context, ticket, text string) (*NotifyResult, error)
	Stats(ctx context.Context) (*Stats, error)
}

type connectionService struct {
	registry   *session.Registry
	authorizer auth.Authorizer
	notifier   Notifier
}

// NewConnectionService creates a ConnectionService. notifier may be nil when
// no websocket hub is running.
func NewConnectionService(registry *session.Registry, authorizer auth.Authorizer, notifier Notifier) ConnectionService {
	return &connectionService{
		registry:   registry,
		authorizer: authorizer,
		notifier:   notifier,
	}
}

// ListConnections returns every registered ticket
func (s *connectionService) ListConnections(ctx context.Context) ([]*ConnectionInfo, error) {
	conns := s.registry.List()
	result := make([]*ConnectionInfo, 0, len(conns))
	for _, conn := range conns {
		result = append(result, s.toInfo(conn))
	}
	return result, nil
}

// GetConnection returns the entry for one ticket
func (s *connectionService) GetConnection(ctx context.Context, ticket string) (*ConnectionInfo, error) {
	id, err := parseTicket(ticket)
	if err != nil {
		return nil, err
	}

	conn, err := s.registry.Get(id)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	return s.toInfo(conn), nil
}

// EvictConnection removes a ticket from the registry. Open sockets keep
// running but their messages stop authorizing.
func (s *connectionService) EvictConnection(ctx context.Context, ticket string) error {
	id, err := parseTicket(ticket)
	if err != nil {
		return err
	}

	if err := s.registry.Remove(id); err != nil {
		return fmt.Errorf("ticket %s: %w", id, err)
	}
	return nil
}

// Authorize runs the configured authorizer without dispatching anything
func (s *connectionService) Authorize(ctx context.Context, ticket string) (*AuthorizeResult, error) {
	id, err := parseTicket(ticket)
	if err != nil {
		return nil, err
	}

	result := &AuthorizeResult{Ticket: id.String(), Authorized: true}
	if err := s.authorizer.Authorize(id); err != nil {
		result.Authorized = false
		result.Reason = err.Error()
	}
	return result, nil
}

// Notify pushes text to every live socket admitted under ticket
func (s *connectionService) Notify(ctx context.Context, ticket, text string) (*NotifyResult, error) {
	id, err := parseTicket(ticket)
	if err != nil {
		return nil, err
	}
	if !s.registry.Contains(id) {
		return nil, fmt.Errorf("ticket %s: %w", id, session.ErrConnectionNotFound)
	}

	result := &NotifyResult{Ticket: id.String()}
	if s.notifier != nil {
		result.Delivered = s.notifier.Push(id, text)
	}
	return result, nil
}

// Stats returns registry and hub counters
func (s *connectionService) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Connections: s.registry.Count()}
	if s.notifier != nil {
		stats.LiveSockets = s.notifier.Sockets()
	}
	return stats, nil
}

func (s *connectionService) toInfo(conn session.Connection) *ConnectionInfo {
	info := &ConnectionInfo{
		Ticket:     conn.Ticket.String(),
		Player:     conn.Player,
		AdmittedAt: conn.AdmittedAt,
	}
	if s.notifier != nil {
		info.LiveSockets = s.notifier.Live(conn.Ticket)
	}
	return info
}

func parseTicket(ticket string) (uuid.UUID, error) {
	id, err := uuid.Parse(ticket)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	return id, nil
}
