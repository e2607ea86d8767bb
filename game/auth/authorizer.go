// Package auth decides whether a ticket presented inside a message may act.
package auth

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownTicket = errors.New("unknown ticket")
)

// Authorizer gates inbound actions on the ticket they claim
type Authorizer interface {
	Authorize(ticket uuid.UUID) error
}

// TicketSet is the read side of the connection registry
type TicketSet interface {
	Contains(ticket uuid.UUID) bool
}

// PresenceAuthorizer accepts any ticket that is currently registered.
//
// It does not check that the claimed ticket belongs to the socket that sent
// the message; any client that learns a ticket string can act under it.
type PresenceAuthorizer struct {
	tickets TicketSet
}

// NewPresenceAuthorizer returns an Authorizer backed by tickets
func NewPresenceAuthorizer(tickets TicketSet) *PresenceAuthorizer {
	return &PresenceAuthorizer{tickets: tickets}
}

// Authorize returns ErrUnknownTicket unless ticket is registered.
func (a *PresenceAuthorizer) Authorize(ticket uuid.UUID) error {
	if !a.tickets.Contains(ticket) {
		return fmt.Errorf("%w %s", ErrUnknownTicket, ticket)
	}
	return nil
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ticket uuid.UUID) error

// Authorize calls f(ticket).
func (f AuthorizerFunc) Authorize(ticket uuid.UUID) error {
	return f(ticket)
}
