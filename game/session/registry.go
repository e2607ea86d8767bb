package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/sockgate/game/model"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
)

// Connection is the registry entry for one identity ticket
type Connection struct {
	Ticket     uuid.UUID    `json:"ticket"`
	Player     model.Player `json:"player"`
	AdmittedAt time.Time    `json:"admitted_at"`
}

// String identifies the connection in log lines.
func (c Connection) String() string {
	return fmt.Sprintf("conn{%s}", c.Ticket)
}

// Admission is the outcome of admitting a ticket
type Admission struct {
	Connection Connection
	// Reconnect is true when the ticket was already registered.
	Reconnect bool
	// Size is the number of registered tickets after admission.
	Size int
}

// Registry maps identity tickets to live connection state
type Registry struct {
	connections map[uuid.UUID]Connection
	now         func() time.Time
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[uuid.UUID]Connection),
		now:         time.Now,
	}
}

// Admit registers ticket if it is unknown. The check and the insert happen
// under one write lock. newPlayer is only called on the new-connection path.
func (r *Registry) Admit(ticket uuid.UUID, newPlayer func() model.Player) Admission {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, exists := r.connections[ticket]; exists {
		return Admission{Connection: conn, Reconnect: true, Size: len(r.connections)}
	}

	conn := Connection{
		Ticket:     ticket,
		Player:     newPlayer(),
		AdmittedAt: r.now(),
	}
	r.connections[ticket] = conn

	return Admission{Connection: conn, Size: len(r.connections)}
}

// Contains reports whether ticket is registered
func (r *Registry) Contains(ticket uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.connections[ticket]
	return exists
}

// Get returns the connection registered under ticket
func (r *Registry) Get(ticket uuid.UUID) (Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.connections[ticket]
	if !exists {
		return Connection{}, ErrConnectionNotFound
	}
	return conn, nil
}

// List returns a snapshot of all connections, oldest admission first
func (r *Registry) List() []Connection {
	r.mu.RLock()
	result := make([]Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		result = append(result, conn)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].AdmittedAt.Equal(result[j].AdmittedAt) {
			return result[i].Ticket.String() < result[j].Ticket.String()
		}
		return result[i].AdmittedAt.Before(result[j].AdmittedAt)
	})
	return result
}

// Remove evicts the entry for ticket
func (r *Registry) Remove(ticket uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[ticket]; !exists {
		return ErrConnectionNotFound
	}
	delete(r.connections, ticket)
	return nil
}

// Prune removes entries admitted before cutoff for which live returns false.
// live is called with the write lock held and must not call back into r.
func (r *Registry) Prune(cutoff time.Time, live func(uuid.UUID) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for ticket, conn := range r.connections {
		if !conn.AdmittedAt.Before(cutoff) {
			continue
		}
		if live != nil && live(ticket) {
			continue
		}
		delete(r.connections, ticket)
		removed++
	}

	return removed
}

// Count returns the number of registered tickets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
