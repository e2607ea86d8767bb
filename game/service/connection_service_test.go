package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/wricardo/sockgate/game/auth"
	"github.com/wricardo/sockgate/game/model"
	"github.com/wricardo/sockgate/game/session"
)

// fakeNotifier records pushes instead of writing to sockets
type fakeNotifier struct {
	live   map[uuid.UUID]int
	pushed map[uuid.UUID][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		live:   make(map[uuid.UUID]int),
		pushed: make(map[uuid.UUID][]string),
	}
}

func (n *fakeNotifier) Live(ticket uuid.UUID) int { return n.live[ticket] }

func (n *fakeNotifier) Sockets() int {
	total := 0
	for _, c := range n.live {
		total += c
	}
	return total
}

func (n *fakeNotifier) Push(ticket uuid.UUID, text string) int {
	n.pushed[ticket] = append(n.pushed[ticket], text)
	return n.live[ticket]
}

func setupService(t *testing.T) (ConnectionService, *session.Registry, *fakeNotifier) {
	t.Helper()
	registry := session.NewRegistry()
	notifier := newFakeNotifier()
	svc := NewConnectionService(registry, auth.NewPresenceAuthorizer(registry), notifier)
	return svc, registry, notifier
}

func TestConnectionService_ListAndGet(t *testing.T) {
	svc, registry, notifier := setupService(t)
	ctx := context.Background()

	ticket := uuid.New()
	registry.Admit(ticket, model.NewAnonymousPlayer)
	notifier.live[ticket] = 2

	infos, err := svc.ListConnections(ctx)
	if err != nil {
		t.Fatalf("Failed to list connections: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 connection, got %d", len(infos))
	}
	if infos[0].Ticket != ticket.String() || infos[0].LiveSockets != 2 {
		t.Errorf("Unexpected connection info %+v", infos[0])
	}

	info, err := svc.GetConnection(ctx, ticket.String())
	if err != nil {
		t.Fatalf("Failed to get connection: %v", err)
	}
	if !info.Player.Anonymous {
		t.Error("Expected anonymous player")
	}

	if _, err := svc.GetConnection(ctx, uuid.New().String()); !errors.Is(err, session.ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound, got %v", err)
	}
	if _, err := svc.GetConnection(ctx, "bogus"); !errors.Is(err, ErrInvalidTicket) {
		t.Errorf("Expected ErrInvalidTicket, got %v", err)
	}
}

func TestConnectionService_Authorize(t *testing.T) {
	svc, registry, _ := setupService(t)
	ctx := context.Background()

	known := uuid.New()
	registry.Admit(known, model.NewAnonymousPlayer)

	result, err := svc.Authorize(ctx, known.String())
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !result.Authorized {
		t.Errorf("Known ticket should authorize: %+v", result)
	}

	result, err = svc.Authorize(ctx, uuid.New().String())
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if result.Authorized || result.Reason == "" {
		t.Errorf("Unknown ticket should be refused with a reason: %+v", result)
	}

	// The probe itself must not register anything
	if registry.Count() != 1 {
		t.Errorf("Authorize should not mutate the registry, got %d entries", registry.Count())
	}
}

func TestConnectionService_EvictAndNotify(t *testing.T) {
	svc, registry, notifier := setupService(t)
	ctx := context.Background()

	ticket := uuid.New()
	registry.Admit(ticket, model.NewAnonymousPlayer)
	notifier.live[ticket] = 1

	result, err := svc.Notify(ctx, ticket.String(), "server says hi")
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if result.Delivered != 1 {
		t.Errorf("Expected 1 delivery, got %d", result.Delivered)
	}
	if got := notifier.pushed[ticket]; len(got) != 1 || got[0] != "server says hi" {
		t.Errorf("Unexpected pushes %v", got)
	}

	if err := svc.EvictConnection(ctx, ticket.String()); err != nil {
		t.Fatalf("Evict failed: %v", err)
	}
	if registry.Contains(ticket) {
		t.Error("Evicted ticket should be gone")
	}
	if err := svc.EvictConnection(ctx, ticket.String()); !errors.Is(err, session.ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound on second evict, got %v", err)
	}
	if _, err := svc.Notify(ctx, ticket.String(), "gone"); !errors.Is(err, session.ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound on notify after evict, got %v", err)
	}
}

func TestConnectionService_Stats(t *testing.T) {
	svc, registry, notifier := setupService(t)

	a, b := uuid.New(), uuid.New()
	registry.Admit(a, model.NewAnonymousPlayer)
	registry.Admit(b, model.NewAnonymousPlayer)
	notifier.live[a] = 3

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Connections != 2 || stats.LiveSockets != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestAcknowledger(t *testing.T) {
	reply, err := Acknowledger{}.Dispatch(context.Background(), session.Connection{}, model.Action("move-north"))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if reply != "gotcha, you want to move-north" {
		t.Errorf("Unexpected reply %q", reply)
	}
}
