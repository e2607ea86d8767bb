package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wricardo/sockgate/game/auth"
	"github.com/wricardo/sockgate/game/model"
	"github.com/wricardo/sockgate/game/service"
	"github.com/wricardo/sockgate/game/session"
)

// MockConnectionService is a mock implementation of ConnectionService for testing
type MockConnectionService struct {
	ListConnectionsFunc func(ctx context.Context) ([]*service.ConnectionInfo, error)
	GetConnectionFunc   func(ctx context.Context, ticket string) (*service.ConnectionInfo, error)
	EvictConnectionFunc func(ctx context.Context, ticket string) error
	AuthorizeFunc       func(ctx context.Context, ticket string) (*service.AuthorizeResult, error)
	NotifyFunc          func(ctx context.Context, ticket, text string) (*service.NotifyResult, error)
	StatsFunc           func(ctx context.Context) (*service.Stats, error)
}

func (m *MockConnectionService) ListConnections(ctx context.Context) ([]*service.ConnectionInfo, error) {
	if m.ListConnectionsFunc != nil {
		return m.ListConnectionsFunc(ctx)
	}
	return nil, nil
}

func (m *MockConnectionService) GetConnection(ctx context.Context, ticket string) (*service.ConnectionInfo, error) {
	if m.GetConnectionFunc != nil {
		return m.GetConnectionFunc(ctx, ticket)
	}
	return nil, nil
}

func (m *MockConnectionService) EvictConnection(ctx context.Context, ticket string) error {
	if m.EvictConnectionFunc != nil {
		return m.EvictConnectionFunc(ctx, ticket)
	}
	return nil
}

func (m *MockConnectionService) Authorize(ctx context.Context, ticket string) (*service.AuthorizeResult, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, ticket)
	}
	return nil, nil
}

func (m *MockConnectionService) Notify(ctx context.Context, ticket, text string) (*service.NotifyResult, error) {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, ticket, text)
	}
	return nil, nil
}

func (m *MockConnectionService) Stats(ctx context.Context) (*service.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &service.Stats{}, nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestListConnections(t *testing.T) {
	ticket := uuid.New().String()
	mock := &MockConnectionService{
		ListConnectionsFunc: func(ctx context.Context) ([]*service.ConnectionInfo, error) {
			return []*service.ConnectionInfo{
				{Ticket: ticket, Player: model.NewAnonymousPlayer(), LiveSockets: 1},
			}, nil
		},
	}

	server := NewServer(mock, nil, nil, nil)
	req := httptest.NewRequest("GET", "/api/connections", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Count       int                       `json:"count"`
		Connections []*service.ConnectionInfo `json:"connections"`
	}
	decodeBody(t, w, &resp)

	if resp.Count != 1 || len(resp.Connections) != 1 {
		t.Fatalf("Expected 1 connection, got %+v", resp)
	}
	if resp.Connections[0].Ticket != ticket {
		t.Errorf("Expected ticket %s, got %s", ticket, resp.Connections[0].Ticket)
	}
}

func TestGetConnection(t *testing.T) {
	ticket := uuid.New().String()
	mock := &MockConnectionService{
		GetConnectionFunc: func(ctx context.Context, got string) (*service.ConnectionInfo, error) {
			if got != ticket {
				return nil, fmt.Errorf("ticket %s: %w", got, session.ErrConnectionNotFound)
			}
			return &service.ConnectionInfo{Ticket: got}, nil
		},
	}
	server := NewServer(mock, nil, nil, nil)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/connections/"+ticket, nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var info service.ConnectionInfo
		decodeBody(t, w, &info)
		if info.Ticket != ticket {
			t.Errorf("Expected ticket %s, got %s", ticket, info.Ticket)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/connections/"+uuid.New().String(), nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestGetConnectionInvalidTicket(t *testing.T) {
	mock := &MockConnectionService{
		GetConnectionFunc: func(ctx context.Context, ticket string) (*service.ConnectionInfo, error) {
			return nil, fmt.Errorf("%w: bad length", service.ErrInvalidTicket)
		},
	}
	server := NewServer(mock, nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/connections/nope", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if !strings.Contains(resp["error"], "invalid ticket") {
		t.Errorf("Expected invalid ticket error, got %q", resp["error"])
	}
}

func TestEvictConnection(t *testing.T) {
	var evicted string
	mock := &MockConnectionService{
		EvictConnectionFunc: func(ctx context.Context, ticket string) error {
			evicted = ticket
			return nil
		},
	}
	server := NewServer(mock, nil, nil, nil)

	ticket := uuid.New().String()
	req := httptest.NewRequest("DELETE", "/api/connections/"+ticket, nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if evicted != ticket {
		t.Errorf("Expected %s evicted, got %q", ticket, evicted)
	}
}

func TestNotify(t *testing.T) {
	ticket := uuid.New().String()
	mock := &MockConnectionService{
		NotifyFunc: func(ctx context.Context, got, text string) (*service.NotifyResult, error) {
			if text != "hello" {
				t.Errorf("Expected text hello, got %q", text)
			}
			return &service.NotifyResult{Ticket: got, Delivered: 2}, nil
		},
	}
	server := NewServer(mock, nil, nil, nil)

	t.Run("delivered", func(t *testing.T) {
		body := bytes.NewBufferString(`{"text":"hello"}`)
		req := httptest.NewRequest("POST", "/api/connections/"+ticket+"/notify", body)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var result service.NotifyResult
		decodeBody(t, w, &result)
		if result.Delivered != 2 {
			t.Errorf("Expected 2 deliveries, got %d", result.Delivered)
		}
	})

	t.Run("missing text", func(t *testing.T) {
		body := bytes.NewBufferString(`{}`)
		req := httptest.NewRequest("POST", "/api/connections/"+ticket+"/notify", body)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		body := bytes.NewBufferString(`not json`)
		req := httptest.NewRequest("POST", "/api/connections/"+ticket+"/notify", body)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestAuthorizeEndToEnd(t *testing.T) {
	registry := session.NewRegistry()
	known := uuid.New()
	registry.Admit(known, model.NewAnonymousPlayer)

	svc := service.NewConnectionService(registry, auth.NewPresenceAuthorizer(registry), nil)
	server := NewServer(svc, nil, nil, nil)

	tests := []struct {
		name       string
		ticket     string
		wantStatus int
		wantAuth   bool
	}{
		{"known ticket", known.String(), http.StatusOK, true},
		{"unknown ticket", uuid.New().String(), http.StatusOK, false},
		{"malformed ticket", "not-a-uuid", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"ticket": tt.ticket})
			req := httptest.NewRequest("POST", "/api/authorize", bytes.NewReader(body))
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if w.Code != http.StatusOK {
				return
			}

			var result service.AuthorizeResult
			decodeBody(t, w, &result)
			if result.Authorized != tt.wantAuth {
				t.Errorf("Expected authorized=%v, got %+v", tt.wantAuth, result)
			}
			if !tt.wantAuth && !strings.Contains(result.Reason, "unknown ticket") {
				t.Errorf("Expected unknown ticket reason, got %q", result.Reason)
			}
		})
	}
}

func TestStatsAndHealth(t *testing.T) {
	mock := &MockConnectionService{
		StatsFunc: func(ctx context.Context) (*service.Stats, error) {
			return &service.Stats{Connections: 3, LiveSockets: 1}, nil
		},
	}
	server := NewServer(mock, nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	var stats service.Stats
	decodeBody(t, w, &stats)
	if stats.Connections != 3 || stats.LiveSockets != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	req = httptest.NewRequest("GET", "/healthz", nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 from /healthz, got %d", w.Code)
	}
}

func TestMountedHandlers(t *testing.T) {
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sockgate_registered_tickets 0\n"))
	})
	server := NewServer(&MockConnectionService{}, ws, metrics, nil)

	req := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusTeapot {
		t.Errorf("Expected /ws to reach the websocket handler, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "sockgate_registered_tickets") {
		t.Errorf("Expected metrics body, got %q", w.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := NewServer(&MockConnectionService{}, nil, nil, nil)
	ticket := uuid.New().String()

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{"PUT", "/api/connections", http.StatusMethodNotAllowed},
		{"PATCH", "/api/connections/" + ticket, http.StatusMethodNotAllowed},
		{"GET", "/api/connections/" + ticket + "/notify", http.StatusMethodNotAllowed},
		{"POST", "/api/stats", http.StatusMethodNotAllowed},
		{"GET", "/api/nothing-here", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
