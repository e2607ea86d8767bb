package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/sockgate/game/service"
	"github.com/wricardo/sockgate/game/session"
	"github.com/wricardo/sockgate/logging"
)

// Server represents the HTTP API server
type Server struct {
	service service.ConnectionService
	ws      http.Handler
	metrics http.Handler
	router  *mux.Router
	log     *zap.Logger
}

// NewServer creates a new API server. ws serves the websocket endpoint and
// metrics the Prometheus endpoint; either may be nil.
func NewServer(svc service.ConnectionService, ws http.Handler, metrics http.Handler, logger *zap.Logger) *Server {
	s := &Server{
		service: svc,
		ws:      ws,
		metrics: metrics,
		router:  mux.NewRouter(),
		log:     logging.OrNop(logger),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Registered on the root router so a method mismatch answers 405.
	s.router.HandleFunc("/api/connections", s.handleListConnections).Methods("GET")
	s.router.HandleFunc("/api/connections/{ticket}", s.handleGetConnection).Methods("GET")
	s.router.HandleFunc("/api/connections/{ticket}", s.handleEvictConnection).Methods("DELETE")
	s.router.HandleFunc("/api/connections/{ticket}/notify", s.handleNotify).Methods("POST")
	s.router.HandleFunc("/api/authorize", s.handleAuthorize).Methods("POST")
	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidTicket):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrConnectionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.service.ListConnections(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(conns),
		"connections": conns,
	})
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	ticket := mux.Vars(r)["ticket"]

	info, err := s.service.GetConnection(r.Context(), ticket)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleEvictConnection(w http.ResponseWriter, r *http.Request) {
	ticket := mux.Vars(r)["ticket"]

	if err := s.service.EvictConnection(r.Context(), ticket); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.log.Info("ticket evicted", zap.String("ticket", ticket))
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "ticket " + ticket + " evicted",
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	ticket := mux.Vars(r)["ticket"]

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := s.service.Notify(r.Context(), ticket, req.Text)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.service.Authorize(r.Context(), req.Ticket)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
