// Package backend is the reference registration backend: it exchanges
// an agent ID for a short-lived access token over HTTP and offers a
// phone fallback that dials the user through Twilio. A deployment may
// substitute any service speaking the same two endpoints.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ozzylabs/ozzy/pkg/logging"
)

// ServerConfig configures the registration server.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	TokenSecret   string        `mapstructure:"token_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AllowedAgents []string      `mapstructure:"allowed_agents"`
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	return c
}

// Server serves /create-web-call, /create-phone-call, and /healthz.
type Server struct {
	cfg    ServerConfig
	issuer *TokenIssuer
	dialer *Dialer
	log    *slog.Logger
	server *http.Server
}

// NewServer builds a registration server. dialer may be nil, in which
// case the phone fallback responds 503.
func NewServer(cfg ServerConfig, dialer *Dialer, log *slog.Logger) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:    cfg,
		issuer: NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL),
		dialer: dialer,
		log:    logging.NewComponentLogger(log, "backend"),
	}
}

// Handler returns the HTTP handler, exposed separately so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/create-web-call", s.handleCreateWebCall)
	mux.HandleFunc("/create-phone-call", s.handleCreatePhoneCall)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Start serves until ctx is canceled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           s.Handler(),
	}
	go func() {
		<-ctx.Done()
		_ = s.server.Close()
	}()
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("backend_server_error", "error", err.Error())
		}
	}()
	return nil
}

// Stop drains in-flight requests before closing.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type webCallRequest struct {
	AgentID string `json:"agent_id"`
}

type webCallResponse struct {
	AccessToken string `json:"access_token"`
	CallID      string `json:"call_id"`
}

type phoneCallRequest struct {
	AgentID  string `json:"agent_id"`
	ToNumber string `json:"to_number"`
}

type phoneCallResponse struct {
	CallSID string `json:"call_sid"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateWebCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req webCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.AgentID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "agent_id required"})
		return
	}
	if !s.agentAllowed(req.AgentID) {
		s.log.Warn("web_call_rejected", "agent_id", req.AgentID)
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "unknown agent"})
		return
	}
	callID := uuid.NewString()
	token, err := s.issuer.Issue(req.AgentID, callID)
	if err != nil {
		s.log.Error("token_issue_failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "token issue failed"})
		return
	}
	s.log.Info("web_call_created", "agent_id", req.AgentID, "call_id", callID)
	writeJSON(w, http.StatusCreated, webCallResponse{AccessToken: token, CallID: callID})
}

func (s *Server) handleCreatePhoneCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req phoneCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.AgentID) == "" || strings.TrimSpace(req.ToNumber) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "agent_id and to_number required"})
		return
	}
	if !s.agentAllowed(req.AgentID) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "unknown agent"})
		return
	}
	if s.dialer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "phone calls not configured"})
		return
	}
	sid, err := s.dialer.Dial(r.Context(), req.ToNumber)
	if err != nil {
		s.log.Error("phone_call_failed", "agent_id", req.AgentID, "error", err.Error())
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "dial failed"})
		return
	}
	s.log.Info("phone_call_created", "agent_id", req.AgentID, "call_sid", sid)
	writeJSON(w, http.StatusCreated, phoneCallResponse{CallSID: sid})
}

func (s *Server) agentAllowed(agentID string) bool {
	if len(s.cfg.AllowedAgents) == 0 {
		return true
	}
	for _, a := range s.cfg.AllowedAgents {
		if a == agentID {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
