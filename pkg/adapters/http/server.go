// Package http exposes the customer-service dialogue over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxBodySize bounds request bodies; input size itself is checked by the service.
const maxBodySize = 64 << 10

// Service is the dialogue surface served over HTTP.
type Service interface {
	Start(ctx context.Context, sessionID string) (domain.Reply, error)
	HandleInput(ctx context.Context, sessionID, text string) (domain.Reply, error)
	Reset(ctx context.Context, sessionID string) (domain.Reply, error)
	End(ctx context.Context, sessionID string) error
}

// StartRequest is the optional body of POST /sessions.
type StartRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// ReplyResponse wraps a structured reply and, when a renderer is set, its prose.
type ReplyResponse struct {
	Reply domain.Reply `json:"reply"`
	Text  string       `json:"text,omitempty"`
}

// ErrorResponse is written for requests that never reached the dialogue.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server implements the HTTP routes.
type Server struct {
	service  Service
	renderer ports.ReplyRenderer // Optional
	metrics  http.Handler        // Optional
	version  string
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithRenderer adds rendered prose to every reply.
func WithRenderer(r ports.ReplyRenderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the service.
func NewHandler(service Service, opts ...Option) http.Handler {
	s := &Server{
		service: service,
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Post("/{id}/messages", s.SendMessage)
		r.Post("/{id}/reset", s.ResetSession)
		r.Delete("/{id}", s.EndSession)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

// StartSession handles POST /sessions. A missing session_id gets a fresh UUID.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := decode(w, r, &body, true); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("StartSession: invalid request body", "err", err)
		return
	}
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}

	reply, err := s.service.Start(r.Context(), body.SessionID)
	s.respond(w, r, http.StatusCreated, reply, err)
}

// SendMessage handles POST /sessions/{id}/messages.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := decode(w, r, &body, false); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("SendMessage: invalid request body", "err", err)
		return
	}

	reply, err := s.service.HandleInput(r.Context(), chi.URLParam(r, "id"), body.Text)
	s.respond(w, r, http.StatusOK, reply, err)
}

// ResetSession handles POST /sessions/{id}/reset.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	reply, err := s.service.Reset(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, http.StatusOK, reply, err)
}

// EndSession handles DELETE /sessions/{id}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.End(r.Context(), id); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "session store unavailable")
		s.logger.Error("EndSession failed", "session_id", id, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond maps service errors to status codes. Replies are always written so
// clients can show the prompt that goes with the error.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, reply domain.Reply, err error) {
	if err != nil {
		status = StatusFor(err)
		s.logger.Warn("request failed", "session_id", reply.SessionID, "status", status, "err", err)
	}

	resp := ReplyResponse{Reply: reply}
	if s.renderer != nil {
		text, rerr := s.renderer.Render(r.Context(), reply)
		if rerr != nil {
			s.logger.Error("reply rendering failed", "event", reply.Event, "err", rerr)
		}
		resp.Text = text
	}
	s.writeJSON(w, status, resp)
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
