package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/provider"
	"github.com/lee-jian-hui/tts-system/internal/session"
	"github.com/lee-jian-hui/tts-system/internal/ttsservice"
)

// Server wires the TTSService into the HTTP surface of spec.md §6.
type Server struct {
	svc      *ttsservice.Service
	registry *provider.Registry
	store    *session.Store

	httpServer *http.Server
}

// NewServer builds the chi router with the canonical ingress
// middleware stack (recoverer, request id, structured logging) and
// binds it to addr.
func NewServer(addr string, svc *ttsservice.Service, registry *provider.Registry, store *session.Store) *Server {
	s := &Server{svc: svc, registry: registry, store: store}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(log.Middleware())

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/v1/tts/sessions", s.handleCreateSession)
	r.Get("/v1/voices", s.handleListVoices)
	r.Get("/v1/tts/stream/{session_id}", s.handleStream)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the underlying router, for tests that drive the
// server with httptest rather than a live listener.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ListenAndServe blocks until the server stops or fails to start.
func (s *Server) ListenAndServe() error {
	log.WithComponent("api").Info().Str("addr", s.httpServer.Addr).Msg("listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests within the given
// deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
