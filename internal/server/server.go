// Package server exposes the strategy engine over HTTP: multipart strategy
// generation, token estimation, and SSE section chat.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/marketforge/strategist/internal/config"
	"github.com/marketforge/strategist/pkg/chat"
	"github.com/marketforge/strategist/pkg/engine"
)

type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	chats  *chat.Manager
	log    zerolog.Logger

	httpServer *http.Server
}

func New(cfg *config.Config, eng *engine.Engine, chats *chat.Manager, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, engine: eng, chats: chats, log: log}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/strategy", s.handleStrategy).Methods(http.MethodPost)
	r.HandleFunc("/api/tokens", s.handleTokens).Methods(http.MethodPost)
	r.HandleFunc("/api/chat", s.handleChatOpen).Methods(http.MethodPost)
	r.HandleFunc("/api/chat/{conversation}", s.handleChatAsk).Methods(http.MethodPost)
	r.HandleFunc("/api/chat/{conversation}", s.handleChatClose).Methods(http.MethodDelete)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
