// Package server exposes the HTTP API: auth, task CRUD, conversation
// history, and the chat endpoint backed by the intent dispatcher.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/todo-assistant/internal/auth"
	"github.com/nhle/todo-assistant/internal/chat"
	"github.com/nhle/todo-assistant/internal/model"
	"github.com/nhle/todo-assistant/internal/store"
)

// Server wires the HTTP handlers to the store, token issuer, and chat
// dispatcher.
type Server struct {
	cfg        model.ServerConfig
	store      store.Store
	tokens     *auth.TokenIssuer
	dispatcher *chat.Dispatcher
	log        zerolog.Logger
	httpServer *http.Server
}

// New creates a Server listening on the configured port.
func New(
	cfg model.ServerConfig,
	s store.Store,
	tokens *auth.TokenIssuer,
	dispatcher *chat.Dispatcher,
	logger zerolog.Logger,
) *Server {
	srv := &Server{
		cfg:        cfg,
		store:      s,
		tokens:     tokens,
		dispatcher: dispatcher,
		log:        logger.With().Str("component", "server").Logger(),
	}

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv
}

// Handler builds the routed, middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/users/me", s.withAuth(s.handleMe))

	mux.Handle("GET /api/{user_id}/tasks", s.withUser(s.handleListTasks))
	mux.Handle("POST /api/{user_id}/tasks", s.withUser(s.handleCreateTask))
	mux.Handle("GET /api/{user_id}/tasks/{task_id}", s.withUser(s.handleGetTask))
	mux.Handle("PUT /api/{user_id}/tasks/{task_id}", s.withUser(s.handleUpdateTask))
	mux.Handle("DELETE /api/{user_id}/tasks/{task_id}", s.withUser(s.handleDeleteTask))
	mux.Handle("PATCH /api/{user_id}/tasks/{task_id}/complete", s.withUser(s.handleCompleteTask))

	mux.Handle("GET /api/{user_id}/conversations", s.withUser(s.handleListConversations))
	mux.Handle("GET /api/{user_id}/conversations/{conversation_id}/messages",
		s.withUser(s.handleConversationMessages))
	mux.Handle("POST /api/{user_id}/chat", s.withUser(s.handleChat))

	return s.logRequests(s.cors(mux))
}

// Run starts the listener and blocks until ctx is cancelled or the listener
// fails. Shutdown drains in-flight requests for up to ten seconds.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Todo Assistant API is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
