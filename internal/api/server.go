package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/drone-relay/drc/internal/auth"
)

// Version is reported by the health and root endpoints.
const Version = "1.0.0"

// Server is the HTTP API server for the relay.
type Server struct {
	httpServer     *http.Server
	position       PositionPort
	command        CommandPort
	status         StatusPort
	auditLog       AuditPort
	store          StorePort
	authMiddleware *auth.Middleware
	startTime      time.Time

	statusReadDefault int

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

// Options carries the server dependencies and transport tunables.
type Options struct {
	Position PositionPort
	Command  CommandPort
	Status   StatusPort
	Audit    AuditPort
	Store    StorePort
	Auth     *auth.Middleware

	StatusReadDefault int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new API server. Auth may be nil in tests; every
// mailbox route is then unprotected.
func NewServer(opts Options) *Server {
	return &Server{
		position:          opts.Position,
		command:           opts.Command,
		status:            opts.Status,
		auditLog:          opts.Audit,
		store:             opts.Store,
		authMiddleware:    opts.Auth,
		startTime:         time.Now(),
		statusReadDefault: opts.StatusReadDefault,
		readTimeout:       opts.ReadTimeout,
		writeTimeout:      opts.WriteTimeout,
		idleTimeout:       opts.IdleTimeout,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
