package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// Server wraps http.Server with config-driven timeouts and graceful
// shutdown.
type Server struct {
	srv *http.Server
	log logging.Logger
}

// NewServer builds a Server around the given handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	inner := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: inner, log: logger.Named("http")}
}

// Start blocks serving requests until Stop is called or the listener
// fails.  A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("http server listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.ErrCodeInternal, "http server failed")
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.  The context
// bounds how long draining may take.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("http server stopping")
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "http server shutdown failed")
	}
	return nil
}

// Handler exposes the wired handler chain for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }
