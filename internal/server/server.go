// Package server owns the HTTP listener and the ordered shutdown of the
// resources the router depends on.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/ghl"
)

// writeHeadroom is how long a handler has to write its error envelope after
// the downstream tool call has timed out.
const writeHeadroom = 15 * time.Second

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default HTTP server configuration. WriteTimeout
// always outlasts the downstream tool timeout.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         "3000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: ghl.DefaultToolTimeout + writeHeadroom,
		IdleTimeout:  60 * time.Second,
	}
}

// Server wraps the HTTP server and the resources closed after it drains.
type Server struct {
	config  Config
	http    *http.Server
	closers []io.Closer
	logger  *zap.Logger
}

// NewServer creates a server for handler. closers are closed in order after
// the listener has shut down, e.g. the rate limiter janitor then the audit DB.
func NewServer(handler http.Handler, config Config, logger *zap.Logger, closers ...io.Closer) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}

	return &Server{
		config:  config,
		http:    httpServer,
		closers: closers,
		logger:  logger,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener. Request contexts carry ctx's
// values but not its cancellation, so in-flight requests keep running until
// Shutdown has drained them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	base := context.WithoutCancel(ctx)
	s.http.BaseContext = func(net.Listener) context.Context { return base }
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))

	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, then closes every registered resource.
// All closers run even if an earlier step fails; the errors are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}
