package http

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"asdelete/internal/platform/logger"
	"asdelete/internal/platform/net/middleware"

	"github.com/go-chi/chi/v5"
)

// Server is a chi mux behind a stdlib http.Server
type Server struct {
	mux *chi.Mux
	srv *stdhttp.Server
	ln  net.Listener
}

// ServerOption customizes the mux before routes are mounted
type ServerOption func(*chi.Mux)

// WithMiddleware appends mw to the root mux
func WithMiddleware(mw ...func(stdhttp.Handler) stdhttp.Handler) ServerOption {
	return func(m *chi.Mux) { m.Use(mw...) }
}

// NewServer builds a server for addr with request ids, panic recovery and access logs installed
func NewServer(addr string, opts ...ServerOption) *Server {
	m := chi.NewRouter()
	m.Use(middleware.RequestID(), middleware.RecoverJSON, middleware.AccessLog(middleware.AccessLogOptions{Slow: time.Second}))
	for _, o := range opts {
		o(m)
	}
	return &Server{
		mux: m,
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router returns the Router seam over the mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Addr returns the bound address once Listen succeeded, the configured one before
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Listen binds the socket so callers learn about port conflicts before serving
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Run serves until ctx is done, then shuts down with a five second grace period
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	logger.Named("http").Info().Str("addr", s.Addr()).Msg("status server listening")

	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(s.ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(sctx)
	}
}
