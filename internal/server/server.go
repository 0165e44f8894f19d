// Package server exposes the Extraction Service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/byteowlz/kaextract/internal/logx"
	"github.com/byteowlz/kaextract/internal/model"
)

// Extractor is the service behind /api/extract.
type Extractor interface {
	Extract(ctx context.Context, url string) (*model.Result, error)
}

type Options struct {
	Addr            string
	ResponseTimeout time.Duration
	// AllowOrigin is sent as Access-Control-Allow-Origin; empty means "*".
	AllowOrigin string
}

func DefaultOptions() Options {
	return Options{
		Addr:            ":3000",
		ResponseTimeout: 25 * time.Second,
		AllowOrigin:     "*",
	}
}

// NewHandler wires the routes and the middleware chain.
func NewHandler(ex Extractor, opts Options) http.Handler {
	h := &handlers{ex: ex, timeout: opts.ResponseTimeout, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/extract", h.extract)
	mux.HandleFunc("/health", h.health)

	var handler http.Handler = mux
	handler = corsMiddleware(opts.AllowOrigin, handler)
	handler = requestLoggerMiddleware(handler)
	handler = recoveryMiddleware(handler)
	return handler
}

type Server struct {
	srv *http.Server
	ln  net.Listener
}

func New(ex Extractor, opts Options) *Server {
	writeTimeout := opts.ResponseTimeout + 5*time.Second
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewHandler(ex, opts),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
	}
}

// Listen binds the address so Addr reports the real port before Serve.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	return nil
}

func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Run serves until ctx is done, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.Addr())
		if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logx.FromContext(ctx).Info("http server shutting down")
	return s.Shutdown(context.Background(), shutdownTimeout)
}

func (s *Server) Shutdown(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
