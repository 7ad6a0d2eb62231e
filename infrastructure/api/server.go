package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server runs the HTTP router as a supervised worker.
type Server struct {
	log    *slog.Logger
	http   *http.Server
	listen func() (net.Listener, error)
}

func NewServer(log *slog.Logger, address string, handler http.Handler) *Server {
	return &Server{
		log: log,
		http: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		listen: func() (net.Listener, error) { return net.Listen("tcp", address) },
	}
}

// Run serves until ctx is done, then drains in-flight requests.
// Hijacked websocket connections are not waited for; the hub closes them.
func (s *Server) Run(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}

	served := make(chan error, 1)
	go func() { served <- s.http.Serve(listener) }()
	s.log.Info("Starting HTTP server", "address", listener.Addr().String(), "at", time.Now().UTC())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("HTTP shutdown incomplete", "error", err)
		}
		<-served
		s.log.Info("HTTP server stopped")
		return nil
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
