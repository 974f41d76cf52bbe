package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server exposes /metrics on a local address. It is optional: the overlay
// only starts it when metrics_addr is configured.
type Server struct {
	listener net.Listener
	server   *http.Server

	closeOnce sync.Once
}

// Start listens on addr and serves the metrics registry in the background.
// Use "127.0.0.1:0" for an OS-assigned port.
func Start(addr string) (*Server, error) {
	Init()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	s := &Server{
		listener: ln,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	go func() {
		if serveErr := s.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[telemetry] metrics server error", "error", serveErr)
		}
	}()

	slog.Info("[telemetry] metrics server started", "addr", s.Addr())
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop shuts the server down. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var stopErr error
	s.closeOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			stopErr = fmt.Errorf("telemetry: shutdown: %w", err)
		}
	})
	return stopErr
}
