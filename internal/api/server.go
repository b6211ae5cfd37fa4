package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Server serves the latest device snapshot over HTTP and WebSocket.
//
// The server follows the same lifecycle pattern as the infrastructure clients:
//
//	server := api.New(cfg, logger, version)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg     config.WebConfig
	logger  *logging.Logger
	version string
	hub     *Hub

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.RWMutex
	latest *published
}

// published is one snapshot together with the tick it was taken at.
type published struct {
	tick time.Time
	snap *device.Snapshot
}

// New creates a server. Nothing listens until Start is called.
func New(cfg config.WebConfig, logger *logging.Logger, version string) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		version: version,
		hub:     NewHub(logger),
	}
}

// Start binds the listen address and serves in a background goroutine.
//
// Parameters:
//   - ctx: Parent context of the WebSocket hub
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	var hubCtx context.Context
	hubCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(hubCtx)

	s.listener = ln
	s.done = make(chan struct{})
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", err)
		}
	}()

	s.logger.Info("web server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Publish makes snap the latest snapshot and pushes it to every WebSocket
// client.
func (s *Server) Publish(tick time.Time, snap *device.Snapshot) {
	// Broadcasting under the lock keeps a connecting client from receiving
	// an older snapshot after a newer one.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &published{tick: tick, snap: snap}
	s.hub.Broadcast(snapshotMessage(tick, snap))
}

// Latest returns the most recently published snapshot.
func (s *Server) Latest() (time.Time, *device.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return time.Time{}, nil, false
	}
	return s.latest.tick, s.latest.snap, true
}

// Close gracefully shuts down the server.
//
// It disconnects WebSocket clients and waits up to 10 seconds for in-flight
// requests to complete.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("web server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	<-s.done
	return nil
}

// HealthCheck verifies the server is running.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("web health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return ErrNotStarted
	}
	return nil
}
