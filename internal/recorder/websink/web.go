// Package websink serves the latest snapshot over HTTP and pushes every
// new one to WebSocket clients.
package websink

import (
	"context"
	"time"

	"github.com/nerrad567/aha-recorder/internal/api"
	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/recorder"
)

// Name is the backend and section name.
const Name = "Web"

// server is the part of *api.Server the backend uses.
type server interface {
	Publish(tick time.Time, snap *device.Snapshot)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Web hands every snapshot to the HTTP server.
type Web struct {
	srv server
}

// Kind returns the Web backend type. version is reported by the health
// endpoint.
func Kind(version string) recorder.Kind {
	return recorder.Kind{
		Name:     Name,
		Register: recorder.Section(Name, config.DefaultWebConfig()),
		Open: func(s *config.Store, logger *logging.Logger) (recorder.Backend, error) {
			cfg, err := config.Get[config.WebConfig](s, Name)
			if err != nil {
				return nil, err
			}
			return Open(context.Background(), cfg, logger, version)
		},
	}
}

// Open starts the HTTP server on cfg.Listen.
func Open(ctx context.Context, cfg config.WebConfig, logger *logging.Logger, version string) (*Web, error) {
	srv := api.New(cfg, logger, version)
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	return &Web{srv: srv}, nil
}

// Log publishes snap. It cannot fail.
func (w *Web) Log(ctx context.Context, tick time.Time, snap *device.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.srv.Publish(tick, snap)
	return nil
}

// HealthCheck verifies the server is running.
func (w *Web) HealthCheck(ctx context.Context) error {
	return w.srv.HealthCheck(ctx)
}

// Close shuts the server down.
func (w *Web) Close() error {
	return w.srv.Close()
}
