// Package tsdbsink records device readings into VictoriaMetrics.
package tsdbsink

import (
	"context"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/tsdb"
	"github.com/nerrad567/aha-recorder/internal/recorder"
)

// Name is the backend and section name.
const Name = "TSDB"

// TSDB queues aha_temperature and aha_energy lines per device and tick.
type TSDB struct {
	client *tsdb.Client
}

// Kind returns the TSDB backend type.
func Kind() recorder.Kind {
	return recorder.Kind{
		Name:     Name,
		Register: recorder.Section(Name, config.DefaultTSDBConfig()),
		Open: func(s *config.Store, logger *logging.Logger) (recorder.Backend, error) {
			cfg, err := config.Get[config.TSDBConfig](s, Name)
			if err != nil {
				return nil, err
			}
			return Open(context.Background(), cfg, logger)
		},
	}
}

// Open connects to VictoriaMetrics. Failed batch writes are logged.
func Open(ctx context.Context, cfg config.TSDBConfig, logger *logging.Logger) (*TSDB, error) {
	client, err := tsdb.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client.SetOnError(func(err error) {
		logger.ErrorChain("tsdb batch write failed", err)
	})

	logger.Info("connected to tsdb", "url", cfg.URL, "batch_size", cfg.BatchSize)
	return &TSDB{client: client}, nil
}

// Log queues the readings of snap. Devices without sensors yield no lines.
func (t *TSDB) Log(_ context.Context, tick time.Time, snap *device.Snapshot) error {
	if !t.client.IsConnected() {
		return tsdb.ErrNotConnected
	}

	snap.Each(func(d *device.Device) {
		if d.Temperature != nil {
			t.client.WriteTemperature(d.Identifier, d.Name, *d.Temperature, tick)
		}
		if d.Powermeter != nil {
			t.client.WriteEnergy(d.Identifier, d.Name, *d.Powermeter, tick)
		}
	})
	return nil
}

// HealthCheck queries the VictoriaMetrics health endpoint.
func (t *TSDB) HealthCheck(ctx context.Context) error {
	return t.client.HealthCheck(ctx)
}

// Close flushes queued lines and stops the client.
func (t *TSDB) Close() error {
	return t.client.Close()
}
