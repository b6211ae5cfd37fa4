// Package influx records device readings into InfluxDB v2.
package influx

import (
	"context"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/influxdb"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/recorder"
)

// Name is the backend and section name.
const Name = "InfluxDB"

// writer is the part of *influxdb.Client the backend uses.
type writer interface {
	WriteTemperature(identifier, name string, t device.Temperature, at time.Time)
	WriteEnergy(identifier, name string, p device.Powermeter, at time.Time)
	IsConnected() bool
	HealthCheck(ctx context.Context) error
	Close() error
}

// Backend queues one temperature and one energy point per device and tick.
type Backend struct {
	client writer
}

// Kind returns the InfluxDB backend type.
func Kind() recorder.Kind {
	return recorder.Kind{
		Name:     Name,
		Register: recorder.Section(Name, config.DefaultInfluxDBConfig()),
		Open: func(s *config.Store, logger *logging.Logger) (recorder.Backend, error) {
			cfg, err := config.Get[config.InfluxDBConfig](s, Name)
			if err != nil {
				return nil, err
			}
			return Open(context.Background(), cfg, logger)
		},
	}
}

// Open connects to InfluxDB. Asynchronous write failures are logged.
func Open(ctx context.Context, cfg config.InfluxDBConfig, logger *logging.Logger) (*Backend, error) {
	client, err := influxdb.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client.SetOnError(func(err error) {
		logger.ErrorChain("influxdb write failed", err)
	})

	logger.Info("connected to influxdb", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return &Backend{client: client}, nil
}

// Log queues the readings of snap timestamped with tick.
func (b *Backend) Log(_ context.Context, tick time.Time, snap *device.Snapshot) error {
	if !b.client.IsConnected() {
		return influxdb.ErrNotConnected
	}

	snap.Each(func(d *device.Device) {
		if d.Temperature != nil {
			b.client.WriteTemperature(d.Identifier, d.Name, *d.Temperature, tick)
		}
		if d.Powermeter != nil {
			b.client.WriteEnergy(d.Identifier, d.Name, *d.Powermeter, tick)
		}
	})
	return nil
}

// HealthCheck pings the InfluxDB server.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.client.HealthCheck(ctx)
}

// Close flushes pending points and disconnects.
func (b *Backend) Close() error {
	return b.client.Close()
}
