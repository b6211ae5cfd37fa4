// Package mqttsink publishes device readings to an MQTT broker.
package mqttsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/mqtt"
	"github.com/nerrad567/aha-recorder/internal/recorder"
)

// Name is the backend and section name.
const Name = "MQTT"

// publisher is the part of *mqtt.Client the backend uses.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Topics() mqtt.Topics
	HealthCheck(ctx context.Context) error
	Close() error
}

// State is the payload published per device on its state topic.
type State struct {
	Timestamp int64 `json:"timestamp"`
	device.Device
}

// Summary is the payload published on the snapshot topic.
type Summary struct {
	Timestamp   int64    `json:"timestamp"`
	Devices     int      `json:"devices"`
	Present     int      `json:"present"`
	Identifiers []string `json:"identifiers"`
}

// Backend publishes one retained state message per device and a summary per tick.
type Backend struct {
	client publisher
	qos    byte
	retain bool
}

// Kind returns the MQTT backend type.
func Kind() recorder.Kind {
	return recorder.Kind{
		Name:     Name,
		Register: recorder.Section(Name, config.DefaultMQTTConfig()),
		Open: func(s *config.Store, logger *logging.Logger) (recorder.Backend, error) {
			cfg, err := config.Get[config.MQTTConfig](s, Name)
			if err != nil {
				return nil, err
			}
			return Open(cfg, logger)
		},
	}
}

// Open connects to the broker.
func Open(cfg config.MQTTConfig, logger *logging.Logger) (*Backend, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, err
	}
	client.SetOnDisconnect(func(err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	client.SetOnConnect(func() {
		logger.Debug("mqtt connected")
	})

	logger.Info("connected to mqtt broker", "broker", cfg.Broker, "client_id", client.ClientID(), "prefix", client.Topics().Prefix())
	return newBackend(client, cfg), nil
}

func newBackend(client publisher, cfg config.MQTTConfig) *Backend {
	return &Backend{client: client, qos: byte(cfg.QoS), retain: cfg.Retain}
}

// Log publishes every device of snap, then the summary.
// Publishing continues past failed devices; all failures are returned joined.
func (b *Backend) Log(ctx context.Context, tick time.Time, snap *device.Snapshot) error {
	topics := b.client.Topics()
	summary := Summary{Timestamp: tick.Unix(), Devices: snap.Len(), Identifiers: make([]string, 0, snap.Len())}

	var errs []error
	snap.Each(func(d *device.Device) {
		if ctx.Err() != nil {
			return
		}
		summary.Identifiers = append(summary.Identifiers, d.Identifier)
		if d.Present {
			summary.Present++
		}

		payload, err := json.Marshal(State{Timestamp: tick.Unix(), Device: *d})
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding %s: %w", d.Identifier, err))
			return
		}
		if err := b.client.Publish(topics.DeviceState(d.Identifier), payload, b.qos, b.retain); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", d.Identifier, err))
		}
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := b.client.Publish(topics.Snapshot(), payload, b.qos, b.retain); err != nil {
		errs = append(errs, fmt.Errorf("publishing snapshot: %w", err))
	}
	return errors.Join(errs...)
}

// HealthCheck reports whether the broker connection is up.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.client.HealthCheck(ctx)
}

// Close publishes the offline status and disconnects.
func (b *Backend) Close() error {
	return b.client.Close()
}
