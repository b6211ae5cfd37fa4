package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
)

// Client publishes readings through a paho connection that reconnects on
// its own. A retained "online"/"offline" message on Topics.Status tracks
// whether the recorder is attached.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	id     string
	topics Topics

	up atomic.Bool

	hooksMu sync.RWMutex
	hooks   connectionHooks
}

// connectionHooks are optional observers of connection changes.
type connectionHooks struct {
	connected func()
	lost      func(err error)
}

// Connect validates cfg, dials the broker and waits for the CONNACK.
// The last will is registered before dialling so an unclean drop flips
// the status topic to "offline".
//
// Parameters:
//   - cfg: The MQTT configuration section
//
// Returns:
//   - *Client: Connected client
//   - error: ErrInvalidQoS, ErrInvalidBroker or wrapped ErrConnectionFailed
func Connect(cfg config.MQTTConfig) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	c := &Client{
		cfg:    cfg,
		id:     clientID(cfg),
		topics: NewTopics(cfg.TopicPrefix),
	}

	opts, err := buildClientOptions(cfg, c.id, c.topics)
	if err != nil {
		return nil, err
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onDown(err) })

	c.client = pahomqtt.NewClient(opts)

	wait := connectTimeout(cfg)
	if err := await(c.client.Connect(), wait); err != nil {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// paho calls the connect handler on its own goroutine, possibly later.
	c.up.Store(true)
	return c, nil
}

// await waits up to d for tok and returns its error.
func await(tok pahomqtt.Token, d time.Duration) error {
	if !tok.WaitTimeout(d) {
		return fmt.Errorf("no acknowledgement within %v", d)
	}
	return tok.Error()
}

// ClientID returns the ID presented to the broker.
func (c *Client) ClientID() string {
	return c.id
}

// Topics returns the topic builders for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

func (c *Client) onUp() {
	c.up.Store(true)
	c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, statusOnline)

	c.hooksMu.RLock()
	fn := c.hooks.connected
	c.hooksMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) onDown(err error) {
	c.up.Store(false)

	c.hooksMu.RLock()
	fn := c.hooks.lost
	c.hooksMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Close marks the recorder offline and disconnects. Closing twice or
// closing a nil client is fine.
//
// Returns:
//   - error: Always nil
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		//nolint:errcheck // best effort, the last will covers a lost offline message
		await(c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, statusOffline), defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.up.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while paho is reconnecting.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: nil if connected
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether both our state and paho's say connected.
func (c *Client) IsConnected() bool {
	return c.up.Load() && c.client.IsConnected()
}

// SetOnConnect registers fn for the first connect and every reconnect.
func (c *Client) SetOnConnect(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.hooks.connected = fn
}

// SetOnDisconnect registers fn for lost connections.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.hooks.lost = fn
}
