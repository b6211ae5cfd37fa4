package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

var errUnhealthy = errors.New("server reports unhealthy")

// Client queues points on the non-blocking v2 write API. The library
// batches them and reports failed batches asynchronously.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	closed atomic.Bool

	errMu   sync.RWMutex
	onError func(err error)
}

// Connect builds the client and requires a successful ping before
// returning it.
//
// Parameters:
//   - ctx: Bounds the ping, which is capped at 10s
//   - cfg: The InfluxDB configuration section
//
// Returns:
//   - *Client: Connected client
//   - error: Wrapped ErrConnectionFailed
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := ping(pingCtx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.forwardErrors()

	return c, nil
}

// writeOptions applies the batch settings, substituting defaults for
// non-positive values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	size := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		size = uint(cfg.BatchSize)
	}
	interval := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		interval = time.Duration(cfg.FlushInterval) * time.Second
	}

	// #nosec G115 -- interval is positive and far below uint range
	return influxdb2.DefaultOptions().
		SetBatchSize(size).
		SetFlushInterval(uint(interval.Milliseconds()))
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return errUnhealthy
	}
	return nil
}

// forwardErrors runs until the write API closes its error channel.
func (c *Client) forwardErrors() {
	for err := range c.writeAPI.Errors() {
		c.errMu.RLock()
		fn := c.onError
		c.errMu.RUnlock()

		if fn != nil {
			fn(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(fn func(err error)) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.onError = fn
}

// IsConnected reports whether Close has not been called yet.
func (c *Client) IsConnected() bool {
	return !c.closed.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush sends queued points now. No-op after Close.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close flushes queued points and releases the client. Only the first
// call has an effect.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
