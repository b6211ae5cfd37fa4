package tsdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultWriteTimeout   = 5 * time.Second

	defaultBatchSize     = 500
	defaultFlushInterval = 10 * time.Second
)

// Client batches line protocol and posts it to VictoriaMetrics' /write
// endpoint, either when the batch is full or on every flush interval.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	base string
	http *http.Client

	open    atomic.Bool
	pending *batch

	stopLoop  context.CancelFunc
	loopDone  chan struct{}
	closeOnce sync.Once

	errMu   sync.RWMutex
	onError func(err error)
}

// Connect checks that VictoriaMetrics answers /health and starts the
// periodic flusher. Non-positive batch settings fall back to 500 lines and
// 10 seconds.
//
// Parameters:
//   - ctx: Bounds the health check
//   - cfg: The TSDB configuration section
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: Wrapped ErrConnectionFailed
func Connect(ctx context.Context, cfg config.TSDBConfig) (*Client, error) {
	base, err := baseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	size := cfg.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	interval := time.Duration(cfg.FlushInterval) * time.Second
	if interval <= 0 {
		interval = defaultFlushInterval
	}

	c := &Client{
		base:    base,
		http:    &http.Client{Timeout: defaultWriteTimeout},
		pending: newBatch(size),
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := c.HealthCheck(pingCtx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.open.Store(true)

	var loopCtx context.Context
	loopCtx, c.stopLoop = context.WithCancel(context.Background())
	c.loopDone = make(chan struct{})
	go c.flushEvery(loopCtx, interval)

	return c, nil
}

// baseURL validates raw and strips trailing slashes.
func baseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func (c *Client) flushEvery(ctx context.Context, interval time.Duration) {
	defer close(c.loopDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the flusher and sends what is still batched. Closing twice
// or closing a nil client is a no-op.
//
// Returns:
//   - error: Always nil; a failed final flush goes to the error callback
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		c.open.Store(false)
		c.stopLoop()
		<-c.loopDone
		c.Flush()
	})
	return nil
}

// HealthCheck performs GET /health.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if the server answered 200
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}
	if err := c.send(req, http.StatusOK); err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}
	return nil
}

// IsConnected reports whether Connect succeeded and Close was not called.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// SetOnError sets the callback receiving batches that could not be written.
func (c *Client) SetOnError(callback func(err error)) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.onError = callback
}

// addLine queues one line and flushes synchronously when the batch is full.
// Lines are dropped after Close.
func (c *Client) addLine(line string) {
	if !c.IsConnected() {
		return
	}
	if c.pending.add(line) {
		c.Flush()
	}
}

// Flush posts the current batch to /write. A failure drops the batch and
// is reported through the error callback.
func (c *Client) Flush() {
	body, lines := c.pending.take()
	if lines == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/write", bytes.NewReader(body))
	if err == nil {
		req.Header.Set("Content-Type", "text/plain")
		err = c.send(req, http.StatusNoContent, http.StatusOK)
	}
	if err != nil {
		c.reportError(fmt.Errorf("%w: %d lines dropped: %w", ErrWriteFailed, lines, err))
	}
}

// send performs req, drains the body and checks the status against ok.
func (c *Client) send(req *http.Request, ok ...int) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	//nolint:errcheck // draining for connection reuse
	io.Copy(io.Discard, resp.Body)

	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
}

func (c *Client) reportError(err error) {
	c.errMu.RLock()
	callback := c.onError
	c.errMu.RUnlock()

	if callback != nil {
		callback(err)
	}
}
