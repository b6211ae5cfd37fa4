package poller

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
)

// Gateway is the part of *aha.Client the poller uses.
type Gateway interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
	DeviceList(ctx context.Context, sid string) (*device.Snapshot, error)
}

// Dispatcher is the part of *recorder.Dispatcher the poller uses.
type Dispatcher interface {
	Dispatch(tick time.Time, snap *device.Snapshot)
}

// Config holds the login credentials and the tick interval.
type Config struct {
	Username string
	Password string
	Interval time.Duration
}

// Poller runs the authenticate-then-poll loop.
type Poller struct {
	gw      Gateway
	disp    Dispatcher
	cfg     Config
	logger  *logging.Logger
	onError func(error)
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the poller's logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// WithErrorHandler replaces the default fetch error handler, which logs
// the error chain.
func WithErrorHandler(fn func(error)) Option {
	return func(p *Poller) {
		p.onError = fn
	}
}

// New creates a Poller fetching from gw and handing snapshots to disp.
func New(gw Gateway, disp Dispatcher, cfg Config, opts ...Option) *Poller {
	p := &Poller{
		gw:     gw,
		disp:   disp,
		cfg:    cfg,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "poller")
	if p.onError == nil {
		p.onError = func(err error) {
			p.logger.ErrorChain("poll failed", err)
		}
	}
	return p
}

// Run authenticates and then polls until ctx is cancelled.
//
// Parameters:
//   - ctx: Cancelling it stops the loop after the current tick
//
// Returns:
//   - error: The wrapped authentication failure, or nil after cancellation
func (p *Poller) Run(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		return ErrInvalidInterval
	}

	sid, err := p.gw.Authenticate(ctx, p.cfg.Username, p.cfg.Password)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "failed to authenticate")
	}
	p.logger.Info("authenticated", "username", p.cfg.Username, "interval", p.cfg.Interval.String())

	p.tick(ctx, sid, time.Now())

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("polling stopped")
			return nil
		case t := <-ticker.C:
			p.tick(ctx, sid, t)
		}
	}
}

// tick fetches one device list and dispatches it. Failures never end the loop.
func (p *Poller) tick(ctx context.Context, sid string, at time.Time) {
	snap, err := p.gw.DeviceList(ctx, sid)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.onError(errors.Wrap(err, "failed getting device infos"))
		return
	}

	p.logger.Debug("device list fetched", "devices", snap.Len())
	p.disp.Dispatch(at, snap)
}
