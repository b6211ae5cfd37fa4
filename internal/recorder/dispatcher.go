package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
)

// slot is one enabled backend with its exclusive-access lock.
type slot struct {
	name    string
	mu      sync.Mutex
	backend Backend
}

// Dispatcher holds the enabled backends for the process lifetime.
//
// Thread Safety: All methods may be called from any goroutine. Dispatch
// after Close is a no-op.
type Dispatcher struct {
	slots   []*slot
	logger  *logging.Logger
	onError func(error)
	ctx     context.Context

	// mu orders wg.Add in Dispatch against wg.Wait in Close.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger handed to backends and used for reporting.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithErrorHandler replaces the default error handler, which logs.
// The handler is called from dispatch goroutines with a *BackendError.
func WithErrorHandler(fn func(error)) Option {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// WithContext sets the context passed to every Log call.
func WithContext(ctx context.Context) Option {
	return func(d *Dispatcher) {
		d.ctx = ctx
	}
}

// New opens every kind whose name is listed in enabled.
//
// Kinds not listed are never opened and their settings are never read.
// Backends are kept in the order of kinds.
//
// Parameters:
//   - store: Configuration store the kinds registered with
//   - enabled: Backend names from Base.backends (case-sensitive)
//   - kinds: All known backend types
//
// Returns:
//   - *Dispatcher: Ready to dispatch
//   - error: *UnknownBackendError for a name matching no kind, or the
//     first Open failure (already opened backends are closed)
func New(store *config.Store, enabled []string, kinds []Kind, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logging.Default(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "recorder")
	if d.onError == nil {
		d.onError = d.logError
	}

	known := KindNames(kinds)
	for _, name := range enabled {
		if !slices.Contains(known, name) {
			return nil, &UnknownBackendError{Name: name, Known: known}
		}
	}

	for _, k := range kinds {
		if !slices.Contains(enabled, k.Name) {
			continue
		}

		b, err := k.Open(store, d.logger.With("backend", k.Name))
		if err != nil {
			d.closeBackends() //nolint:errcheck // reporting the open failure instead
			return nil, fmt.Errorf("opening backend %s: %w", k.Name, err)
		}
		d.slots = append(d.slots, &slot{name: k.Name, backend: b})
		d.logger.Info("backend enabled", "backend", k.Name)
	}

	return d, nil
}

// Names returns the enabled backend names.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.slots))
	for i, s := range d.slots {
		names[i] = s.name
	}
	return names
}

// Dispatch hands snap to every enabled backend, each on its own goroutine,
// and returns without waiting.
func (d *Dispatcher) Dispatch(tick time.Time, snap *device.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	for _, s := range d.slots {
		d.wg.Add(1)
		go d.run(s, tick, snap)
	}
}

func (d *Dispatcher) run(s *slot, tick time.Time, snap *device.Snapshot) {
	defer d.wg.Done()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := d.logSafely(s, tick, snap); err != nil {
		d.onError(&BackendError{Backend: s.name, Err: err})
	}
}

// logSafely calls Log and turns a panic into an error.
func (d *Dispatcher) logSafely(s *slot, tick time.Time, snap *device.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBackendPanic, r)
		}
	}()
	return s.backend.Log(d.ctx, tick, snap)
}

func (d *Dispatcher) logError(err error) {
	backend := ""
	if be, ok := err.(*BackendError); ok {
		backend = be.Backend
		err = be.Err
	}
	d.logger.ErrorChain("backend failed to record snapshot", err, "backend", backend)
}

// HealthCheck asks every enabled backend implementing HealthChecker
// whether its connection is usable. Failures of all backends are joined,
// each naming its backend.
func (d *Dispatcher) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, s := range d.slots {
		hc, ok := s.backend.(HealthChecker)
		if !ok {
			continue
		}
		if err := hc.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("backend %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every dispatched Log call has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting snapshots, waits for in-flight work and closes
// every backend implementing io.Closer.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	return d.closeBackends()
}

func (d *Dispatcher) closeBackends() error {
	var g errgroup.Group
	for _, s := range d.slots {
		closer, ok := s.backend.(io.Closer)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := closer.Close(); err != nil {
				return fmt.Errorf("closing backend %s: %w", s.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
