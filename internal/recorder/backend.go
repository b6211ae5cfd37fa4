package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
)

// Backend records device snapshots.
//
// Log is never called concurrently for the same Backend. Backends holding
// resources may also implement io.Closer; Close is called once on shutdown.
type Backend interface {
	Log(ctx context.Context, tick time.Time, snap *device.Snapshot) error
}

// HealthChecker is implemented by backends holding a connection that can
// be verified, e.g. a broker or database.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Kind describes one backend type.
type Kind struct {
	// Name identifies the backend in Base.backends and names its
	// configuration section.
	Name string

	// Register adds the backend's defaults to the store.
	Register func(s *config.Store) error

	// Open constructs the backend from its merged settings.
	Open func(s *config.Store, logger *logging.Logger) (Backend, error)
}

// Section registers defaults as the configuration of the named backend and
// returns a Register function for its Kind.
func Section[T any](name string, defaults T) func(*config.Store) error {
	return func(s *config.Store) error {
		return config.AddDefaults(s, name, defaults)
	}
}

// RegisterKinds registers the configuration defaults of every kind.
// It must run before the store loads any file.
func RegisterKinds(s *config.Store, kinds []Kind) error {
	for _, k := range kinds {
		if k.Register == nil {
			continue
		}
		if err := k.Register(s); err != nil {
			return fmt.Errorf("registering backend %s: %w", k.Name, err)
		}
	}
	return nil
}

// KindNames returns the names of kinds in order.
func KindNames(kinds []Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Name
	}
	return names
}
