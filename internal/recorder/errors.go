package recorder

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recorder package.
var (
	// ErrUnknownBackend is matched by *UnknownBackendError.
	ErrUnknownBackend = errors.New("recorder: unknown backend")

	// ErrBackendPanic is wrapped when a backend panics during Log.
	ErrBackendPanic = errors.New("recorder: backend panicked")
)

// UnknownBackendError is returned when an enabled backend name matches no
// known backend type.
type UnknownBackendError struct {
	Name  string
	Known []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("backend %q does not exist, known backends: %v", e.Name, e.Known)
}

// Is reports whether target is ErrUnknownBackend.
func (e *UnknownBackendError) Is(target error) bool {
	return target == ErrUnknownBackend
}

// BackendError is a failure of one backend's Log call.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
