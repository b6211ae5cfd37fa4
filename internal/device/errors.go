package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrInvalidField) {
//	    // the gateway sent something unexpected
//	}
var (
	// ErrNotDeviceList is returned when the document root is not <devicelist>.
	ErrNotDeviceList = errors.New("device: document is not a devicelist")

	// ErrInvalidField is returned when a field cannot be converted.
	ErrInvalidField = errors.New("device: invalid field")
)

// FieldError reports which field of which device failed to parse.
type FieldError struct {
	Device string // identifier, empty if it could not be read
	Field  string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("device: field %q = %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("device %q: field %q = %q: %v", e.Device, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidField.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidField
}
