package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for the configuration store.
var (
	// ErrConfigNotFound is returned by Load when the file does not exist.
	ErrConfigNotFound = errors.New("config: file not found")

	// ErrUnknownSection is returned by Get for a section that was never registered.
	ErrUnknownSection = errors.New("config: unknown section")

	// ErrDuplicateSection is returned when a section is registered twice.
	ErrDuplicateSection = errors.New("config: section already registered")

	// ErrSealed is returned when defaults are added after a file was merged.
	ErrSealed = errors.New("config: defaults must be registered before load/refresh")

	// ErrInvalidConfig is returned by Validate methods.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// DecodeError reports that the merged values of a section could not be
// coerced into the section's settings type.
type DecodeError struct {
	Section string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("config: cannot decode section %q: %v", e.Section, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
