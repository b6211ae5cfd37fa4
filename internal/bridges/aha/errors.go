package aha

import (
	"errors"
	"fmt"
)

// Domain errors for the aha package.
var (
	// ErrInvalidCredentials is returned when the gateway rejects the login.
	ErrInvalidCredentials = errors.New("aha: authentication failed (wrong username/password)")

	// ErrInsufficientPermission is returned when the session lacks the HomeAuto right.
	ErrInsufficientPermission = errors.New("aha: user has no home automation permission")

	// ErrFetchFailed is returned when a request cannot be completed or decoded.
	ErrFetchFailed = errors.New("aha: fetch failed")

	// ErrUnexpectedStatus is returned for non-2xx HTTP answers.
	ErrUnexpectedStatus = errors.New("aha: unexpected HTTP status")
)

// InvalidCredentialsError carries the lockout the gateway reported with a
// failed login.
type InvalidCredentialsError struct {
	// BlockTime is the number of seconds the gateway refuses further logins.
	BlockTime uint32
}

func (e *InvalidCredentialsError) Error() string {
	if e.BlockTime == 0 {
		return ErrInvalidCredentials.Error()
	}
	return fmt.Sprintf("%s, further logins blocked for %ds", ErrInvalidCredentials, e.BlockTime)
}

// Is reports whether target is ErrInvalidCredentials.
func (e *InvalidCredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
