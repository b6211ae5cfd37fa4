package poller

import "errors"

// ErrInvalidInterval is returned by Run for a non-positive interval.
var ErrInvalidInterval = errors.New("poller: interval must be positive")
