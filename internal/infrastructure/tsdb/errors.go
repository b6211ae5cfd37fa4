package tsdb

import "errors"

// Sentinel errors of the VictoriaMetrics client, matched with errors.Is.
var (
	// ErrNotConnected is returned once the client has been closed.
	ErrNotConnected = errors.New("tsdb: not connected")

	// ErrConnectionFailed wraps every Connect failure.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrWriteFailed is delivered to the error callback when a batch is lost.
	ErrWriteFailed = errors.New("tsdb: write failed")

	// ErrUnexpectedStatus is wrapped when the server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("tsdb: unexpected HTTP status")
)
