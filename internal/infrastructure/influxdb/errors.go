package influxdb

import "errors"

var (
	// ErrNotConnected is returned by calls made after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps the cause of a failed Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps batch errors passed to the SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
