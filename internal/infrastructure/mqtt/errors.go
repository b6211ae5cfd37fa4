package mqtt

import "errors"

// Errors returned by the broker client. Callers match them with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: not connected to broker")
	ErrConnectionFailed = errors.New("mqtt: could not connect to broker")
	ErrPublishFailed    = errors.New("mqtt: publish failed")

	// ErrInvalidQoS rejects anything outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	ErrInvalidTopic  = errors.New("mqtt: empty topic")
	ErrInvalidBroker = errors.New("mqtt: unusable broker url")
)
