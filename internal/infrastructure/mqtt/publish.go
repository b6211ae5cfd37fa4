package mqtt

import "fmt"

// maxPayloadSize bounds a single message (1 MiB).
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker acknowledgement
// required by qos.
//
// Parameters:
//   - topic: e.g. "aha/device/08761 0000434/state"
//   - payload: Message body, at most 1 MiB
//   - qos: 0, 1 or 2
//   - retained: Whether the broker keeps the message for late subscribers
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or wrapped ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := await(c.client.Publish(topic, qos, retained, payload), defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

func validatePublish(topic string, payload []byte, qos byte) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload, limit is %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}
