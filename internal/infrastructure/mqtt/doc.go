// Package mqtt provides the MQTT broker connection used to publish device
// readings.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Topics
//
// All topics live below a configurable prefix (default "aha"):
//
//	aha/status                      online/offline, retained, LWT
//	aha/device/{identifier}/state   one JSON document per device and tick
//	aha/snapshot                    summary of the last tick
//
// Identifiers contain spaces ("08761 0000434"); they are published as-is
// apart from the MQTT wildcard characters, which are replaced.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().DeviceState("08761 0000434")
//	err = client.Publish(topic, payload, 1, true)
package mqtt
