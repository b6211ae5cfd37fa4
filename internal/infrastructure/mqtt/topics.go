package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "aha"

// topicEscaper replaces characters that are not allowed in a topic level.
var topicEscaper = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// Topics builds topic names below a prefix.
//
//	topics := mqtt.NewTopics("aha")
//	topics.DeviceState("08761 0000434")
//	// Returns: "aha/device/08761 0000434/state"
type Topics struct {
	prefix string
}

// NewTopics returns builders for prefix. Surrounding slashes are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// Status returns the retained online/offline topic, also used as LWT.
//
// Example: aha/status
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// DeviceState returns the per-device reading topic.
//
// Example: aha/device/08761 0000434/state
func (t Topics) DeviceState(identifier string) string {
	return fmt.Sprintf("%s/device/%s/state", t.prefix, topicEscaper.Replace(identifier))
}

// Snapshot returns the per-tick summary topic.
//
// Example: aha/snapshot
func (t Topics) Snapshot() string {
	return t.prefix + "/snapshot"
}
