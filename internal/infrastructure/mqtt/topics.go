package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "pjinventory"

// Topics builds the topics pjinventory publishes on.
//
//	topics := mqtt.NewTopics("dome")
//	topics.ProjectorEvent("P1") // "dome/event/projector/P1"
type Topics struct {
	prefix string
}

// NewTopics returns a builder rooted at prefix. Surrounding slashes are
// trimmed; an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic.
func (t Topics) Prefix() string {
	return t.prefix
}

// ProjectorEvent returns the topic for lifecycle events of one projector.
func (t Topics) ProjectorEvent(serial string) string {
	return fmt.Sprintf("%s/event/projector/%s", t.prefix, escapeLevel(serial))
}

// BulbEvent returns the topic for lifecycle events of one bulb serial.
func (t Topics) BulbEvent(serial string) string {
	return fmt.Sprintf("%s/event/bulb/%s", t.prefix, escapeLevel(serial))
}

// SystemStatus returns the retained online/offline topic.
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// AllEvents returns a pattern matching every lifecycle event.
func (t Topics) AllEvents() string {
	return t.prefix + "/event/#"
}

// escapeLevel keeps a serial to a single topic level. Wildcards and level
// separators are not allowed in published topic names.
func escapeLevel(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
