package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "kaleido"

// Topics builds topic names under one prefix.
//
//	topics := mqtt.NewTopics("kaleido")
//	topics.NodeStatus()              // "kaleido/node/status"
//	topics.UIEvent("trigger-shutdown") // "kaleido/ui/trigger-shutdown"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Surrounding slashes are trimmed.
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

// SystemStatus is the retained daemon online/offline topic, also used as the
// Last Will topic.
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// NodeStatus is the retained topic carrying the latest node status transition.
func (t Topics) NodeStatus() string {
	return t.prefix + "/node/status"
}

// UIEvent is the topic mirroring a UI event such as "trigger-shutdown".
func (t Topics) UIEvent(event string) string {
	return t.prefix + "/ui/" + event
}

// AllUIEvents matches every UI event topic.
func (t Topics) AllUIEvents() string {
	return t.prefix + "/ui/+"
}
