package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Publisher is the part of Client the event mirror needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// uiEvent is the JSON body of a mirrored UI event.
type uiEvent struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// EventMirror republishes UI and node events to the broker.
// It satisfies shutdown.Emitter.
type EventMirror struct {
	pub    Publisher
	topics Topics
	qos    byte
}

// NewEventMirror creates a mirror publishing through pub under topics.
func NewEventMirror(pub Publisher, topics Topics, qos byte) *EventMirror {
	return &EventMirror{pub: pub, topics: topics, qos: qos}
}

// Emit publishes a UI event, not retained.
func (m *EventMirror) Emit(event, message string) error {
	payload, err := json.Marshal(uiEvent{
		Event:     event,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	return m.pub.Publish(m.topics.UIEvent(event), payload, m.qos, false)
}

// PublishNodeStatus publishes v as the retained node status.
func (m *EventMirror) PublishNodeStatus(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding node status: %w", err)
	}
	return m.pub.Publish(m.topics.NodeStatus(), payload, m.qos, true)
}
