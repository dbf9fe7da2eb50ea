// Package mqtt publishes panel telemetry. It never accepts commands.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/interlock-panel/internal/logic"
)

// Topic is the MQTT topic for panel events.
const Topic = "interlock/panel/events"

// TopicSystem is the MQTT topic for lifecycle events and snapshots.
const TopicSystem = "interlock/panel/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a panel event. Errors are reported, never fatal.
	Publish(event logic.Event) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Sender delivers one serialized message.
type Sender interface {
	Send(topic string, qos byte, retained bool, payload []byte) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event (STARTUP, SHUTDOWN, HEARTBEAT, ...).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // shutdown signal, or the cause of an offline will
	RawPayload []byte // pre-formatted snapshot; returned as is when set
	Retained   bool
}

// Payload is the event message body.
type Payload struct {
	Panel EventPayload `json:"panel"`
}

// EventPayload carries one panel event.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Line      string `json:"line,omitempty"`
	State     string `json:"state,omitempty"`
	Source    string `json:"source,omitempty"`
}

// FormatPayload creates the JSON payload for a panel event.
func FormatPayload(event logic.Event) ([]byte, error) {
	return json.Marshal(Payload{
		Panel: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Line:      event.Line,
			State:     event.State,
			Source:    event.Source,
		},
	})
}

// SystemPayload is the body of events that carry no snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// eventMessage and systemMessage map events to wire messages. Events are
// QoS 0; lifecycle messages are QoS 1.
func eventMessage(event logic.Event) (bufferedMsg, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return bufferedMsg{}, err
	}
	return bufferedMsg{topic: Topic, payload: payload}, nil
}

func systemMessage(event SystemEvent) (bufferedMsg, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return bufferedMsg{}, err
	}
	return bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}, nil
}
