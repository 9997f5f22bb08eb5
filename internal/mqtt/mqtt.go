// Package mqtt publishes state transitions and system events over MQTT.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// Topic is the MQTT topic for state transitions.
const Topic = "embedded/sequencer/transitions"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "embedded/sequencer/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event TransitionEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TransitionEvent is a state transition stamped with wall-clock time.
type TransitionEvent struct {
	Timestamp time.Time
	logic.Transition
}

// SystemEvent represents a system lifecycle event (e.g., startup, status, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "STATUS", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a transition.
type Payload struct {
	Transition TransitionPayload `json:"transition"`
}

// TransitionPayload contains the transition details.
type TransitionPayload struct {
	Timestamp string `json:"timestamp"`
	Tick      uint32 `json:"tick"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message"`
	Fault     bool   `json:"fault"`
	Count     uint32 `json:"count"`
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(event TransitionEvent) ([]byte, error) {
	payload := Payload{
		Transition: TransitionPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Tick:      event.Tick,
			From:      event.From.String(),
			To:        event.To.String(),
			Message:   event.Message,
			Fault:     event.Fault,
			Count:     event.Count,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
// A zero Timestamp is omitted.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes on TopicSystem
// when the connection drops without a clean disconnect.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "connection lost"})
	return data
}
