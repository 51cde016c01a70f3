// Package mqtt provides MQTT publishing with abstraction for testing.
// Publishing is one-way: nothing received from the broker reaches the lock.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/keypad-lock/internal/lock"
)

// Topic is the MQTT topic for access events.
const Topic = "access/keypad-lock/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "access/keypad-lock/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an access event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event lock.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Access AccessPayload `json:"access"`
}

// AccessPayload contains the access event details. The entered code is
// never published, only its length.
type AccessPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Length    int    `json:"length"`
}

// FormatPayload creates the JSON payload for an access event.
func FormatPayload(event lock.Event) ([]byte, error) {
	payload := Payload{
		Access: AccessPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Length:    event.Length,
		},
	}
	return json.Marshal(payload)
}

// ShouldPublish reports whether an event is worth sending. Individual key
// presses are not published.
func ShouldPublish(event lock.Event) bool {
	return event.Type.IsSubmit() || event.Type == lock.EventReset
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
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
// A zero timestamp is omitted.
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

// WillPayload is the retained last-will message the broker publishes if the
// controller drops off without a clean shutdown.
func WillPayload() []byte {
	payload, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "MQTT_DISCONNECT"})
	return payload
}
