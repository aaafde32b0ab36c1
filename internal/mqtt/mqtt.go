// Package mqtt publishes button events, system lifecycle events and UI
// notifications, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// Topic is the MQTT topic for fired button events.
const Topic = "volumio/radio-buttons/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "volumio/radio-buttons/system"

// TopicNotify is the MQTT topic for UI notification toasts.
const TopicNotify = "volumio/radio-buttons/notify"

// Notification levels understood by the toast consumer.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a fired button event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.FiredEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Notify sends a fire-and-forget UI toast.
	Notify(level, title, message string) error

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
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a fired event.
type Payload struct {
	Button ButtonPayload `json:"button"`
}

// ButtonPayload contains the fired event details.
type ButtonPayload struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Trigger   string `json:"trigger"`
	Action    string `json:"action,omitempty"`
	Index     int    `json:"index,omitempty"`
}

// FormatPayload creates the JSON payload for a fired event.
func FormatPayload(event logic.FiredEvent) ([]byte, error) {
	payload := Payload{
		Button: ButtonPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Channel:   string(event.Channel),
			Trigger:   event.TriggerID(),
			Action:    string(event.Action),
			Index:     int(event.Button),
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
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NotifyPayload is the toast message structure.
type NotifyPayload struct {
	Notify NotifyPayloadInner `json:"notify"`
}

// NotifyPayloadInner contains the toast details.
type NotifyPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

// FormatNotifyPayload creates the JSON payload for a toast.
func FormatNotifyPayload(at time.Time, level, title, message string) ([]byte, error) {
	return json.Marshal(NotifyPayload{
		Notify: NotifyPayloadInner{
			Timestamp: at.UTC().Format(time.RFC3339),
			Level:     level,
			Title:     title,
			Message:   message,
		},
	})
}
