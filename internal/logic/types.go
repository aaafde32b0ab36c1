// Package logic contains the pure domain model for turning button activity
// into application actions.
// This package has NO external dependencies (no GPIO, I2C, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Channel identifies which hardware input path produced an event.
type Channel string

const (
	ChannelInterrupt Channel = "INTERRUPT"
	ChannelRegister  Channel = "REGISTER"
)

// ActionName names a fixed system action bound to an interrupt trigger.
type ActionName string

const (
	ActionShutdown ActionName = "shutdown"
)

// Actions lists every action an interrupt trigger can be bound to.
var Actions = []ActionName{ActionShutdown}

// ButtonIndex is the 1-based number of an expander button (1..MaxButtons).
type ButtonIndex int

// MaxButtons is the number of expander inputs mapped to buttons (P0..P9).
const MaxButtons = 10

// Valid reports whether i is within 1..MaxButtons.
func (i ButtonIndex) Valid() bool {
	return i >= 1 && i <= MaxButtons
}

// FiredEvent is one accepted button activation. It is never stored.
type FiredEvent struct {
	Channel   Channel
	Action    ActionName  // set for ChannelInterrupt
	Button    ButtonIndex // set for ChannelRegister
	Timestamp time.Time
}

// TriggerID returns a stable identifier for the trigger that fired,
// e.g. "shutdown" or "button3".
func (e FiredEvent) TriggerID() string {
	if e.Channel == ChannelInterrupt {
		return string(e.Action)
	}
	return fmt.Sprintf("button%d", e.Button)
}

// HardwareOpenError reports that a line or bus could not be claimed.
// The channel that hit it stays stopped until reconfigured.
type HardwareOpenError struct {
	Channel  Channel
	Resource string // e.g. "gpio pin 3", "i2c bus 1 addr 0x20"
	Err      error
}

func (e *HardwareOpenError) Error() string {
	return fmt.Sprintf("open %s (%s): %v", e.Resource, e.Channel, e.Err)
}

func (e *HardwareOpenError) Unwrap() error {
	return e.Err
}

// EventCounts tracks the number of fired events per trigger since startup.
type EventCounts map[string]int

// Clone returns an independent copy.
func (c EventCounts) Clone() EventCounts {
	out := make(EventCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
