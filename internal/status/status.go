// Package status provides a thread-safe status tracker for the radio-buttons
// daemon. It is read by the HTTP handlers and the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/radio-buttons/internal/binding"
	"github.com/sweeney/radio-buttons/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	ConfigPath  string
	Chip        string
	Bus         string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; maps are copied and safe to use after the lock is released.
type Snapshot struct {
	Channels      map[logic.Channel]string // lifecycle state per channel
	Bindings      binding.Bindings
	Counts        logic.EventCounts
	LastEvent     *logic.FiredEvent
	ReadErrors    int64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// ChannelState returns the state of ch, or "UNKNOWN" if it was never reported.
func (s Snapshot) ChannelState(ch logic.Channel) string {
	if st, ok := s.Channels[ch]; ok && st != "" {
		return st
	}
	return "UNKNOWN"
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu         sync.RWMutex
	snap       Snapshot
	readErrors func() int64
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Channels:  make(map[logic.Channel]string),
			Counts:    make(logic.EventCounts),
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetChannelState records a channel's lifecycle state.
func (t *Tracker) SetChannelState(ch logic.Channel, state string) {
	t.mu.Lock()
	t.snap.Channels[ch] = state
	t.mu.Unlock()
}

// SetBindings records the bindings currently in force.
func (t *Tracker) SetBindings(b binding.Bindings) {
	b = b.Clone()
	t.mu.Lock()
	t.snap.Bindings = b
	t.mu.Unlock()
}

// Record counts a fired event and remembers it as the most recent.
func (t *Tracker) Record(ev logic.FiredEvent) {
	t.mu.Lock()
	t.snap.Counts[ev.TriggerID()]++
	t.snap.LastEvent = &ev
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetReadErrorSource registers fn as the source of the expander read error
// count. It is queried on every Snapshot.
func (t *Tracker) SetReadErrorSource(fn func() int64) {
	t.mu.Lock()
	t.readErrors = fn
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = make(map[logic.Channel]string, len(t.snap.Channels))
	for k, v := range t.snap.Channels {
		s.Channels[k] = v
	}
	s.Counts = t.snap.Counts.Clone()
	s.Bindings = t.snap.Bindings.Clone()
	if t.snap.LastEvent != nil {
		ev := *t.snap.LastEvent
		s.LastEvent = &ev
	}
	readErrors := t.readErrors
	t.mu.RUnlock()

	if readErrors != nil {
		s.ReadErrors = readErrors()
	}
	s.Now = time.Now()
	return s
}
