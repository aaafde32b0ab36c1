package status

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Interrupt     string         `json:"interrupt"`
	Register      string         `json:"register"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        map[string]int `json:"event_counts"`
	LastEvent     *EventJSON     `json:"last_event,omitempty"`
	ReadErrors    int64          `json:"read_errors"`
	Triggers      []TriggerJSON  `json:"triggers"`
	Expander      ExpanderJSON   `json:"expander"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// EventJSON is the JSON representation of a fired event.
type EventJSON struct {
	Trigger   string `json:"trigger"`
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
}

// TriggerJSON is the JSON representation of an interrupt binding.
type TriggerJSON struct {
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
	Pin     int    `json:"pin"`
}

// ExpanderJSON is the JSON representation of the expander binding.
type ExpanderJSON struct {
	Enabled  bool              `json:"enabled"`
	Address  string            `json:"address"`
	Stations map[string]string `json:"stations"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	ConfigPath  string `json:"config_path"`
	Chip        string `json:"chip"`
	Bus         string `json:"bus"`
}

// Station is one button-to-URI row, in button order.
type Station struct {
	Button logic.ButtonIndex
	URI    string
}

// Stations returns the bound stations sorted by button.
func (s Snapshot) Stations() []Station {
	out := make([]Station, 0, len(s.Bindings.Expander.Targets))
	for idx, uri := range s.Bindings.Expander.Targets {
		out = append(out, Station{Button: idx, URI: uri})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Button < out[j].Button })
	return out
}

// FormatAddress renders a bus address as "0x20".
func FormatAddress(addr uint16) string {
	return fmt.Sprintf("0x%02X", addr)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Interrupt:     snap.ChannelState(logic.ChannelInterrupt),
		Register:      snap.ChannelState(logic.ChannelRegister),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        map[string]int(snap.Counts.Clone()),
		ReadErrors:    snap.ReadErrors,
		Triggers:      []TriggerJSON{},
		Expander: ExpanderJSON{
			Enabled:  snap.Bindings.Expander.Enabled,
			Address:  FormatAddress(snap.Bindings.Expander.Address),
			Stations: make(map[string]string),
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			ConfigPath:  snap.Config.ConfigPath,
			Chip:        snap.Config.Chip,
			Bus:         snap.Config.Bus,
		},
	}

	if snap.LastEvent != nil {
		inner.LastEvent = &EventJSON{
			Trigger:   snap.LastEvent.TriggerID(),
			Channel:   string(snap.LastEvent.Channel),
			Timestamp: snap.LastEvent.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	for _, tb := range snap.Bindings.Triggers {
		inner.Triggers = append(inner.Triggers, TriggerJSON{
			Action:  string(tb.Action),
			Enabled: tb.Enabled,
			Pin:     tb.Pin,
		})
	}
	for _, st := range snap.Stations() {
		inner.Expander.Stations[strconv.Itoa(int(st.Button))] = st.URI
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
