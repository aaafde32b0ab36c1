// Package binding holds the configured mapping from trigger identity to
// action. It is safe for concurrent use: the lifecycle replaces bindings on
// reconfiguration while detectors and the router read them.
package binding

import (
	"sync"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// TriggerBinding binds an interrupt line to a fixed system action.
type TriggerBinding struct {
	Enabled bool
	Pin     int
	Action  logic.ActionName
}

// ExpanderBinding binds the expander's button inputs to station URIs.
type ExpanderBinding struct {
	Enabled bool
	Address uint16 // 7-bit bus address
	// Targets maps a button to its station URI. Missing or empty means no action.
	Targets map[logic.ButtonIndex]string
}

// Bindings is the full configured mapping for both channels.
type Bindings struct {
	Triggers []TriggerBinding
	Expander ExpanderBinding
}

// Clone returns a deep copy.
func (b Bindings) Clone() Bindings {
	out := Bindings{
		Triggers: append([]TriggerBinding(nil), b.Triggers...),
		Expander: ExpanderBinding{
			Enabled: b.Expander.Enabled,
			Address: b.Expander.Address,
		},
	}
	if b.Expander.Targets != nil {
		out.Expander.Targets = make(map[logic.ButtonIndex]string, len(b.Expander.Targets))
		for k, v := range b.Expander.Targets {
			out.Expander.Targets[k] = v
		}
	}
	return out
}

// EnabledTriggers returns the interrupt bindings that should be armed.
func (b Bindings) EnabledTriggers() []TriggerBinding {
	var out []TriggerBinding
	for _, t := range b.Triggers {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// Store holds the current Bindings behind an RWMutex.
type Store struct {
	mu sync.RWMutex
	b  Bindings
}

// NewStore creates a Store holding a copy of b.
func NewStore(b Bindings) *Store {
	return &Store{b: b.Clone()}
}

// Replace swaps in a copy of b.
func (s *Store) Replace(b Bindings) {
	c := b.Clone()
	s.mu.Lock()
	s.b = c
	s.mu.Unlock()
}

// Snapshot returns a copy of the current bindings.
func (s *Store) Snapshot() Bindings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b.Clone()
}

// Trigger returns the enabled binding for action.
// Disabled bindings are reported as absent.
func (s *Store) Trigger(action logic.ActionName) (TriggerBinding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.b.Triggers {
		if t.Action == action && t.Enabled {
			return t, true
		}
	}
	return TriggerBinding{}, false
}

// Target returns the station URI bound to button idx.
// It reports false when the expander is disabled, idx is out of range, or
// no non-empty URI is bound.
func (s *Store) Target(idx logic.ButtonIndex) (string, bool) {
	if !idx.Valid() {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.b.Expander.Enabled {
		return "", false
	}
	uri := s.b.Expander.Targets[idx]
	return uri, uri != ""
}
