// Package lifecycle starts and stops the two input channels from the current
// bindings. It exclusively owns the armed interrupt lines and the open
// expander bus handle.
package lifecycle

import (
	"log"
	"sync"

	"github.com/sweeney/radio-buttons/internal/binding"
	"github.com/sweeney/radio-buttons/internal/expander"
	"github.com/sweeney/radio-buttons/internal/gpio"
	"github.com/sweeney/radio-buttons/internal/logic"
)

// State is a channel's lifecycle state.
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
)

// Config wires a Manager to its hardware and downstream sink.
type Config struct {
	Lines gpio.LineOpener
	Buses expander.BusOpener
	BusID string

	// Sink receives every fired event. It runs on a detector goroutine and
	// must not call back into the Manager.
	Sink func(logic.FiredEvent)

	// OnState, if set, is called on every channel state change.
	OnState func(ch logic.Channel, s State)

	// PollerOptions are passed to every expander.StartPoller call.
	PollerOptions []expander.Option
}

// Manager runs the Stopped -> Starting -> Running -> Stopped state machine
// for both channels. A failure in one channel never affects the other.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	watchers []*gpio.Watcher
	poller   *expander.Poller
	states   map[logic.Channel]State
}

// New creates a Manager with both channels stopped.
func New(cfg Config) *Manager {
	if cfg.BusID == "" {
		cfg.BusID = expander.DefaultBus
	}
	return &Manager{
		cfg: cfg,
		states: map[logic.Channel]State{
			logic.ChannelInterrupt: StateStopped,
			logic.ChannelRegister:  StateStopped,
		},
	}
}

// Start fully stops anything running, then starts each channel enabled in b.
// Hardware failures are logged and leave that channel stopped; there is no
// retry until the next Start.
func (m *Manager) Start(b binding.Bindings) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	m.startInterruptLocked(b.EnabledTriggers())
	m.startRegisterLocked(b.Expander)
}

// Stop releases every owned resource. Safe to call at any time and repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// State returns the current state of ch.
func (m *Manager) State(ch logic.Channel) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[ch]
}

// ArmedPins returns the interrupt lines currently armed.
func (m *Manager) ArmedPins() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	pins := make([]int, 0, len(m.watchers))
	for _, w := range m.watchers {
		pins = append(pins, w.Pin())
	}
	return pins
}

// ReadErrors returns the failed poll cycles of the running expander channel.
func (m *Manager) ReadErrors() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poller == nil {
		return 0
	}
	return m.poller.ReadErrors()
}

func (m *Manager) setState(ch logic.Channel, s State) {
	if m.states[ch] == s {
		return
	}
	m.states[ch] = s
	log.Printf("lifecycle: %s channel %s", ch, s)
	if m.cfg.OnState != nil {
		m.cfg.OnState(ch, s)
	}
}

func (m *Manager) startInterruptLocked(triggers []binding.TriggerBinding) {
	if len(triggers) == 0 {
		return
	}
	m.setState(logic.ChannelInterrupt, StateStarting)

	for _, t := range triggers {
		w, err := gpio.StartWatcher(m.cfg.Lines, t.Pin, t.Action, m.cfg.Sink)
		if err != nil {
			log.Printf("lifecycle: %s trigger disabled: %v", t.Action, err)
			continue
		}
		log.Printf("lifecycle: %s armed on pin %d", t.Action, t.Pin)
		m.watchers = append(m.watchers, w)
	}

	if len(m.watchers) == 0 {
		m.setState(logic.ChannelInterrupt, StateStopped)
		return
	}
	m.setState(logic.ChannelInterrupt, StateRunning)
}

func (m *Manager) startRegisterLocked(e binding.ExpanderBinding) {
	if !e.Enabled {
		return
	}
	m.setState(logic.ChannelRegister, StateStarting)

	p, err := expander.StartPoller(m.cfg.Buses, m.cfg.BusID, e.Address, m.cfg.Sink, m.cfg.PollerOptions...)
	if err != nil {
		log.Printf("lifecycle: expander disabled: %v", err)
		m.setState(logic.ChannelRegister, StateStopped)
		return
	}
	m.poller = p
	m.setState(logic.ChannelRegister, StateRunning)
}

func (m *Manager) stopLocked() {
	for _, w := range m.watchers {
		if err := w.Stop(); err != nil {
			log.Printf("lifecycle: %v", err)
		}
	}
	m.watchers = nil
	m.setState(logic.ChannelInterrupt, StateStopped)

	if err := m.poller.Stop(); err != nil {
		log.Printf("lifecycle: %v", err)
	}
	m.poller = nil
	m.setState(logic.ChannelRegister, StateStopped)
}
