package expander

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// TickerFunc starts a periodic tick source and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Option configures a Poller.
type Option func(*Poller)

// WithTicker replaces the wall-clock ticker. Used by tests.
func WithTicker(f TickerFunc) Option {
	return func(p *Poller) { p.newTicker = f }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// Poller owns one open bus handle and reads the expander every PollInterval.
// Cycles run on a single goroutine, so reads on the handle never overlap;
// ticks that arrive while a read is in progress are dropped by the ticker.
type Poller struct {
	busID string
	addr  uint16
	bus   Bus
	sink  func(logic.FiredEvent)

	now       func() time.Time
	newTicker TickerFunc

	mu       sync.Mutex // guards detector
	detector *logic.Detector

	readErrors atomic.Int64
	quit       chan struct{}
	done       chan struct{}
	once       sync.Once
}

// StartPoller opens the bus, reads the register once to set the baseline,
// and schedules the recurring read. Any failure before the timer is
// scheduled returns a *logic.HardwareOpenError with the bus closed again.
func StartPoller(opener BusOpener, busID string, addr uint16, sink func(logic.FiredEvent), opts ...Option) (*Poller, error) {
	p := &Poller{
		busID:     busID,
		addr:      addr,
		sink:      sink,
		now:       time.Now,
		newTicker: realTicker,
		detector:  logic.NewDetector(),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	resource := fmt.Sprintf("i2c bus %s addr 0x%02X", busID, addr)
	bus, err := opener.OpenBus(busID)
	if err != nil {
		return nil, &logic.HardwareOpenError{Channel: logic.ChannelRegister, Resource: resource, Err: err}
	}

	sample, err := ReadSample(bus, addr)
	if err != nil {
		bus.Close()
		return nil, &logic.HardwareOpenError{Channel: logic.ChannelRegister, Resource: resource, Err: err}
	}
	p.bus = bus
	p.detector.Reset(sample)
	log.Printf("expander: initialized at 0x%02X on bus %s, initial state 0x%04X", addr, busID, sample)

	tick, stopTick := p.newTicker(PollInterval)
	go p.run(tick, stopTick)
	return p, nil
}

func (p *Poller) run(tick <-chan time.Time, stopTick func()) {
	defer close(p.done)
	defer stopTick()
	for {
		select {
		case <-p.quit:
			return
		case <-tick:
			p.poll()
		}
	}
}

// poll runs one read cycle. A failed read leaves the baseline untouched.
func (p *Poller) poll() {
	sample, err := ReadSample(p.bus, p.addr)
	if err != nil {
		p.readErrors.Add(1)
		log.Printf("expander: poll error: %v", err)
		return
	}

	p.mu.Lock()
	last, _ := p.detector.Baseline()
	pressed := p.detector.Process(sample)
	p.mu.Unlock()

	for _, idx := range pressed {
		log.Printf("expander: button %d detected (state %016b, last %016b)", idx, sample, last)
		p.sink(logic.FiredEvent{
			Channel:   logic.ChannelRegister,
			Button:    idx,
			Timestamp: p.now(),
		})
	}
}

// Baseline returns the current baseline sample.
func (p *Poller) Baseline() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, _ := p.detector.Baseline()
	return b
}

// ReadErrors returns the number of failed poll cycles since start.
func (p *Poller) ReadErrors() int64 {
	return p.readErrors.Load()
}

// Address returns the device address being polled.
func (p *Poller) Address() uint16 {
	return p.addr
}

// Stop cancels the recurring read, waits for an in-flight cycle to finish,
// and closes the bus. It is safe on a nil Poller and on repeated calls.
func (p *Poller) Stop() error {
	if p == nil {
		return nil
	}
	var err error
	p.once.Do(func() {
		close(p.quit)
		<-p.done
		if cerr := p.bus.Close(); cerr != nil {
			err = fmt.Errorf("close i2c bus %s: %w", p.busID, cerr)
		}
	})
	return err
}
