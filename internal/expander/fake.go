package expander

import (
	"errors"
	"sync"
	"time"
)

// FakeBus is a test double that returns scripted register samples.
type FakeBus struct {
	mu sync.Mutex

	// Samples contains scripted register values. Each successful read
	// consumes the next sample; once exhausted the last one repeats.
	Samples []uint16

	// Errors maps a read number (0-based, counting every read) to an error.
	// A failed read does not consume a sample.
	Errors map[int]error

	// Delay, if set, is slept inside every read.
	Delay time.Duration

	index       int
	reads       int
	inFlight    int
	maxInFlight int
	closeCount  int
	lastAddr    uint16
	lastReg     byte
}

// NewFakeBus creates a FakeBus with the given samples.
func NewFakeBus(samples ...uint16) *FakeBus {
	return &FakeBus{Samples: samples, Errors: make(map[int]error)}
}

// ReadBlock returns the next scripted sample, low byte first.
func (b *FakeBus) ReadBlock(addr uint16, reg byte, buf []byte) error {
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	n := b.reads
	b.reads++
	b.lastAddr = addr
	b.lastReg = reg
	delay := b.Delay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--

	if err := b.Errors[n]; err != nil {
		return err
	}
	if len(b.Samples) == 0 {
		return errors.New("no samples configured")
	}
	if len(buf) != 2 {
		return errors.New("fake bus only serves 2-byte reads")
	}

	s := b.Samples[b.index]
	if b.index < len(b.Samples)-1 {
		b.index++
	}
	buf[0] = byte(s)
	buf[1] = byte(s >> 8)
	return nil
}

// Close marks the bus closed.
func (b *FakeBus) Close() error {
	b.mu.Lock()
	b.closeCount++
	b.mu.Unlock()
	return nil
}

// Reads returns the number of reads attempted.
func (b *FakeBus) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

// MaxInFlight returns the highest number of concurrent reads observed.
func (b *FakeBus) MaxInFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

// CloseCount returns how many times Close was called.
func (b *FakeBus) CloseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCount
}

// LastRead returns the address and register of the most recent read.
func (b *FakeBus) LastRead() (uint16, byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAddr, b.lastReg
}

// FakeBusOpener hands out a single FakeBus.
type FakeBusOpener struct {
	mu sync.Mutex

	Bus *FakeBus

	// OpenError, if set, is returned by OpenBus.
	OpenError error

	opened []string
}

// NewFakeBusOpener creates an opener serving bus.
func NewFakeBusOpener(bus *FakeBus) *FakeBusOpener {
	return &FakeBusOpener{Bus: bus}
}

// OpenBus returns the fake bus.
func (o *FakeBusOpener) OpenBus(id string) (Bus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenError != nil {
		return nil, o.OpenError
	}
	o.opened = append(o.opened, id)
	return o.Bus, nil
}

// Opened returns the bus ids opened so far.
func (o *FakeBusOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}
