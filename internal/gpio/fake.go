package gpio

import (
	"errors"
	"sync"
	"time"
)

// FakeLineOpener is a test double that hands out in-memory lines.
// Edges are injected with Rise, which applies the requested debounce the way
// the kernel driver would: the first edge is delivered, and any further edge
// inside the debounce window after it is swallowed.
type FakeLineOpener struct {
	mu sync.Mutex

	// OpenErrors, if set for a pin, is returned by OpenRisingEdge.
	OpenErrors map[int]error

	// Opened records every successfully opened pin, in order.
	Opened []int

	lines map[int]*FakeLine
}

// FakeLine is an armed line handed out by FakeLineOpener.
type FakeLine struct {
	Pin      int
	Debounce time.Duration

	owner      *FakeLineOpener
	edges      chan<- Edge
	lastEdge   time.Time
	fired      bool
	CloseCount int
}

// ErrLineBusy is returned when a pin is opened twice without closing.
var ErrLineBusy = errors.New("line busy")

// NewFakeLineOpener creates an opener with no open lines.
func NewFakeLineOpener() *FakeLineOpener {
	return &FakeLineOpener{
		OpenErrors: make(map[int]error),
		lines:      make(map[int]*FakeLine),
	}
}

// OpenRisingEdge arms a fake line.
func (f *FakeLineOpener) OpenRisingEdge(pin int, debounce time.Duration, edges chan<- Edge) (Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.OpenErrors[pin]; err != nil {
		return nil, err
	}
	if _, busy := f.lines[pin]; busy {
		return nil, ErrLineBusy
	}

	l := &FakeLine{Pin: pin, Debounce: debounce, owner: f, edges: edges}
	f.lines[pin] = l
	f.Opened = append(f.Opened, pin)
	return l, nil
}

// Rise simulates a rising edge on pin at the given time.
// It reports whether the edge survived debounce and was delivered.
func (f *FakeLineOpener) Rise(pin int, at time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.lines[pin]
	if !ok {
		return false
	}
	if l.fired && at.Sub(l.lastEdge) < l.Debounce {
		return false
	}
	l.fired = true
	l.lastEdge = at
	return deliver(l.edges, Edge{Pin: pin, Time: at})
}

// IsOpen reports whether pin is currently claimed.
func (f *FakeLineOpener) IsOpen(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.lines[pin]
	return ok
}

// Line returns the currently open line for pin, or nil.
func (f *FakeLineOpener) Line(pin int) *FakeLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[pin]
}

// Close releases the line.
func (l *FakeLine) Close() error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()

	l.CloseCount++
	if l.owner.lines[l.Pin] == l {
		delete(l.owner.lines, l.Pin)
	}
	return nil
}
