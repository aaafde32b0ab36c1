package gpio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// recorder collects events from a watcher goroutine.
type recorder struct {
	mu     sync.Mutex
	events []logic.FiredEvent
	ch     chan logic.FiredEvent
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan logic.FiredEvent, 16)}
}

func (r *recorder) sink(ev logic.FiredEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.ch <- ev
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) wait(t *testing.T) logic.FiredEvent {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return logic.FiredEvent{}
	}
}

func TestWatcherArmsLineWithDebounce(t *testing.T) {
	opener := NewFakeLineOpener()
	rec := newRecorder()

	w, err := StartWatcher(opener, 3, logic.ActionShutdown, rec.sink)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}
	defer w.Stop()

	line := opener.Line(3)
	if line == nil {
		t.Fatal("expected pin 3 to be open")
	}
	if line.Debounce != 250*time.Millisecond {
		t.Errorf("debounce: got %v, want 250ms", line.Debounce)
	}
	if w.Pin() != 3 || w.Action() != logic.ActionShutdown {
		t.Errorf("unexpected watcher identity: pin=%d action=%s", w.Pin(), w.Action())
	}
}

func TestWatcherEmitsOneEventPerEdge(t *testing.T) {
	opener := NewFakeLineOpener()
	rec := newRecorder()

	w, err := StartWatcher(opener, 3, logic.ActionShutdown, rec.sink)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}
	defer w.Stop()

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if !opener.Rise(3, at) {
		t.Fatal("first edge should be delivered")
	}

	ev := rec.wait(t)
	if ev.Channel != logic.ChannelInterrupt {
		t.Errorf("channel: got %s, want INTERRUPT", ev.Channel)
	}
	if ev.Action != logic.ActionShutdown {
		t.Errorf("action: got %s, want shutdown", ev.Action)
	}
	if !ev.Timestamp.Equal(at) {
		t.Errorf("timestamp: got %v, want %v", ev.Timestamp, at)
	}
}

func TestWatcherBounceCollapsesToOneEvent(t *testing.T) {
	opener := NewFakeLineOpener()
	rec := newRecorder()

	w, err := StartWatcher(opener, 3, logic.ActionShutdown, rec.sink)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// Contact bounce within the 250ms window.
	for _, off := range []time.Duration{0, 3, 8, 20, 120, 249} {
		opener.Rise(3, at.Add(off*time.Millisecond))
	}
	rec.wait(t)

	// Stop waits for the watcher goroutine, so the count is final.
	w.Stop()
	if n := rec.count(); n != 1 {
		t.Errorf("expected 1 event for a bouncing press, got %d", n)
	}
}

func TestWatcherSeparatePressesOutsideWindow(t *testing.T) {
	opener := NewFakeLineOpener()
	rec := newRecorder()

	w, err := StartWatcher(opener, 3, logic.ActionShutdown, rec.sink)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	opener.Rise(3, at)
	rec.wait(t)
	opener.Rise(3, at.Add(600*time.Millisecond))
	rec.wait(t)

	w.Stop()
	if n := rec.count(); n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
}

func TestWatcherOpenFailure(t *testing.T) {
	opener := NewFakeLineOpener()
	opener.OpenErrors[3] = errors.New("invalid pin")

	w, err := StartWatcher(opener, 3, logic.ActionShutdown, func(logic.FiredEvent) {
		t.Error("sink should never be called")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if w != nil {
		t.Error("expected nil watcher on failure")
	}

	var hwErr *logic.HardwareOpenError
	if !errors.As(err, &hwErr) {
		t.Fatalf("expected HardwareOpenError, got %T", err)
	}
	if hwErr.Channel != logic.ChannelInterrupt {
		t.Errorf("channel: got %s", hwErr.Channel)
	}
	if opener.IsOpen(3) {
		t.Error("pin should not be open after failure")
	}
}

func TestWatcherLineBusy(t *testing.T) {
	opener := NewFakeLineOpener()

	w1, err := StartWatcher(opener, 3, logic.ActionShutdown, func(logic.FiredEvent) {})
	if err != nil {
		t.Fatalf("first StartWatcher: %v", err)
	}
	defer w1.Stop()

	if _, err := StartWatcher(opener, 3, logic.ActionShutdown, func(logic.FiredEvent) {}); !errors.Is(err, ErrLineBusy) {
		t.Errorf("expected ErrLineBusy, got %v", err)
	}
}

func TestWatcherStopReleasesLine(t *testing.T) {
	opener := NewFakeLineOpener()

	w, err := StartWatcher(opener, 3, logic.ActionShutdown, func(logic.FiredEvent) {})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}
	line := opener.Line(3)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if opener.IsOpen(3) {
		t.Error("pin should be released after Stop")
	}
	if opener.Rise(3, time.Now()) {
		t.Error("edge after Stop should not be delivered")
	}

	// Second stop is a no-op.
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
	if line.CloseCount != 1 {
		t.Errorf("expected line closed once, got %d", line.CloseCount)
	}
}

func TestWatcherStopNil(t *testing.T) {
	var w *Watcher
	if err := w.Stop(); err != nil {
		t.Errorf("Stop on nil watcher: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop on nil watcher: %v", err)
	}
}

func TestWatcherRestartAfterStop(t *testing.T) {
	opener := NewFakeLineOpener()

	w, err := StartWatcher(opener, 3, logic.ActionShutdown, func(logic.FiredEvent) {})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}
	w.Stop()

	w2, err := StartWatcher(opener, 3, logic.ActionShutdown, func(logic.FiredEvent) {})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer w2.Stop()

	if len(opener.Opened) != 2 {
		t.Errorf("expected 2 opens, got %v", opener.Opened)
	}
}
