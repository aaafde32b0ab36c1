package router

import (
	"sync"
	"testing"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
)

type handled struct {
	mu     sync.Mutex
	events []logic.FiredEvent
}

func (h *handled) add(ev logic.FiredEvent) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *handled) get() []logic.FiredEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]logic.FiredEvent(nil), h.events...)
}

func TestQueuePreservesOrderPerChannel(t *testing.T) {
	h := &handled{}
	q := NewQueue(h.add, 0)

	for i := 1; i <= 5; i++ {
		if !q.Submit(pressed(logic.ButtonIndex(i))) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	q.Close()

	got := h.get()
	if len(got) != 5 {
		t.Fatalf("expected 5 handled, got %d", len(got))
	}
	for i, ev := range got {
		if ev.Button != logic.ButtonIndex(i+1) {
			t.Errorf("event %d: got button %d", i, ev.Button)
		}
	}
}

func TestQueueSlowPlaybackDoesNotBlockShutdown(t *testing.T) {
	release := make(chan struct{})
	shutdown := make(chan struct{}, 1)

	q := NewQueue(func(ev logic.FiredEvent) {
		switch ev.Channel {
		case logic.ChannelRegister:
			<-release
		case logic.ChannelInterrupt:
			shutdown <- struct{}{}
		}
	}, 4)
	defer q.Close()
	defer close(release)

	q.Submit(pressed(1))
	q.Submit(logic.FiredEvent{Channel: logic.ChannelInterrupt, Action: logic.ActionShutdown, Timestamp: testTime})

	select {
	case <-shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown was held up behind playback")
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue(func(logic.FiredEvent) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}, 1)

	q.Submit(pressed(1))
	<-started // worker is now busy with button 1

	if !q.Submit(pressed(2)) {
		t.Error("second event should fit in the backlog")
	}
	if q.Submit(pressed(3)) {
		t.Error("third event should be dropped")
	}

	close(release)
	q.Close()
}

func TestQueueSubmitAfterClose(t *testing.T) {
	q := NewQueue(func(logic.FiredEvent) {}, 1)
	q.Close()
	q.Close()

	if q.Submit(pressed(1)) {
		t.Error("submit after close should be rejected")
	}
}

func TestQueueUnknownChannel(t *testing.T) {
	q := NewQueue(func(logic.FiredEvent) {}, 1)
	defer q.Close()

	if q.Submit(logic.FiredEvent{Channel: "BOGUS"}) {
		t.Error("unknown channel should be rejected")
	}
}
