package router

import (
	"log"
	"sync"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// DefaultQueueDepth is the number of pending events held per channel.
const DefaultQueueDepth = 16

// Queue hands fired events to handle on one worker goroutine per channel.
// Events from a channel are handled in order; a slow playback request never
// delays a shutdown request. Submit never blocks the caller.
type Queue struct {
	handle func(logic.FiredEvent)

	mu     sync.Mutex
	closed bool
	queues map[logic.Channel]chan logic.FiredEvent
	wg     sync.WaitGroup
}

// NewQueue starts a worker per channel. depth <= 0 uses DefaultQueueDepth.
func NewQueue(handle func(logic.FiredEvent), depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	q := &Queue{
		handle: handle,
		queues: map[logic.Channel]chan logic.FiredEvent{
			logic.ChannelInterrupt: make(chan logic.FiredEvent, depth),
			logic.ChannelRegister:  make(chan logic.FiredEvent, depth),
		},
	}
	for _, ch := range q.queues {
		q.wg.Add(1)
		go q.work(ch)
	}
	return q
}

func (q *Queue) work(events <-chan logic.FiredEvent) {
	defer q.wg.Done()
	for ev := range events {
		q.handle(ev)
	}
}

// Submit enqueues ev. It reports false if the event was dropped because the
// queue is closed or that channel's backlog is full.
func (q *Queue) Submit(ev logic.FiredEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch, ok := q.queues[ev.Channel]
	if q.closed || !ok {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		log.Printf("router: %s queue full, dropping %s", ev.Channel, ev.TriggerID())
		return false
	}
}

// Close stops accepting events and waits for queued ones to be handled.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.queues {
		close(ch)
	}
	q.mu.Unlock()

	q.wg.Wait()
}
