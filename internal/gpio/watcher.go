package gpio

import (
	"fmt"
	"sync"

	"github.com/sweeney/radio-buttons/internal/logic"
)

// edgeQueueLen bounds edges waiting for the watcher goroutine.
const edgeQueueLen = 8

// Watcher turns debounced edges on one line into FiredEvents for one action.
type Watcher struct {
	pin    int
	action logic.ActionName
	line   Line
	edges  chan Edge
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// StartWatcher claims pin and arms rising-edge detection with the fixed
// Debounce window. Each accepted edge is passed to sink as one FiredEvent
// carrying action. If the line cannot be claimed, a *logic.HardwareOpenError
// is returned and nothing is armed.
func StartWatcher(opener LineOpener, pin int, action logic.ActionName, sink func(logic.FiredEvent)) (*Watcher, error) {
	edges := make(chan Edge, edgeQueueLen)
	line, err := opener.OpenRisingEdge(pin, Debounce, edges)
	if err != nil {
		return nil, &logic.HardwareOpenError{
			Channel:  logic.ChannelInterrupt,
			Resource: fmt.Sprintf("gpio pin %d", pin),
			Err:      err,
		}
	}

	w := &Watcher{
		pin:    pin,
		action: action,
		line:   line,
		edges:  edges,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run(sink)
	return w, nil
}

func (w *Watcher) run(sink func(logic.FiredEvent)) {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case e := <-w.edges:
			sink(logic.FiredEvent{
				Channel:   logic.ChannelInterrupt,
				Action:    w.action,
				Timestamp: e.Time,
			})
		}
	}
}

// Pin returns the watched line.
func (w *Watcher) Pin() int {
	return w.pin
}

// Action returns the bound action.
func (w *Watcher) Action() logic.ActionName {
	return w.action
}

// Stop disarms detection, releases the line and waits for any in-flight
// event to finish. It is safe on a nil Watcher and on repeated calls.
func (w *Watcher) Stop() error {
	if w == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		err = w.line.Close()
		close(w.quit)
		<-w.done
		if err != nil {
			err = fmt.Errorf("release gpio pin %d: %w", w.pin, err)
		}
	})
	return err
}
