//go:build linux

package gpio

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// ChipOpener claims lines on a GPIO character device chip.
type ChipOpener struct {
	Chip string
}

// NewChipOpener creates an opener for the named chip (e.g. "gpiochip0").
func NewChipOpener(chip string) *ChipOpener {
	return &ChipOpener{Chip: chip}
}

// OpenRisingEdge requests pin as input with kernel-side debounce and
// rising-edge events.
func (o *ChipOpener) OpenRisingEdge(pin int, debounce time.Duration, edges chan<- Edge) (Line, error) {
	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type != gpiocdev.LineEventRisingEdge {
			return
		}
		if !deliver(edges, Edge{Pin: evt.Offset, Time: time.Now()}) {
			log.Printf("gpio: edge queue full on pin %d, dropping edge", evt.Offset)
		}
	}

	line, err := gpiocdev.RequestLine(o.Chip, pin,
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(handler),
	)
	if err != nil {
		return nil, fmt.Errorf("request pin %d on %s: %w", pin, o.Chip, err)
	}
	return line, nil
}
