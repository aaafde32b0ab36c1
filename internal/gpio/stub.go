//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// ChipOpener is not available on non-Linux platforms.
type ChipOpener struct {
	Chip string
}

// NewChipOpener returns an opener whose every request fails.
func NewChipOpener(chip string) *ChipOpener {
	return &ChipOpener{Chip: chip}
}

// OpenRisingEdge always fails on non-Linux platforms.
func (o *ChipOpener) OpenRisingEdge(pin int, debounce time.Duration, edges chan<- Edge) (Line, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}
