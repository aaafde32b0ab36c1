// Package gpio watches interrupt-capable input lines for button presses.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"
)

// Debounce is the quiet window the driver applies to each watched line.
const Debounce = 250 * time.Millisecond

// DefaultChip is the GPIO chip the daemon claims lines on.
const DefaultChip = "gpiochip0"

// Edge is one debounced rising edge delivered by the driver.
type Edge struct {
	Pin  int
	Time time.Time
}

// Line is a claimed input line armed for edge detection.
type Line interface {
	// Close disarms detection and releases the line.
	Close() error
}

// LineOpener claims input lines with rising-edge detection.
type LineOpener interface {
	// OpenRisingEdge claims pin as a digital input, arms rising-edge
	// detection with the given debounce window, and delivers each accepted
	// edge to edges. Delivery never blocks: if edges is full the edge is dropped.
	OpenRisingEdge(pin int, debounce time.Duration, edges chan<- Edge) (Line, error)
}

// deliver hands e to edges without blocking the driver's event goroutine.
func deliver(edges chan<- Edge, e Edge) bool {
	select {
	case edges <- e:
		return true
	default:
		return false
	}
}
