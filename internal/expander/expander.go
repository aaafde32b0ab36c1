// Package expander polls a PCF8575-style 16-bit I/O expander for button
// presses.
package expander

import (
	"fmt"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
)

const (
	// DefaultBus is the I2C bus the expander sits on.
	DefaultBus = "1"
	// Register is the sub-address of the 2-byte input register.
	Register byte = 0x00
	// PollInterval is the fixed read cadence.
	PollInterval = 150 * time.Millisecond
)

// Bus is an open I2C bus handle.
type Bus interface {
	// ReadBlock writes reg to the device at addr, then reads len(buf) bytes.
	ReadBlock(addr uint16, reg byte, buf []byte) error
	// Close releases the bus.
	Close() error
}

// BusOpener opens I2C buses by id (e.g. "1").
type BusOpener interface {
	OpenBus(id string) (Bus, error)
}

// ReadSample reads the input register and packs it into a 16-bit sample.
func ReadSample(bus Bus, addr uint16) (uint16, error) {
	var buf [2]byte
	if err := bus.ReadBlock(addr, Register, buf[:]); err != nil {
		return 0, fmt.Errorf("read register 0x%02X at 0x%02X: %w", Register, addr, err)
	}
	return logic.PackSample(buf[0], buf[1]), nil
}

// ReadOnce opens the bus, reads a single sample and closes it again.
func ReadOnce(opener BusOpener, busID string, addr uint16) (uint16, error) {
	bus, err := opener.OpenBus(busID)
	if err != nil {
		return 0, fmt.Errorf("open i2c bus %s: %w", busID, err)
	}
	defer bus.Close()
	return ReadSample(bus, addr)
}
