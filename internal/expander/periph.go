package expander

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphOpener opens I2C buses through periph.io's host drivers.
type PeriphOpener struct{}

// OpenBus initialises the host drivers (a no-op after the first call) and
// opens bus id.
func (PeriphOpener) OpenBus(id string) (Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	bc, err := i2creg.Open(id)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", id, err)
	}
	return &periphBus{bus: bc}, nil
}

type periphBus struct {
	bus i2c.BusCloser
}

func (b *periphBus) ReadBlock(addr uint16, reg byte, buf []byte) error {
	dev := i2c.Dev{Bus: b.bus, Addr: addr}
	return dev.Tx([]byte{reg}, buf)
}

func (b *periphBus) Close() error {
	return b.bus.Close()
}
