package expander

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// TCA9555 is the real expander on a periph.io I²C bus.
type TCA9555 struct {
	dev *i2c.Dev
}

// NewTCA9555 creates a driver for the chip at addr on bus.
func NewTCA9555(bus i2c.Bus, addr uint16) *TCA9555 {
	return &TCA9555{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// ReadRegister reads one register.
func (t *TCA9555) ReadRegister(reg byte) (byte, error) {
	r := []byte{0}
	if err := t.dev.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("tca9555 read 0x%02x: %w", reg, err)
	}
	return r[0], nil
}

// WriteRegister writes one register.
func (t *TCA9555) WriteRegister(reg, val byte) error {
	if err := t.dev.Tx([]byte{reg, val}, nil); err != nil {
		return fmt.Errorf("tca9555 write 0x%02x: %w", reg, err)
	}
	return nil
}
