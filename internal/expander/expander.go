// Package expander talks to the TCA9555 16-bit I²C GPIO expander that
// carries the interlock lines. It exposes register get/set only; the
// meaning of each bit belongs to the interlock package.
package expander

import "fmt"

// DefaultAddr is the expander's I²C address on the panel board.
const DefaultAddr = 0x20

// Register addresses for port 0. Port 1 is at the next address.
const (
	RegInput    byte = 0x00
	RegOutput   byte = 0x02
	RegPolarity byte = 0x04
	RegConfig   byte = 0x06
)

// Ports is the number of 8-bit ports on the chip.
const Ports = 2

// Registers reads and writes single expander registers. Every call is one
// bus transaction.
type Registers interface {
	ReadRegister(reg byte) (byte, error)
	WriteRegister(reg, val byte) error
}

// Reg returns the register address for base on port.
func Reg(base byte, port int) byte {
	return base + byte(port&1)
}

// Init puts both ports into a known state: every pin an input (a config
// bit of 1 means input), normal polarity.
func Init(r Registers) error {
	for port := 0; port < Ports; port++ {
		if err := r.WriteRegister(Reg(RegPolarity, port), 0x00); err != nil {
			return fmt.Errorf("init polarity port %d: %w", port, err)
		}
		if err := r.WriteRegister(Reg(RegConfig, port), 0xFF); err != nil {
			return fmt.Errorf("init config port %d: %w", port, err)
		}
	}
	return nil
}
