package expander

import (
	"fmt"
	"sync"
)

// Write is one recorded register write.
type Write struct {
	Reg byte
	Val byte
}

// Fake is an in-memory TCA9555. Input pins read the level set through
// SetPin; output pins read back their output latch, as on the real chip.
type Fake struct {
	mu       sync.Mutex
	config   [Ports]byte
	output   [Ports]byte
	polarity [Ports]byte
	pins     [Ports]byte

	// Writes records every successful register write.
	Writes []Write

	// ReadError and WriteError, if set, are returned by every transaction.
	ReadError  error
	WriteError error

	// OnWrite, if set, is called after every successful write with the
	// lock released. Tests use it to model hardware reacting to outputs.
	OnWrite func(reg, val byte)
}

// NewFake creates a chip in its power-on state: all inputs, outputs
// latched high, every pin pulled high.
func NewFake() *Fake {
	f := &Fake{}
	for p := 0; p < Ports; p++ {
		f.config[p] = 0xFF
		f.output[p] = 0xFF
		f.pins[p] = 0xFF
	}
	return f
}

// ReadRegister reads one register.
func (f *Fake) ReadRegister(reg byte) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return 0, f.ReadError
	}
	port := int(reg & 1)
	switch reg &^ 1 {
	case RegInput:
		level := (f.pins[port] & f.config[port]) | (f.output[port] &^ f.config[port])
		return level ^ f.polarity[port], nil
	case RegOutput:
		return f.output[port], nil
	case RegPolarity:
		return f.polarity[port], nil
	case RegConfig:
		return f.config[port], nil
	}
	return 0, fmt.Errorf("fake expander: no register 0x%02x", reg)
}

// WriteRegister writes one register.
func (f *Fake) WriteRegister(reg, val byte) error {
	f.mu.Lock()
	if f.WriteError != nil {
		f.mu.Unlock()
		return f.WriteError
	}
	port := int(reg & 1)
	switch reg &^ 1 {
	case RegOutput:
		f.output[port] = val
	case RegPolarity:
		f.polarity[port] = val
	case RegConfig:
		f.config[port] = val
	default:
		f.mu.Unlock()
		return fmt.Errorf("fake expander: register 0x%02x is read-only", reg)
	}
	f.Writes = append(f.Writes, Write{Reg: reg, Val: val})
	hook := f.OnWrite
	f.mu.Unlock()

	if hook != nil {
		hook(reg, val)
	}
	return nil
}

// SetPin sets the external level seen on an input pin.
func (f *Fake) SetPin(port, bit int, high bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mask := byte(1) << uint(bit)
	if high {
		f.pins[port&1] |= mask
	} else {
		f.pins[port&1] &^= mask
	}
}

// Config returns the direction register of port.
func (f *Fake) Config(port int) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config[port&1]
}

// Output returns the output latch of port.
func (f *Fake) Output(port int) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.output[port&1]
}

// ClearWrites forgets recorded writes.
func (f *Fake) ClearWrites() {
	f.mu.Lock()
	f.Writes = nil
	f.mu.Unlock()
}
