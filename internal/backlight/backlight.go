// Package backlight drives the RT4527A LCD backlight controller.
package backlight

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// The chip answers on one of two addresses depending on its A0 strap.
const (
	AddrLow  = 0x36
	AddrHigh = 0x37
)

const (
	regMode       = 0x00
	regBrightness = 0x01
	modeDC        = 0x01
)

// ErrNotFound is returned by Detect when neither address answers.
var ErrNotFound = errors.New("backlight: RT4527A not found")

// Controller sets the backlight level.
type Controller interface {
	SetBrightness(code uint8) error
}

// RT4527A is the real controller on a periph.io I²C bus.
type RT4527A struct {
	dev *i2c.Dev
}

// Detect probes both strap addresses and returns the first that answers,
// switched to DC dimming mode.
func Detect(bus i2c.Bus) (*RT4527A, error) {
	for _, addr := range []uint16{AddrLow, AddrHigh} {
		dev := &i2c.Dev{Bus: bus, Addr: addr}
		if err := dev.Tx([]byte{regMode}, []byte{0}); err != nil {
			continue
		}
		rt := &RT4527A{dev: dev}
		if err := rt.SetDC(); err != nil {
			return nil, err
		}
		return rt, nil
	}
	return nil, ErrNotFound
}

// Addr returns the address the chip answered on.
func (r *RT4527A) Addr() uint16 {
	return r.dev.Addr
}

// SetDC selects DC dimming.
func (r *RT4527A) SetDC() error {
	if err := r.dev.Tx([]byte{regMode, modeDC}, nil); err != nil {
		return fmt.Errorf("rt4527a set dc mode: %w", err)
	}
	return nil
}

// SetBrightness writes the brightness code.
func (r *RT4527A) SetBrightness(code uint8) error {
	if err := r.dev.Tx([]byte{regBrightness, code}, nil); err != nil {
		return fmt.Errorf("rt4527a set brightness: %w", err)
	}
	return nil
}

// Fake records brightness codes.
type Fake struct {
	mu    sync.Mutex
	Codes []uint8
	Err   error
}

// SetBrightness records code.
func (f *Fake) SetBrightness(code uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Codes = append(f.Codes, code)
	return nil
}

// Last returns the last code set, and false if none was.
func (f *Fake) Last() (uint8, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Codes) == 0 {
		return 0, false
	}
	return f.Codes[len(f.Codes)-1], true
}
