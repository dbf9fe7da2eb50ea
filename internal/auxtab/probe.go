package auxtab

import "periph.io/x/conn/v3/i2c"

// BusProber probes addresses on a periph.io I²C bus with a one-byte read.
type BusProber struct {
	Bus i2c.Bus
}

// Probe reports whether addr acknowledges.
func (p BusProber) Probe(addr uint16) bool {
	return p.Bus.Tx(addr, nil, []byte{0}) == nil
}

// FakeProber answers for a fixed set of addresses.
type FakeProber map[uint16]bool

// Probe reports whether addr is in the set.
func (f FakeProber) Probe(addr uint16) bool {
	return f[addr]
}
