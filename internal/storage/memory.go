// Package storage persists panel settings in the I²C EEPROM.
package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

// ErrAddress is returned for an access outside the memory.
var ErrAddress = errors.New("storage: address out of range")

// Memory is a byte-addressable non-volatile store.
type Memory interface {
	Read(addr uint32, p []byte) error
	Write(addr uint32, p []byte) error
	Size() uint32
	PageSize() int
}

func checkRange(m Memory, addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(m.Size()) {
		return fmt.Errorf("%w: 0x%05x+%d", ErrAddress, addr, n)
	}
	return nil
}

// EEPROM geometry of the 2 Mbit part on the panel board. The top two bits
// of the 18-bit address select one of four 64 KiB banks, each answering
// on its own I²C address.
const (
	DefaultAddr = 0x50
	EEPROMSize  = 0x40000
	EEPROMPage  = 256
	bankSize    = 0x10000
	writeDelay  = 6 * time.Millisecond
	// writeChunk is the most the at24cx driver sends in one transaction.
	writeChunk = 30
)

// Sleeper waits for the chip's internal write cycle.
type Sleeper interface {
	Sleep(d time.Duration)
}

// EEPROM is the real memory, one at24cx device per bank.
type EEPROM struct {
	mu    sync.Mutex
	dev   at24cx.Device
	base  uint16
	sleep Sleeper
}

// NewEEPROM creates the EEPROM on bus. Any drivers.I2C works; a periph.io
// i2c.Bus satisfies it directly.
func NewEEPROM(bus drivers.I2C, base uint16, sleep Sleeper) *EEPROM {
	dev := at24cx.New(bus)
	dev.Configure(at24cx.Config{
		PageSize:      EEPROMPage,
		EndRAMAddress: 0xFFFF,
	})
	return &EEPROM{dev: dev, base: base, sleep: sleep}
}

// Size returns the capacity in bytes.
func (e *EEPROM) Size() uint32 { return EEPROMSize }

// PageSize returns the write page size.
func (e *EEPROM) PageSize() int { return EEPROMPage }

// Read reads len(p) bytes from addr.
func (e *EEPROM) Read(addr uint32, p []byte) error {
	if err := checkRange(e, addr, len(p)); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.banked(addr, p, func(off uint16, chunk []byte) error {
		if _, err := e.dev.ReadAt(chunk, int64(off)); err != nil {
			return fmt.Errorf("eeprom read 0x%02x:%04x: %w", e.dev.Address, off, err)
		}
		return nil
	})
}

// Write writes p at addr and waits out the write cycle of every chunk.
func (e *EEPROM) Write(addr uint32, p []byte) error {
	if err := checkRange(e, addr, len(p)); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.banked(addr, p, func(off uint16, data []byte) error {
		// One transaction per chunk, each inside a single page, with a
		// full write cycle after it. The chip NACKs while it is busy.
		for len(data) > 0 {
			n := len(data)
			if n > writeChunk {
				n = writeChunk
			}
			if room := EEPROMPage - int(off)%EEPROMPage; n > room {
				n = room
			}
			if _, err := e.dev.WriteAt(data[:n], int64(off)); err != nil {
				return fmt.Errorf("eeprom write 0x%02x:%04x: %w", e.dev.Address, off, err)
			}
			if e.sleep != nil {
				e.sleep.Sleep(writeDelay)
			}
			off += uint16(n)
			data = data[n:]
		}
		return nil
	})
}

// banked splits an access at bank boundaries and points the device at
// the right bank address for each piece.
func (e *EEPROM) banked(addr uint32, p []byte, fn func(off uint16, chunk []byte) error) error {
	for len(p) > 0 {
		bank := (addr >> 16) & 3
		off := addr & (bankSize - 1)
		n := len(p)
		if room := int(bankSize - off); n > room {
			n = room
		}
		e.dev.Address = e.base | uint16(bank)
		if err := fn(uint16(off), p[:n]); err != nil {
			return err
		}
		addr += uint32(n)
		p = p[n:]
	}
	return nil
}

// FakeMemory is an in-memory EEPROM for tests and headless runs.
type FakeMemory struct {
	mu   sync.Mutex
	data []byte
	page int

	// Writes counts successful Write calls.
	Writes int

	// ReadError and WriteError, if set, are returned by every access.
	ReadError  error
	WriteError error
}

// NewFakeMemory creates an erased memory of size bytes.
func NewFakeMemory(size uint32, page int) *FakeMemory {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xFF
	}
	return &FakeMemory{data: data, page: page}
}

// Size returns the capacity in bytes.
func (f *FakeMemory) Size() uint32 { return uint32(len(f.data)) }

// PageSize returns the write page size.
func (f *FakeMemory) PageSize() int { return f.page }

// Read copies from the memory.
func (f *FakeMemory) Read(addr uint32, p []byte) error {
	if err := checkRange(f, addr, len(p)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return f.ReadError
	}
	copy(p, f.data[addr:])
	return nil
}

// Write copies into the memory.
func (f *FakeMemory) Write(addr uint32, p []byte) error {
	if err := checkRange(f, addr, len(p)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	copy(f.data[addr:], p)
	f.Writes++
	return nil
}

// Byte returns one byte, for assertions.
func (f *FakeMemory) Byte(addr uint32) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[addr]
}
