package storage

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/interlock-panel/internal/interlock"
	"github.com/sweeney/interlock-panel/internal/logic"
)

// Record layout. Each record starts with a marker byte; any other value
// at the marker address means the record is absent.
const (
	OverviewAddr   uint32 = 0x0000
	OverviewMarker byte   = 0xA5
	AuxAddr        uint32 = 0x0100
	AuxMarker      byte   = 0x5A

	auxLen = 4 // enable, delay LSB, delay MSB, brightness
)

// Worker runs bulk work while the poll loop keeps stepping.
type Worker interface {
	Work(n int, unit func(i int) error) error
}

// Store reads and writes the panel records.
type Store struct {
	mem    Memory
	worker Worker
	log    *slog.Logger
}

// NewStore creates a Store on mem. worker runs the chip erase; nil runs
// it inline.
func NewStore(mem Memory, worker Worker, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{mem: mem, worker: worker, log: logger}
}

// writeRecord invalidates the marker, writes the body, then the marker,
// so an interrupted save reads back as absent.
func (s *Store) writeRecord(addr uint32, marker byte, body []byte) error {
	if err := s.mem.Write(addr, []byte{0xFF}); err != nil {
		return fmt.Errorf("invalidate record 0x%04x: %w", addr, err)
	}
	if err := s.mem.Write(addr+1, body); err != nil {
		return fmt.Errorf("write record 0x%04x: %w", addr, err)
	}
	if err := s.mem.Write(addr, []byte{marker}); err != nil {
		return fmt.Errorf("write marker 0x%04x: %w", addr, err)
	}
	return nil
}

func (s *Store) readRecord(addr uint32, marker byte, n int) ([]byte, bool, error) {
	buf := make([]byte, n+1)
	if err := s.mem.Read(addr, buf); err != nil {
		return nil, false, fmt.Errorf("read record 0x%04x: %w", addr, err)
	}
	if buf[0] != marker {
		return nil, false, nil
	}
	return buf[1:], true, nil
}

// SaveOverview stores the edit-cycle state of every interlock line.
func (s *Store) SaveOverview(states [interlock.LineCount]interlock.State) error {
	body := make([]byte, interlock.LineCount)
	for i, st := range states {
		body[i] = byte(st)
	}
	return s.writeRecord(OverviewAddr, OverviewMarker, body)
}

// LoadOverview returns the stored states. ok is false when no valid
// record exists. Unknown state bytes load as RealSensed.
func (s *Store) LoadOverview() (states [interlock.LineCount]interlock.State, ok bool, err error) {
	body, ok, err := s.readRecord(OverviewAddr, OverviewMarker, interlock.LineCount)
	if err != nil || !ok {
		return states, false, err
	}
	for i, b := range body {
		st := interlock.State(b)
		if st >= interlock.StateCount {
			st = interlock.RealSensed
		}
		states[i] = st
	}
	return states, true, nil
}

// SaveAux stores the auxiliary settings. EditMode is not stored.
func (s *Store) SaveAux(a logic.AuxSettings) error {
	ms := uint16(logic.ClampDelay(a.AutoResetDelay) / time.Millisecond)
	var enable byte
	if a.AutoResetEnabled {
		enable = 1
	}
	body := []byte{enable, byte(ms), byte(ms >> 8), a.LCDBrightness}
	return s.writeRecord(AuxAddr, AuxMarker, body)
}

// LoadAux returns the stored auxiliary settings. ok is false when no
// valid record exists.
func (s *Store) LoadAux() (logic.AuxSettings, bool, error) {
	a := logic.DefaultAuxSettings()
	body, ok, err := s.readRecord(AuxAddr, AuxMarker, auxLen)
	if err != nil || !ok {
		return a, false, err
	}
	a.AutoResetEnabled = body[0] != 0
	ms := uint16(body[1]) | uint16(body[2])<<8
	a.AutoResetDelay = logic.ClampDelay(time.Duration(ms) * time.Millisecond)
	a.LCDBrightness = body[3]
	return a, true, nil
}

// Erase fills the whole memory with 0xFF one page at a time.
func (s *Store) Erase() error {
	page := s.mem.PageSize()
	if page <= 0 {
		page = EEPROMPage
	}
	pages := int(s.mem.Size()) / page
	blank := bytes.Repeat([]byte{0xFF}, page)

	unit := func(i int) error {
		return s.mem.Write(uint32(i*page), blank)
	}

	s.log.Info("erasing eeprom", "pages", pages, "page_size", page)
	var err error
	if s.worker != nil {
		err = s.worker.Work(pages, unit)
	} else {
		for i := 0; i < pages && err == nil; i++ {
			err = unit(i)
		}
	}
	if err != nil {
		return fmt.Errorf("erase: %w", err)
	}
	return nil
}
