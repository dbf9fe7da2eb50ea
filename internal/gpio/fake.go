package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/interlock-panel/internal/logic"
)

// FakeReader is a test double that returns scripted samples.
//
// Scripted samples are consumed one per Read. Once exhausted, Read
// returns the live state set through Press/Release/SetEncoder.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted values to return before the live state.
	Samples []Sample

	// index tracks current position in Samples
	index int

	live Sample

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample, or the live state.
func (f *FakeReader) Read() (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}
	if f.Closed {
		return Sample{}, errors.New("gpio: reader closed")
	}

	if f.index < len(f.Samples) {
		s := f.Samples[f.index]
		f.index++
		return s, nil
	}
	return f.live, nil
}

// Press holds a button down in the live state.
func (f *FakeReader) Press(l logic.Line) {
	f.set(l, true)
}

// Release lets a button go in the live state.
func (f *FakeReader) Release(l logic.Line) {
	f.set(l, false)
}

func (f *FakeReader) set(l logic.Line, pressed bool) {
	if l < 0 || l >= logic.LineCount {
		return
	}
	f.mu.Lock()
	f.live.Buttons[l] = pressed
	f.mu.Unlock()
}

// SetEncoder sets the live encoder phase levels.
func (f *FakeReader) SetEncoder(a, b bool) {
	f.mu.Lock()
	f.live.EncA = a
	f.live.EncB = b
	f.mu.Unlock()
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Closed = false
	f.live = Sample{}
	f.mu.Unlock()
}
