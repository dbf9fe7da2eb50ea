// Package gpio samples the front-panel buttons and encoder phases.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/interlock-panel/internal/logic"

// Sample is one reading of every front-panel input, already in logical
// form: a button is true while pressed.
type Sample struct {
	Buttons [logic.LineCount]bool
	EncA    bool
	EncB    bool
}

// Reader reads the front-panel inputs.
type Reader interface {
	// Read returns the current sample.
	// Buttons are wired active-low: raw 0 = pressed.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Pins holds the line offsets of the front-panel inputs on one chip.
type Pins struct {
	Chip    string
	Down    int
	Left    int
	Up      int
	Right   int
	Confirm int
	EncA    int
	EncB    int
}

// DefaultPins returns the offsets used on the panel board (BCM numbering).
func DefaultPins() Pins {
	return Pins{
		Chip:    "gpiochip0",
		Down:    5,
		Left:    6,
		Up:      13,
		Right:   19,
		Confirm: 26,
		EncA:    20,
		EncB:    21,
	}
}

// Offsets returns the line offsets in read order: the buttons indexed by
// logic.Line, then encoder A and B.
func (p Pins) Offsets() []int {
	return []int{p.Down, p.Left, p.Up, p.Right, p.Confirm, p.EncA, p.EncB}
}

// decode turns raw line levels in Offsets order into a Sample.
func decode(raw []int) Sample {
	var s Sample
	for i := 0; i < int(logic.LineCount) && i < len(raw); i++ {
		s.Buttons[i] = raw[i] == 0
	}
	n := int(logic.LineCount)
	if len(raw) > n+1 {
		s.EncA = raw[n] != 0
		s.EncB = raw[n+1] != 0
	}
	return s
}
