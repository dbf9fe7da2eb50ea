// Package interlock models the monitored interlock lines on the expander.
//
// Each line is either sensed (pin is an input) or simulated by the
// operator (pin is an output driving a fixed level). The mode is always
// derived from the direction register; nothing is cached.
package interlock

import "fmt"

// State is a step of the edit cycle. Its numeric value is also what the
// overview record stores.
type State uint8

const (
	RealSensed State = iota // pin is an input
	SimOn                   // pin is an output driving LOW
	SimOff                  // pin is an output driving HIGH
	StateCount
)

func (s State) String() string {
	switch s {
	case RealSensed:
		return "REAL"
	case SimOn:
		return "SIM_ON"
	case SimOff:
		return "SIM_OFF"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Step moves delta positions around the edit cycle.
func (s State) Step(delta int) State {
	n := (int(s)%int(StateCount) + delta) % int(StateCount)
	if n < 0 {
		n += int(StateCount)
	}
	return State(n)
}

// Line is one interlock signal on the expander.
type Line struct {
	Label    string
	Port     int
	Bit      int
	AllowSim bool
}

// LineCount is the number of interlock lines on the panel.
const LineCount = 9

// Rows with a special meaning in the line table.
const (
	GlobalFaultLine = 7
	ResetLine       = 8
)

// Pin addresses one expander pin.
type Pin struct {
	Port int
	Bit  int
}

// ResetPulsePins are driven together by the reset pulse.
var ResetPulsePins = [2]Pin{{Port: 0, Bit: 7}, {Port: 1, Bit: 6}}

// DefaultLines returns the interlock table of the panel board.
func DefaultLines() [LineCount]Line {
	return [LineCount]Line{
		{"dPhase", 0, 0, true},
		{"Overduty", 0, 1, true},
		{"dMag", 0, 2, true},
		{"Overpower", 0, 3, true},
		{"User", 0, 4, true},
		{"PSS", 0, 5, true},
		{"External", 0, 6, true},
		{"Global", 1, 2, true},
		{"Reset", 0, 7, false},
	}
}
