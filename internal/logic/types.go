// Package logic contains the pure front-panel state machines: gesture
// classification, quadrature decoding and the auto-reset watchdog.
// This package has NO external dependencies (no GPIO, I2C, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Line identifies one physical front-panel button.
type Line int

const (
	LineDown Line = iota
	LineLeft
	LineUp
	LineRight
	LineConfirm
	LineCount
)

// NoLine disables double-click support when used as ClassifierConfig.DoubleLine.
const NoLine Line = -1

func (l Line) String() string {
	switch l {
	case LineDown:
		return "DOWN"
	case LineLeft:
		return "LEFT"
	case LineUp:
		return "UP"
	case LineRight:
		return "RIGHT"
	case LineConfirm:
		return "OK"
	}
	return "NONE"
}

// GestureKind classifies one completed button interaction.
type GestureKind string

const (
	GestureShort  GestureKind = "SHORT"
	GestureLong   GestureKind = "LONG"
	GestureDouble GestureKind = "DOUBLE"
)

// Gesture is a classified button event.
type Gesture struct {
	Line Line
	Kind GestureKind
	Time time.Time
}

// Input is one sample of every button, already normalised so that
// true means pressed.
type Input struct {
	Pressed [LineCount]bool
	Time    time.Time
}

// EventType names a telemetry event emitted by the panel.
type EventType string

const (
	EventResetPulse        EventType = "RESET_PULSE"
	EventSimulationApplied EventType = "SIMULATION_APPLIED"
	EventSettingsErased    EventType = "SETTINGS_ERASED"
	EventFaultArmed        EventType = "FAULT_ARMED"
)

// Reset pulse sources.
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

// Event is a panel occurrence worth reporting outside the device.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Line      string // interlock label, if any
	State     string // edit-cycle state, if any
	Source    string // manual or auto, for reset pulses
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	ManualPulses int
	AutoPulses   int
	Commits      int
	FaultsArmed  int
	Erases       int
	BusErrors    int
}

// Count folds an event into the counters.
func (c *EventCounts) Count(e Event) {
	switch e.Type {
	case EventResetPulse:
		if e.Source == SourceAuto {
			c.AutoPulses++
		} else {
			c.ManualPulses++
		}
	case EventSimulationApplied:
		c.Commits++
	case EventFaultArmed:
		c.FaultsArmed++
	case EventSettingsErased:
		c.Erases++
	}
}
