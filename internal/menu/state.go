// Package menu is the front-panel navigator: tabs, row selection, the
// interlock edit session and the idle screen.
package menu

import (
	"time"

	"github.com/sweeney/interlock-panel/internal/interlock"
	"github.com/sweeney/interlock-panel/internal/logic"
)

// Tab is one page of the menu.
type Tab int

const (
	TabOverview Tab = iota
	TabSettings
	TabAuxiliary
	TabCount
)

func (t Tab) String() string {
	switch t {
	case TabOverview:
		return "Overview"
	case TabSettings:
		return "Settings"
	case TabAuxiliary:
		return "Aux"
	}
	return "Unknown"
}

// Auxiliary tab rows.
const (
	AuxBrightness = iota
	AuxInternalTest
	AuxEEPROMFormat
	AuxAutoReset
	AuxPowerLUT
	AuxCount
)

// ItemCount returns the number of rows on tab.
func ItemCount(t Tab) int {
	switch t {
	case TabOverview:
		return interlock.LineCount
	case TabSettings:
		return 8
	case TabAuxiliary:
		return AuxCount
	}
	return 0
}

// NoSelection is the row index when nothing is selected.
const NoSelection = -1

// Screen is what the whole display shows.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenIdle
)

// Mode is the navigator state as seen from outside.
type Mode string

const (
	ModeIdle     Mode = "IDLE"
	ModeBrowsing Mode = "BROWSING"
	ModeEditing  Mode = "EDITING"
)

// Location is the current tab and selected row.
type Location struct {
	Tab   Tab
	Index int // NoSelection or < ItemCount(Tab)
}

// EditSession is the Overview edit cycle. Active implies a selected row.
type EditSession struct {
	Active bool
	Cycle  interlock.State
}

// State is the single application state shared by the navigator and the
// auxiliary controller. The Overview edit session and Aux.EditMode are
// the only edit flags.
type State struct {
	Screen     Screen
	Location   Location
	Edit       EditSession
	Aux        logic.AuxSettings
	LastAction time.Time

	BodyRedrawPending bool
	BodyRedrawAt      time.Time
}

// EditIndicator reports whether any edit mode is active.
func (s State) EditIndicator() bool {
	return s.Edit.Active || s.Aux.EditMode != logic.AuxEditNone
}

// Mode returns the navigator mode.
func (s State) Mode() Mode {
	switch {
	case s.Screen == ScreenIdle:
		return ModeIdle
	case s.EditIndicator():
		return ModeEditing
	}
	return ModeBrowsing
}

// Selected reports whether row idx is selected on the current tab.
func (s State) Selected(idx int) bool {
	return s.Location.Index == idx && idx != NoSelection
}
