// Package auxtab implements the Auxiliary tab: backlight level, the I²C
// device self test, EEPROM format, the auto-reset settings and the locked
// power table row.
package auxtab

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/interlock-panel/internal/backlight"
	"github.com/sweeney/interlock-panel/internal/display"
	"github.com/sweeney/interlock-panel/internal/logic"
	"github.com/sweeney/interlock-panel/internal/menu"
)

// Store persists aux settings and erases the memory.
type Store interface {
	SaveAux(a logic.AuxSettings) error
	Erase() error
}

// Prober reports whether an I²C address answers.
type Prober interface {
	Probe(addr uint16) bool
}

// Device is one entry of the self test.
type Device struct {
	Name string
	Addr uint16
}

// Devices are the I²C parts probed by the self test.
var Devices = []Device{
	{"TCA9555 MCU", 0x20},
	{"ADC PMOP", 0x21},
	{"ADC RFOPD", 0x22},
	{"VR PMOP", 0x28},
	{"VR RFOPD", 0x2B},
	{"RT4527A MB", 0x36},
	{"EEPROM MCU", 0x50},
}

// Config holds aux timings.
type Config struct {
	// TestDuration is how long the self-test results stay on screen.
	TestDuration time.Duration
	// SaveDelay is how long a brightness change must settle before it is
	// saved.
	SaveDelay time.Duration
}

// DefaultConfig returns the panel defaults.
func DefaultConfig() Config {
	return Config{
		TestDuration: 10 * time.Second,
		SaveDelay:    time.Second,
	}
}

// Controller is the Auxiliary tab handler.
type Controller struct {
	cfg       Config
	d         display.Display
	store     Store
	backlight backlight.Controller
	probe     Prober
	emit      func(logic.Event)
	log       *slog.Logger

	testing   bool
	testUntil time.Time

	dirty   bool
	dirtyAt time.Time
}

// New creates a Controller. backlight and probe may be nil when the
// hardware is absent.
func New(cfg Config, d display.Display, store Store, bl backlight.Controller, probe Prober, emit func(logic.Event), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:       cfg,
		d:         d,
		store:     store,
		backlight: bl,
		probe:     probe,
		emit:      emit,
		log:       logger,
	}
}

// Start applies the loaded settings to the hardware.
func (c *Controller) Start(a logic.AuxSettings) {
	c.setBrightness(a.LCDBrightness)
}

// Testing reports whether the self-test results are on screen.
func (c *Controller) Testing() bool {
	return c.testing
}

// OnShortConfirm leaves the auto-reset delay edit.
func (c *Controller) OnShortConfirm(st *menu.State) {
	if st.Location.Index == menu.AuxAutoReset && st.Aux.EditMode == logic.AuxEditByte {
		c.leaveEdit(st)
	}
}

// OnLongConfirm runs the action of the selected row.
func (c *Controller) OnLongConfirm(st *menu.State) {
	switch st.Location.Index {
	case menu.AuxInternalTest:
		c.runTest(st)
	case menu.AuxEEPROMFormat:
		c.format(st)
	case menu.AuxAutoReset:
		if st.Aux.EditMode != logic.AuxEditNone {
			c.leaveEdit(st)
			return
		}
		st.Aux.AutoResetEnabled = !st.Aux.AutoResetEnabled
		c.log.Info("auto reset toggled", "enabled", st.Aux.AutoResetEnabled)
		if st.Aux.AutoResetEnabled {
			st.Aux.EditMode = logic.AuxEditByte
			c.d.SetEditIndicator(true)
		}
		c.save(st)
		c.PaintRow(st, menu.AuxAutoReset)
	}
}

// OnEncoder adjusts the brightness or, in delay edit, the auto-reset
// delay. Other rows do not use the encoder.
func (c *Controller) OnEncoder(st *menu.State, delta int) bool {
	switch {
	case st.Location.Index == menu.AuxBrightness:
		st.Aux.AdjustBrightness(delta)
		c.setBrightness(st.Aux.LCDBrightness)
		c.dirty = true
		c.dirtyAt = st.LastAction
		c.PaintRow(st, menu.AuxBrightness)
		return true
	case st.Location.Index == menu.AuxAutoReset && st.Aux.EditMode == logic.AuxEditByte:
		st.Aux.AdjustDelay(delta)
		c.PaintRow(st, menu.AuxAutoReset)
		return true
	}
	return false
}

// Tick ends the self-test screen and saves settled changes.
func (c *Controller) Tick(st *menu.State, now time.Time) bool {
	painted := false
	if c.testing && !now.Before(c.testUntil) {
		c.testing = false
		if st.Screen == menu.ScreenMenu && st.Location.Tab == menu.TabAuxiliary {
			c.paintList(st)
			painted = true
		}
	}
	if c.dirty && now.Sub(c.dirtyAt) >= c.cfg.SaveDelay {
		c.save(st)
	}
	return painted
}

// Leave drops the test screen and any delay edit, and saves pending
// changes.
func (c *Controller) Leave(st *menu.State) {
	c.testing = false
	st.Aux.EditMode = logic.AuxEditNone
	if c.dirty {
		c.save(st)
	}
}

// PaintRow draws aux row idx.
func (c *Controller) PaintRow(st *menu.State, idx int) {
	if c.testing {
		return
	}
	menu.PaintTextRow(c.d, idx, st.Selected(idx), rowText(st.Aux, idx))
}

func rowText(a logic.AuxSettings, idx int) string {
	switch idx {
	case menu.AuxBrightness:
		return fmt.Sprintf("LCD brightness: %d", a.LCDBrightness)
	case menu.AuxInternalTest:
		return "Internal test  (long OK)"
	case menu.AuxEEPROMFormat:
		return "EEPROM format  (long OK)"
	case menu.AuxAutoReset:
		state := "OFF"
		if a.AutoResetEnabled {
			state = "ON "
		}
		return fmt.Sprintf("Autoreset: %s  t=%d ms", state, a.AutoResetDelay.Milliseconds())
	case menu.AuxPowerLUT:
		return "Power LUT  (locked)"
	}
	return ""
}

func (c *Controller) paintList(st *menu.State) {
	c.d.ClearRegion(menu.BodyRect, display.Black)
	for i := 0; i < menu.AuxCount; i++ {
		c.PaintRow(st, i)
	}
}

func (c *Controller) leaveEdit(st *menu.State) {
	st.Aux.EditMode = logic.AuxEditNone
	c.d.SetEditIndicator(st.EditIndicator())
	c.save(st)
	c.PaintRow(st, menu.AuxAutoReset)
}

func (c *Controller) runTest(st *menu.State) {
	c.d.ClearRegion(menu.BodyRect, display.Black)
	for i, dev := range Devices {
		ok := c.probe != nil && c.probe.Probe(dev.Addr)
		col, word := display.Green, "OK"
		if !ok {
			col, word = display.Red, "MISSING"
		}
		c.d.DrawText(menu.RowTextPos(i), fmt.Sprintf("%-12s @0x%02X %s", dev.Name, dev.Addr, word), col, 2)
		c.log.Info("self test", "device", dev.Name, "addr", fmt.Sprintf("0x%02x", dev.Addr), "ok", ok)
	}
	c.testing = true
	c.testUntil = st.LastAction.Add(c.cfg.TestDuration)
}

var formatBox = display.Rect{X: 100, Y: 120, W: 280, H: 40}

func (c *Controller) format(st *menu.State) {
	c.d.ClearRegion(formatBox, display.White)
	c.d.ClearRegion(display.Rect{X: formatBox.X + 1, Y: formatBox.Y + 1, W: formatBox.W - 2, H: formatBox.H - 2}, display.Black)
	c.d.DrawText(display.Point{X: formatBox.X + 10, Y: formatBox.Y + 10}, "Formatting...", display.White, 2)
	if err := c.d.Flush(); err != nil {
		c.log.Warn("display flush failed", "err", err)
	}

	if c.store == nil {
		return
	}
	if err := c.store.Erase(); err != nil {
		c.log.Warn("eeprom format failed", "err", err)
	} else {
		c.log.Info("eeprom formatted")
		if c.emit != nil {
			c.emit(logic.Event{Timestamp: st.LastAction, Type: logic.EventSettingsErased})
		}
	}
	c.paintList(st)
}

func (c *Controller) setBrightness(code uint8) {
	if c.backlight == nil {
		return
	}
	if err := c.backlight.SetBrightness(code); err != nil {
		c.log.Warn("set brightness failed", "code", code, "err", err)
	}
}

func (c *Controller) save(st *menu.State) {
	c.dirty = false
	if c.store == nil {
		return
	}
	if err := c.store.SaveAux(st.Aux); err != nil {
		c.log.Warn("save aux settings failed", "err", err)
	}
}
