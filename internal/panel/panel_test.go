package panel

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/interlock-panel/internal/auxtab"
	"github.com/sweeney/interlock-panel/internal/backlight"
	"github.com/sweeney/interlock-panel/internal/display"
	"github.com/sweeney/interlock-panel/internal/expander"
	"github.com/sweeney/interlock-panel/internal/gpio"
	"github.com/sweeney/interlock-panel/internal/hold"
	"github.com/sweeney/interlock-panel/internal/interlock"
	"github.com/sweeney/interlock-panel/internal/logic"
	"github.com/sweeney/interlock-panel/internal/menu"
	"github.com/sweeney/interlock-panel/internal/storage"
)

type harness struct {
	p      *Panel
	reader *gpio.FakeReader
	regs   *expander.Fake
	mem    *storage.FakeMemory
	disp   *display.Recorder
	bl     *backlight.Fake
	clock  *hold.FakeClock
	events []logic.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reader: gpio.NewFakeReader(nil),
		regs:   expander.NewFake(),
		mem:    storage.NewFakeMemory(0x400, 256),
		disp:   display.NewRecorder(),
		bl:     &backlight.Fake{},
		clock:  hold.NewFakeClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
	}
	return h
}

func (h *harness) start() {
	h.p = New(DefaultConfig(), Deps{
		Reader:    h.reader,
		Expander:  h.regs,
		Memory:    h.mem,
		Display:   h.disp,
		Backlight: h.bl,
		Prober:    auxtab.FakeProber{},
		Clock:     h.clock,
		OnEvent:   func(e logic.Event) { h.events = append(h.events, e) },
	})
	h.p.Start(h.clock.Now())
}

// ticks runs n poll cycles, advancing the clock by the poll interval.
func (h *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.p.Tick(h.clock.Now())
		h.clock.Advance(5 * time.Millisecond)
	}
}

func (h *harness) click(l logic.Line) {
	h.reader.Press(l)
	h.ticks(6)
	h.reader.Release(l)
	h.ticks(6)
}

// seedStore writes records the way a previous run would have.
func (h *harness) seedStore(t *testing.T, states [interlock.LineCount]interlock.State, a *logic.AuxSettings) {
	t.Helper()
	s := storage.NewStore(h.mem, hold.NewRunner(h.clock, time.Millisecond), nil)
	if err := s.SaveOverview(states); err != nil {
		t.Fatalf("seed overview: %v", err)
	}
	if a != nil {
		if err := s.SaveAux(*a); err != nil {
			t.Fatalf("seed aux: %v", err)
		}
	}
}

func (h *harness) eventsOf(typ logic.EventType) []logic.Event {
	var out []logic.Event
	for _, e := range h.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestStartWithBlankMemoryUsesDefaults(t *testing.T) {
	h := newHarness(t)
	h.start()

	st := h.p.Report().Menu
	if st.Location.Tab != menu.TabOverview || st.Location.Index != menu.NoSelection {
		t.Errorf("expected Overview with no selection, got %+v", st.Location)
	}
	if st.Aux != logic.DefaultAuxSettings() {
		t.Errorf("expected default aux settings, got %+v", st.Aux)
	}
	if h.regs.Config(0) != 0xFF || h.regs.Config(1) != 0xFF {
		t.Errorf("expected all expander pins as inputs, got %02x %02x", h.regs.Config(0), h.regs.Config(1))
	}
	if code, ok := h.bl.Last(); !ok || code != logic.DefaultAuxSettings().LCDBrightness {
		t.Errorf("expected default brightness applied, got %d (%v)", code, ok)
	}
	if !h.disp.HasText("Overview") {
		t.Error("expected the Overview header to be painted")
	}
}

func TestStartRestoresSavedStates(t *testing.T) {
	h := newHarness(t)
	var states [interlock.LineCount]interlock.State
	states[0] = interlock.SimOn
	states[3] = interlock.SimOff
	a := logic.DefaultAuxSettings()
	a.LCDBrightness = 42
	a.AutoResetEnabled = true
	a.AutoResetDelay = 700 * time.Millisecond
	h.seedStore(t, states, &a)

	h.start()

	r := h.p.Report()
	if r.Lines[0].Mode != interlock.SimOn {
		t.Errorf("expected line 0 SIM_ON, got %v", r.Lines[0].Mode)
	}
	if r.Lines[3].Mode != interlock.SimOff {
		t.Errorf("expected line 3 SIM_OFF, got %v", r.Lines[3].Mode)
	}
	if r.Lines[1].Mode != interlock.RealSensed {
		t.Errorf("expected line 1 REAL, got %v", r.Lines[1].Mode)
	}
	if r.Menu.Aux.LCDBrightness != 42 || !r.Menu.Aux.AutoResetEnabled || r.Menu.Aux.AutoResetDelay != 700*time.Millisecond {
		t.Errorf("expected restored aux settings, got %+v", r.Menu.Aux)
	}
	if code, _ := h.bl.Last(); code != 42 {
		t.Errorf("expected brightness 42 applied, got %d", code)
	}
}

func TestButtonClickReachesMenu(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.click(logic.LineDown)

	if got := h.p.Report().Menu.Location.Index; got != 0 {
		t.Errorf("expected first row selected, got %d", got)
	}

	h.click(logic.LineDown)
	if got := h.p.Report().Menu.Location.Index; got != 1 {
		t.Errorf("expected second row selected, got %d", got)
	}
}

func TestEncoderDetentMovesSelection(t *testing.T) {
	h := newHarness(t)
	h.start()

	// One full clockwise cycle: 00 -> 10 -> 11 -> 01 -> 00.
	for _, ph := range [][2]bool{{true, false}, {true, true}, {false, true}, {false, false}} {
		h.reader.SetEncoder(ph[0], ph[1])
		h.ticks(1)
	}

	if got := h.p.Report().Menu.Location.Index; got == menu.NoSelection {
		t.Error("expected encoder rotation to select a row")
	}
}

func TestEditCommitIsSavedAndReported(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.click(logic.LineDown) // select line 0

	h.reader.Press(logic.LineConfirm)
	h.ticks(200) // long press
	h.reader.Release(logic.LineConfirm)
	h.ticks(6)

	if !h.p.Report().Menu.Edit.Active {
		t.Fatal("expected an edit session after a long confirm")
	}

	// Encoder one step forward, then confirm.
	for _, ph := range [][2]bool{{true, false}, {true, true}, {false, true}, {false, false}} {
		h.reader.SetEncoder(ph[0], ph[1])
		h.ticks(1)
	}
	h.click(logic.LineConfirm)
	h.ticks(100) // lapse the double window

	if got := len(h.eventsOf(logic.EventSimulationApplied)); got != 1 {
		t.Fatalf("expected 1 SIMULATION_APPLIED, got %d", got)
	}
	if got := h.p.Report().Lines[0].Mode; got != interlock.SimOn {
		t.Errorf("expected line 0 SIM_ON after one clockwise step, got %v", got)
	}
	if h.mem.Byte(storage.OverviewAddr) != storage.OverviewMarker {
		t.Errorf("expected overview record marker, got %02x", h.mem.Byte(storage.OverviewAddr))
	}
	if h.p.Counts().Commits != 1 {
		t.Errorf("expected 1 commit counted, got %d", h.p.Counts().Commits)
	}
}

func TestAutoResetFiresAfterDelay(t *testing.T) {
	h := newHarness(t)
	a := logic.DefaultAuxSettings()
	a.AutoResetEnabled = true
	a.AutoResetDelay = time.Second
	h.seedStore(t, [interlock.LineCount]interlock.State{}, &a)

	gl := interlock.DefaultLines()[interlock.GlobalFaultLine]
	h.regs.SetPin(gl.Port, gl.Bit, false) // active low: faulted
	h.regs.OnWrite = func(reg, val byte) {
		// The reset pulse clears the latched fault.
		if reg == expander.Reg(expander.RegConfig, 0) && val&0x80 == 0 {
			h.regs.SetPin(gl.Port, gl.Bit, true)
		}
	}

	h.start()
	h.ticks(1)

	if got := len(h.eventsOf(logic.EventFaultArmed)); got != 1 {
		t.Fatalf("expected FAULT_ARMED once, got %d", got)
	}
	if !h.p.Report().Watchdog.Pending {
		t.Fatal("expected pending watchdog")
	}

	h.ticks(150)
	if got := len(h.eventsOf(logic.EventResetPulse)); got != 0 {
		t.Fatalf("expected no pulse before the delay, got %d", got)
	}

	h.ticks(60)
	pulses := h.eventsOf(logic.EventResetPulse)
	if len(pulses) != 1 {
		t.Fatalf("expected 1 reset pulse, got %d", len(pulses))
	}
	if pulses[0].Source != logic.SourceAuto {
		t.Errorf("expected auto source, got %q", pulses[0].Source)
	}
	if h.p.Report().Watchdog.Pending {
		t.Error("expected watchdog cleared after firing")
	}
	if h.p.Counts().AutoPulses != 1 {
		t.Errorf("expected 1 auto pulse counted, got %d", h.p.Counts().AutoPulses)
	}

	h.ticks(400)
	if got := len(h.eventsOf(logic.EventResetPulse)); got != 1 {
		t.Errorf("expected no further pulses once the fault cleared, got %d", got)
	}
}

func TestAutoResetDisabledIgnoresFault(t *testing.T) {
	h := newHarness(t)
	gl := interlock.DefaultLines()[interlock.GlobalFaultLine]
	h.regs.SetPin(gl.Port, gl.Bit, false)
	h.start()

	h.ticks(1000)

	if len(h.eventsOf(logic.EventFaultArmed)) != 0 || len(h.eventsOf(logic.EventResetPulse)) != 0 {
		t.Errorf("expected no watchdog activity, got %+v", h.events)
	}
}

func TestManualResetDuringHoldKeepsPolling(t *testing.T) {
	h := newHarness(t)
	h.start()

	// Navigate to the Reset row.
	for i := 0; i <= interlock.ResetLine; i++ {
		h.click(logic.LineDown)
	}
	if got := h.p.Report().Menu.Location.Index; got != interlock.ResetLine {
		t.Fatalf("expected Reset row selected, got %d", got)
	}

	h.reader.Press(logic.LineDown)
	h.ticks(200)
	h.reader.Release(logic.LineDown)
	h.ticks(6)

	pulses := h.eventsOf(logic.EventResetPulse)
	if len(pulses) != 1 || pulses[0].Source != logic.SourceManual {
		t.Fatalf("expected one manual reset pulse, got %+v", pulses)
	}
	if h.clock.Slept < 800*time.Millisecond {
		t.Errorf("expected flash and pulse holds, slept %v", h.clock.Slept)
	}
	if h.regs.Config(0)&0x80 == 0 || h.regs.Config(1)&0x40 == 0 {
		t.Error("expected reset pins released to input after the pulse")
	}
}

func TestReadErrorCountsBusError(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.reader.ReadError = errors.New("line request gone")
	h.ticks(3)

	if got := h.p.Counts().BusErrors; got != 3 {
		t.Errorf("expected 3 bus errors, got %d", got)
	}

	h.reader.ReadError = nil
	h.click(logic.LineDown)
	if got := h.p.Report().Menu.Location.Index; got != 0 {
		t.Errorf("expected input to resume after errors, got index %d", got)
	}
}

func TestExpanderErrorIsFailSafe(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.regs.ReadError = errors.New("nack")
	r := h.p.Report()

	for i, l := range r.Lines {
		if l.Err == nil {
			t.Errorf("line %d: expected error in status", i)
		}
	}
}
