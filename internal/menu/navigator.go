package menu

import (
	"log/slog"
	"time"

	"github.com/sweeney/interlock-panel/internal/display"
	"github.com/sweeney/interlock-panel/internal/interlock"
	"github.com/sweeney/interlock-panel/internal/logic"
)

// Interlocks is the register model as the navigator uses it.
type Interlocks interface {
	Line(idx int) (interlock.Line, bool)
	Status(idx int) interlock.LineStatus
	States() ([interlock.LineCount]interlock.State, error)
	ApplyEditCycleState(idx int, s interlock.State) error
	TriggerResetPulse() error
}

// Store persists the Overview states.
type Store interface {
	SaveOverview(states [interlock.LineCount]interlock.State) error
}

// Auxiliary handles the Auxiliary tab. Events reach it unmodified.
type Auxiliary interface {
	OnShortConfirm(st *State)
	OnLongConfirm(st *State)
	// OnEncoder returns false when the movement should navigate instead.
	OnEncoder(st *State, delta int) bool
	// Tick returns true when it painted something.
	Tick(st *State, now time.Time) bool
	PaintRow(st *State, idx int)
	// Leave is called when the Auxiliary tab stops being shown.
	Leave(st *State)
}

// Holder runs a timed hold that keeps the poll loop stepping.
type Holder interface {
	Hold(d time.Duration) error
}

// Config holds navigator timings.
type Config struct {
	IdleTimeout    time.Duration
	TabRedrawDelay time.Duration
	EditStep       time.Duration
	Flash          time.Duration
	IdleBanner     string
}

// DefaultConfig returns the panel defaults.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:    120 * time.Second,
		TabRedrawDelay: 350 * time.Millisecond,
		EditStep:       300 * time.Millisecond,
		Flash:          300 * time.Millisecond,
		IdleBanner:     "European Spallation Source",
	}
}

// Deps are the navigator's collaborators.
type Deps struct {
	Display    display.Display
	Interlocks Interlocks
	Store      Store
	Aux        Auxiliary
	Holder     Holder
	Emit       func(logic.Event)
	Logger     *slog.Logger
}

// Navigator owns the menu state. It is driven from the poll loop only.
type Navigator struct {
	cfg     Config
	deps    Deps
	log     *slog.Logger
	st      State
	limiter logic.StepLimiter
	dirty   bool
}

// New creates a navigator showing Browsing(Overview, None).
func New(cfg Config, deps Deps, aux logic.AuxSettings) *Navigator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	aux.EditMode = logic.AuxEditNone
	return &Navigator{
		cfg:  cfg,
		deps: deps,
		log:  logger,
		st: State{
			Screen:   ScreenMenu,
			Location: Location{Tab: TabOverview, Index: NoSelection},
			Aux:      aux,
		},
		limiter: logic.StepLimiter{Interval: cfg.EditStep},
	}
}

// State returns a copy of the menu state.
func (n *Navigator) State() State {
	return n.st
}

// SetAux replaces the auxiliary settings, for example after loading them.
func (n *Navigator) SetAux(a logic.AuxSettings) {
	a.EditMode = logic.AuxEditNone
	n.st.Aux = a
}

// Start paints the first screen.
func (n *Navigator) Start(now time.Time) {
	n.st.LastAction = now
	n.Redraw()
	n.flush()
}

// Redraw repaints the whole screen for the current state.
func (n *Navigator) Redraw() {
	if n.st.Screen == ScreenIdle {
		n.paintIdle()
		return
	}
	n.paintHeader()
	n.paintBody()
	n.deps.Display.SetEditIndicator(n.st.EditIndicator())
	n.dirty = true
}

// HandleGesture applies one classified gesture.
func (n *Navigator) HandleGesture(g logic.Gesture) {
	defer n.flush()
	n.st.LastAction = g.Time

	if n.st.Screen == ScreenIdle {
		n.wake()
		return
	}

	switch g.Kind {
	case logic.GestureShort:
		n.short(g.Line)
	case logic.GestureLong:
		n.long(g.Line)
	case logic.GestureDouble:
		if g.Line == logic.LineConfirm {
			n.toIdle()
		}
	}
}

// HandleEncoder applies an encoder movement.
func (n *Navigator) HandleEncoder(delta int, now time.Time) {
	if delta == 0 {
		return
	}
	defer n.flush()
	n.st.LastAction = now

	if n.st.Screen == ScreenIdle {
		n.wake()
		return
	}

	if n.st.Edit.Active {
		if !n.limiter.Allow(now) {
			return
		}
		n.st.Edit.Cycle = n.st.Edit.Cycle.Step(sign(delta))
		n.paintRow(n.st.Location.Index)
		return
	}

	if n.st.Location.Tab == TabAuxiliary && n.deps.Aux != nil && n.deps.Aux.OnEncoder(&n.st, delta) {
		n.dirty = true
		return
	}
	if n.st.EditIndicator() {
		return
	}

	step := sign(delta)
	for i := 0; i < abs(delta); i++ {
		n.move(step)
	}
}

// Tick runs time-based work: the deferred body repaint, the auxiliary
// controller and the idle timeout.
func (n *Navigator) Tick(now time.Time) {
	defer n.flush()

	if n.st.Screen == ScreenMenu && n.st.BodyRedrawPending && !now.Before(n.st.BodyRedrawAt) {
		n.st.BodyRedrawPending = false
		n.paintBody()
	}

	if n.deps.Aux != nil && n.deps.Aux.Tick(&n.st, now) {
		n.dirty = true
	}

	if n.st.Screen == ScreenMenu && n.cfg.IdleTimeout > 0 && now.Sub(n.st.LastAction) >= n.cfg.IdleTimeout {
		n.log.Info("idle timeout", "after", n.cfg.IdleTimeout)
		n.toIdle()
	}
}

func (n *Navigator) short(l logic.Line) {
	switch l {
	case logic.LineUp, logic.LineDown:
		if n.st.EditIndicator() {
			return
		}
		if l == logic.LineUp {
			n.move(-1)
		} else {
			n.move(+1)
		}
	case logic.LineLeft, logic.LineRight:
		if n.st.EditIndicator() {
			return
		}
		if l == logic.LineLeft {
			n.changeTab(-1)
		} else {
			n.changeTab(+1)
		}
	case logic.LineConfirm:
		switch {
		case n.st.Edit.Active:
			n.commit()
		case n.st.Location.Tab == TabAuxiliary && n.deps.Aux != nil:
			n.deps.Aux.OnShortConfirm(&n.st)
			n.dirty = true
		}
	}
}

func (n *Navigator) long(l logic.Line) {
	switch l {
	case logic.LineConfirm:
		switch n.st.Location.Tab {
		case TabAuxiliary:
			if n.deps.Aux != nil {
				n.deps.Aux.OnLongConfirm(&n.st)
				n.dirty = true
			}
		case TabOverview:
			if n.st.Edit.Active {
				n.cancelEdit()
				return
			}
			n.beginEdit()
		}
	case logic.LineDown:
		if n.st.Location.Tab == TabOverview && n.st.Location.Index == interlock.ResetLine && !n.st.EditIndicator() {
			n.manualReset()
		}
	}
}

func (n *Navigator) move(delta int) {
	count := ItemCount(n.st.Location.Tab)
	if count == 0 {
		return
	}
	old := n.st.Location.Index
	next := 0
	if old != NoSelection {
		next = clamp(old+delta, 0, count-1)
	}
	if next == old {
		return
	}
	n.st.Location.Index = next
	if old != NoSelection {
		n.paintRow(old)
	}
	n.paintRow(next)
}

func (n *Navigator) changeTab(delta int) {
	next := Tab(clamp(int(n.st.Location.Tab)+delta, 0, int(TabCount)-1))
	if next == n.st.Location.Tab {
		return
	}
	if n.st.Location.Tab == TabAuxiliary && n.deps.Aux != nil {
		n.deps.Aux.Leave(&n.st)
	}
	n.st.Location = Location{Tab: next, Index: NoSelection}
	n.paintHeader()

	n.deps.Display.ClearRegion(BodyRect, display.Black)
	n.st.BodyRedrawPending = true
	n.st.BodyRedrawAt = n.st.LastAction.Add(n.cfg.TabRedrawDelay)
	n.dirty = true
}

func (n *Navigator) beginEdit() {
	idx := n.st.Location.Index
	if idx == NoSelection {
		return
	}
	line, ok := n.deps.Interlocks.Line(idx)
	if !ok || !line.AllowSim {
		n.log.Debug("edit refused", "line", line.Label)
		return
	}
	n.st.Edit = EditSession{Active: true, Cycle: interlock.RealSensed}
	n.limiter.Reset()
	n.deps.Display.SetEditIndicator(true)
	n.paintRow(idx)
}

func (n *Navigator) cancelEdit() {
	n.st.Edit = EditSession{}
	n.deps.Display.SetEditIndicator(n.st.EditIndicator())
	n.paintRow(n.st.Location.Index)
}

func (n *Navigator) commit() {
	idx := n.st.Location.Index
	cycle := n.st.Edit.Cycle
	line, _ := n.deps.Interlocks.Line(idx)

	if err := n.deps.Interlocks.ApplyEditCycleState(idx, cycle); err != nil {
		n.log.Warn("apply edit state failed", "line", line.Label, "state", cycle, "err", err)
	} else {
		n.log.Info("simulation applied", "line", line.Label, "state", cycle)
		n.emit(logic.Event{
			Timestamp: n.st.LastAction,
			Type:      logic.EventSimulationApplied,
			Line:      line.Label,
			State:     cycle.String(),
		})
	}

	if n.deps.Store != nil {
		states, err := n.deps.Interlocks.States()
		if err == nil {
			err = n.deps.Store.SaveOverview(states)
		}
		if err != nil {
			n.log.Warn("save overview failed", "err", err)
		}
	}

	n.st.Edit = EditSession{}
	n.deps.Display.SetEditIndicator(n.st.EditIndicator())
	n.paintRow(idx)
}

func (n *Navigator) manualReset() {
	row := interlock.ResetLine
	n.paintRow(row)
	p := RowTextPos(row)
	n.deps.Display.DrawText(display.Point{X: flashX, Y: p.Y}, "*", display.Yellow, textSize)
	n.flush()

	if n.deps.Holder != nil && n.cfg.Flash > 0 {
		if err := n.deps.Holder.Hold(n.cfg.Flash); err != nil {
			n.log.Debug("flash hold skipped", "err", err)
		}
	}
	n.paintRow(row)
	n.flush()

	if err := n.deps.Interlocks.TriggerResetPulse(); err != nil {
		n.log.Warn("manual reset pulse failed", "err", err)
		return
	}
	n.log.Info("reset pulse", "source", logic.SourceManual)
	n.emit(logic.Event{
		Timestamp: n.st.LastAction,
		Type:      logic.EventResetPulse,
		Line:      "Reset",
		Source:    logic.SourceManual,
	})
}

func (n *Navigator) wake() {
	n.st.Screen = ScreenMenu
	n.st.Location.Index = NoSelection
	n.st.BodyRedrawPending = false
	n.Redraw()
}

func (n *Navigator) toIdle() {
	if n.st.Location.Tab == TabAuxiliary && n.deps.Aux != nil {
		n.deps.Aux.Leave(&n.st)
	}
	n.st.Edit = EditSession{}
	n.st.Aux.EditMode = logic.AuxEditNone
	n.st.Screen = ScreenIdle
	n.st.BodyRedrawPending = false
	n.paintIdle()
}

func (n *Navigator) emit(e logic.Event) {
	if n.deps.Emit != nil {
		n.deps.Emit(e)
	}
}

func (n *Navigator) flush() {
	if !n.dirty {
		return
	}
	n.dirty = false
	if err := n.deps.Display.Flush(); err != nil {
		n.log.Warn("display flush failed", "err", err)
	}
}

// Painting.

func (n *Navigator) paintIdle() {
	d := n.deps.Display
	d.ClearRegion(display.Rect{W: display.Width, H: display.Height}, display.Black)
	d.SetEditIndicator(false)
	d.DrawText(display.Point{X: 60, Y: 120}, n.cfg.IdleBanner, display.White, textSize)
	n.dirty = true
}

func (n *Navigator) paintHeader() {
	d := n.deps.Display
	for t := Tab(0); t < TabCount; t++ {
		sel := t == n.st.Location.Tab
		r := tabRect(t)
		bg, fg := RowColors(sel)
		d.ClearRegion(r, bg)
		d.DrawText(display.Point{X: r.X, Y: tabTextY}, t.String(), fg, textSize)
	}
	n.dirty = true
}

func (n *Navigator) paintBody() {
	n.deps.Display.ClearRegion(BodyRect, display.Black)
	for i := 0; i < ItemCount(n.st.Location.Tab); i++ {
		n.paintRow(i)
	}
	n.dirty = true
}

func (n *Navigator) paintRow(idx int) {
	if idx == NoSelection || idx >= ItemCount(n.st.Location.Tab) {
		return
	}
	// The deferred body repaint will draw every row.
	if n.st.BodyRedrawPending {
		return
	}
	n.dirty = true

	switch n.st.Location.Tab {
	case TabOverview:
		n.paintOverviewRow(idx)
	case TabSettings:
		PaintTextRow(n.deps.Display, idx, n.st.Selected(idx), settingsLabel(idx))
	case TabAuxiliary:
		if n.deps.Aux != nil {
			n.deps.Aux.PaintRow(&n.st, idx)
		}
	}
}

func (n *Navigator) paintOverviewRow(idx int) {
	d := n.deps.Display
	status := n.deps.Interlocks.Status(idx)
	PaintTextRow(d, idx, n.st.Selected(idx), status.Line.Label)

	ind := status.Indicator
	if n.st.Edit.Active && n.st.Selected(idx) {
		ind = interlock.IndicatorFor(n.st.Edit.Cycle, status.SensedActive)
	}

	r := RowRect(idx)
	center := display.Point{X: circleX, Y: r.Y + rowHeight/2}
	if ind.Ring {
		d.DrawFilledCircle(center, ringRadius, display.Yellow)
	}
	d.DrawFilledCircle(center, circleRadius, toneColor(ind.Tone))
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
