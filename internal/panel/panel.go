// Package panel owns the poll loop. Every tick it samples the front
// panel, classifies gestures, decodes the encoder, steps the auto-reset
// watchdog and hands queued input to the menu.
package panel

import (
	"errors"
	"log/slog"
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

// Config holds the panel timings.
type Config struct {
	Poll       time.Duration
	ResetPulse time.Duration
	Classifier logic.ClassifierConfig
	Menu       menu.Config
	Aux        auxtab.Config
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Poll:       5 * time.Millisecond,
		ResetPulse: 500 * time.Millisecond,
		Classifier: logic.DefaultClassifierConfig(),
		Menu:       menu.DefaultConfig(),
		Aux:        auxtab.DefaultConfig(),
	}
}

// Deps are the hardware collaborators. Backlight and Prober may be nil.
type Deps struct {
	Reader    gpio.Reader
	Expander  expander.Registers
	Memory    storage.Memory
	Display   display.Display
	Backlight backlight.Controller
	Prober    auxtab.Prober
	Clock     hold.Clock
	// OnEvent receives every panel event. It must not block.
	OnEvent func(logic.Event)
	Logger  *slog.Logger
}

// input is one queued item for the menu.
type input struct {
	gesture *logic.Gesture
	delta   int
	time    time.Time
}

// Panel wires the state machines to the hardware.
type Panel struct {
	cfg    Config
	deps   Deps
	log    *slog.Logger
	runner *hold.Runner

	model *interlock.Model
	store *storage.Store
	nav   *menu.Navigator
	aux   *auxtab.Controller

	classifier *logic.Classifier
	decoder    *logic.Decoder
	watchdog   *logic.Watchdog

	queue  []input
	counts logic.EventCounts

	readFailing bool
}

// New builds a panel. Nothing touches the hardware until Start.
func New(cfg Config, deps Deps) *Panel {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = hold.RealClock{}
	}

	p := &Panel{
		cfg:        cfg,
		deps:       deps,
		log:        logger,
		classifier: logic.NewClassifier(cfg.Classifier),
		decoder:    logic.NewDecoder(),
		watchdog:   logic.NewWatchdog(),
	}
	p.runner = hold.NewRunner(clock, cfg.Poll)
	p.runner.SetStep(p.step)

	p.model = interlock.NewModel(deps.Expander, p.runner, cfg.ResetPulse, logger.With("component", "interlock"))
	p.store = storage.NewStore(deps.Memory, p.runner, logger.With("component", "storage"))
	p.aux = auxtab.New(cfg.Aux, deps.Display, p.store, deps.Backlight, deps.Prober, p.emit, logger.With("component", "aux"))
	p.nav = menu.New(cfg.Menu, menu.Deps{
		Display:    deps.Display,
		Interlocks: p.model,
		Store:      p.store,
		Aux:        p.aux,
		Holder:     p.runner,
		Emit:       p.emit,
		Logger:     logger.With("component", "menu"),
	}, logic.DefaultAuxSettings())
	return p
}

// Start initialises the expander, restores saved settings and paints the
// first screen. Device errors are logged; the panel still starts.
func (p *Panel) Start(now time.Time) {
	if err := p.model.Init(); err != nil {
		p.busError("expander init failed", err)
	}

	states, ok, err := p.store.LoadOverview()
	switch {
	case err != nil:
		p.busError("load overview failed", err)
	case !ok:
		p.log.Info("no overview record, using defaults")
	default:
		for i, s := range states {
			if err := p.model.ApplyEditCycleState(i, s); err != nil {
				p.busError("restore line failed", err)
			}
		}
		p.log.Info("overview restored", "states", states)
	}

	a, ok, err := p.store.LoadAux()
	switch {
	case err != nil:
		p.busError("load aux failed", err)
	case !ok:
		p.log.Info("no aux record, using defaults")
	}
	p.nav.SetAux(a)
	p.aux.Start(a)

	if s, err := p.deps.Reader.Read(); err == nil {
		p.decoder.Reset(s.EncA, s.EncB)
	}
	p.nav.Start(now)
}

// Tick runs one poll cycle.
func (p *Panel) Tick(now time.Time) {
	p.step(now)
	p.dispatch()
	p.nav.Tick(now)
}

// step samples and classifies. It also runs inside holds, so it only
// queues menu input.
func (p *Panel) step(now time.Time) {
	s, err := p.deps.Reader.Read()
	if err != nil {
		if !p.readFailing {
			p.log.Warn("panel read failed", "err", err)
			p.readFailing = true
		}
		p.counts.BusErrors++
	} else {
		p.readFailing = false
		for _, g := range p.classifier.Process(logic.Input{Pressed: s.Buttons, Time: now}) {
			g := g
			p.log.Debug("gesture", "line", g.Line, "kind", g.Kind)
			p.queue = append(p.queue, input{gesture: &g, time: now})
		}
		if d := p.decoder.Step(s.EncA, s.EncB); d != 0 {
			p.queue = append(p.queue, input{delta: d, time: now})
		}
	}
	p.stepWatchdog(now)
}

func (p *Panel) stepWatchdog(now time.Time) {
	st := p.nav.State()
	line, _ := p.model.Line(interlock.GlobalFaultLine)

	faulted := false
	if st.Aux.AutoResetEnabled {
		var err error
		faulted, err = p.model.ReadSensedActive(line.Port, line.Bit)
		if err != nil {
			p.busError("global fault read failed", err)
			faulted = false
		}
	}

	d := p.watchdog.Step(logic.WatchdogInput{
		Enabled: st.Aux.AutoResetEnabled,
		Delay:   st.Aux.AutoResetDelay,
		Faulted: faulted,
		Time:    now,
	})
	if d.Armed {
		p.log.Info("global fault, auto reset armed", "delay", st.Aux.AutoResetDelay)
		p.emit(logic.Event{Timestamp: now, Type: logic.EventFaultArmed, Line: line.Label})
	}
	if !d.Fire {
		return
	}

	err := p.model.TriggerResetPulse()
	if errors.Is(err, hold.ErrNested) {
		p.watchdog.Complete(false)
		return
	}
	p.watchdog.Complete(true)
	if err != nil {
		p.busError("auto reset pulse failed", err)
		return
	}
	p.log.Info("reset pulse", "source", logic.SourceAuto)
	p.emit(logic.Event{Timestamp: now, Type: logic.EventResetPulse, Line: "Reset", Source: logic.SourceAuto})
}

// dispatch hands queued input to the menu, oldest first. Input queued by
// holds started from a handler is drained by the same loop.
func (p *Panel) dispatch() {
	if p.runner.Active() {
		return
	}
	for len(p.queue) > 0 {
		in := p.queue[0]
		p.queue = p.queue[1:]
		if in.gesture != nil {
			p.nav.HandleGesture(*in.gesture)
		} else {
			p.nav.HandleEncoder(in.delta, in.time)
		}
	}
	p.queue = nil
}

func (p *Panel) emit(e logic.Event) {
	p.counts.Count(e)
	if p.deps.OnEvent != nil {
		p.deps.OnEvent(e)
	}
}

func (p *Panel) busError(msg string, err error) {
	p.counts.BusErrors++
	p.log.Warn(msg, "err", err)
}

// Report is a point-in-time view of the panel for status output.
type Report struct {
	Lines    [interlock.LineCount]interlock.LineStatus
	Menu     menu.State
	Watchdog logic.WatchdogState
	Counts   logic.EventCounts
}

// Report reads every line and collects the panel state. It must be
// called from the poll loop goroutine.
func (p *Panel) Report() Report {
	var r Report
	for i := range r.Lines {
		r.Lines[i] = p.model.Status(i)
	}
	r.Menu = p.nav.State()
	r.Watchdog = p.watchdog.State()
	r.Counts = p.counts
	return r
}

// Counts returns the event counters.
func (p *Panel) Counts() logic.EventCounts {
	return p.counts
}
