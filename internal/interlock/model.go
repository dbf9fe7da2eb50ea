package interlock

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/interlock-panel/internal/expander"
	"github.com/sweeney/interlock-panel/internal/hold"
)

// Holder runs the timed part of the reset pulse.
type Holder interface {
	Hold(d time.Duration) error
	Holding() bool
}

// Model is the only writer of the expander direction and output
// registers. Every read-modify-write runs under one lock so a concurrent
// reader never sees a half-updated register.
type Model struct {
	mu     sync.Mutex
	regs   expander.Registers
	lines  [LineCount]Line
	holder Holder
	pulse  time.Duration
	log    *slog.Logger
}

// NewModel creates a model over regs. pulse is the reset pulse length.
func NewModel(regs expander.Registers, holder Holder, pulse time.Duration, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	if pulse <= 0 {
		pulse = 500 * time.Millisecond
	}
	return &Model{
		regs:   regs,
		lines:  DefaultLines(),
		holder: holder,
		pulse:  pulse,
		log:    logger,
	}
}

// Init puts the expander into all-inputs, normal polarity.
func (m *Model) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return expander.Init(m.regs)
}

// Line returns the table entry for idx.
func (m *Model) Line(idx int) (Line, bool) {
	if idx < 0 || idx >= LineCount {
		return Line{}, false
	}
	return m.lines[idx], true
}

// Lines returns the whole line table.
func (m *Model) Lines() [LineCount]Line {
	return m.lines
}

func (m *Model) readBit(base byte, port, bit int) (bool, error) {
	v, err := m.regs.ReadRegister(expander.Reg(base, port))
	if err != nil {
		return false, err
	}
	return v&(1<<uint(bit)) != 0, nil
}

// ReadSensedActive reports whether the pin reads LOW (active-low).
// Only meaningful while the pin is an input.
func (m *Model) ReadSensedActive(port, bit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	high, err := m.readBit(expander.RegInput, port, bit)
	if err != nil {
		return false, fmt.Errorf("read input %d.%d: %w", port, bit, err)
	}
	return !high, nil
}

// IsSimulated reports whether the pin is configured as an output.
func (m *Model) IsSimulated(port, bit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isSimulated(port, bit)
}

func (m *Model) isSimulated(port, bit int) (bool, error) {
	input, err := m.readBit(expander.RegConfig, port, bit)
	if err != nil {
		return false, fmt.Errorf("read config %d.%d: %w", port, bit, err)
	}
	return !input, nil
}

// OutputHigh reports the output latch of the pin.
func (m *Model) OutputHigh(port, bit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	high, err := m.readBit(expander.RegOutput, port, bit)
	if err != nil {
		return false, fmt.Errorf("read output %d.%d: %w", port, bit, err)
	}
	return high, nil
}

// SetSimulationState makes the pin an output driving LOW (on) or HIGH
// (off).
func (m *Model) SetSimulationState(port, bit int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simulate(port, bit, on)
}

func (m *Model) simulate(port, bit int, on bool) error {
	if err := m.setBit(expander.RegConfig, port, bit, false); err != nil {
		return fmt.Errorf("set direction %d.%d: %w", port, bit, err)
	}
	if err := m.setBit(expander.RegOutput, port, bit, !on); err != nil {
		return fmt.Errorf("set output %d.%d: %w", port, bit, err)
	}
	return nil
}

// ClearSimulation returns the pin to an input.
func (m *Model) ClearSimulation(port, bit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setBit(expander.RegConfig, port, bit, true); err != nil {
		return fmt.Errorf("clear simulation %d.%d: %w", port, bit, err)
	}
	return nil
}

func (m *Model) setBit(base byte, port, bit int, set bool) error {
	reg := expander.Reg(base, port)
	v, err := m.regs.ReadRegister(reg)
	if err != nil {
		return err
	}
	if set {
		v |= 1 << uint(bit)
	} else {
		v &^= 1 << uint(bit)
	}
	return m.regs.WriteRegister(reg, v)
}

// ApplyEditCycleState drives line idx into s. Lines that do not allow
// simulation and out-of-range indices are ignored.
func (m *Model) ApplyEditCycleState(idx int, s State) error {
	l, ok := m.Line(idx)
	if !ok || !l.AllowSim {
		return nil
	}
	switch s {
	case RealSensed:
		return m.ClearSimulation(l.Port, l.Bit)
	case SimOn:
		return m.SetSimulationState(l.Port, l.Bit, true)
	case SimOff:
		return m.SetSimulationState(l.Port, l.Bit, false)
	}
	return nil
}

// EditState derives the edit-cycle state of line idx from the registers.
func (m *Model) EditState(idx int) (State, error) {
	l, ok := m.Line(idx)
	if !ok {
		return RealSensed, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editState(l)
}

func (m *Model) editState(l Line) (State, error) {
	sim, err := m.isSimulated(l.Port, l.Bit)
	if err != nil || !sim {
		return RealSensed, err
	}
	high, err := m.readBit(expander.RegOutput, l.Port, l.Bit)
	if err != nil {
		return RealSensed, fmt.Errorf("read output %d.%d: %w", l.Port, l.Bit, err)
	}
	if high {
		return SimOff, nil
	}
	return SimOn, nil
}

// TriggerResetPulse drives both reset pins HIGH for the pulse length,
// then returns them to inputs. It blocks for the pulse while the holder
// keeps the poll loop stepping. A pulse requested during another hold is
// refused with hold.ErrNested before any pin is touched.
func (m *Model) TriggerResetPulse() error {
	if m.holder != nil && m.holder.Holding() {
		return hold.ErrNested
	}

	m.mu.Lock()
	var driveErr error
	for _, p := range ResetPulsePins {
		if err := m.setBit(expander.RegConfig, p.Port, p.Bit, false); err != nil {
			driveErr = fmt.Errorf("reset pin %d.%d direction: %w", p.Port, p.Bit, err)
			break
		}
		if err := m.setBit(expander.RegOutput, p.Port, p.Bit, true); err != nil {
			driveErr = fmt.Errorf("reset pin %d.%d output: %w", p.Port, p.Bit, err)
			break
		}
	}
	m.mu.Unlock()

	var holdErr error
	if driveErr == nil {
		if m.holder != nil {
			holdErr = m.holder.Hold(m.pulse)
		} else {
			time.Sleep(m.pulse)
		}
	}

	// Always release, even after a partial drive.
	m.mu.Lock()
	var releaseErr error
	for _, p := range ResetPulsePins {
		if err := m.setBit(expander.RegConfig, p.Port, p.Bit, true); err != nil && releaseErr == nil {
			releaseErr = fmt.Errorf("release reset pin %d.%d: %w", p.Port, p.Bit, err)
		}
	}
	m.mu.Unlock()

	switch {
	case driveErr != nil:
		return driveErr
	case holdErr != nil:
		return holdErr
	}
	return releaseErr
}

// LineStatus is a fail-safe view of one line for display.
type LineStatus struct {
	Line         Line
	Mode         State
	SensedActive bool
	Indicator    Indicator
	Err          error
}

// Status reads line idx. On a bus error the line reports as sensed and
// not active, and Err carries the cause.
func (m *Model) Status(idx int) LineStatus {
	l, ok := m.Line(idx)
	if !ok {
		return LineStatus{Indicator: Indicator{Tone: ToneUnknown}}
	}

	m.mu.Lock()
	mode, err := m.editState(l)
	active := false
	if err == nil {
		var high bool
		high, err = m.readBit(expander.RegInput, l.Port, l.Bit)
		if err == nil {
			active = !high
		} else {
			err = fmt.Errorf("read input %d.%d: %w", l.Port, l.Bit, err)
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("interlock read failed", "line", l.Label, "port", l.Port, "bit", l.Bit, "err", err)
		return LineStatus{Line: l, Indicator: IndicatorFor(RealSensed, false), Err: err}
	}
	return LineStatus{
		Line:         l,
		Mode:         mode,
		SensedActive: active,
		Indicator:    IndicatorFor(mode, active),
	}
}

// States reads the edit-cycle state of every line, for persistence.
func (m *Model) States() ([LineCount]State, error) {
	var out [LineCount]State
	for i := range out {
		s, err := m.EditState(i)
		if err != nil {
			return out, err
		}
		out[i] = s
	}
	return out, nil
}
