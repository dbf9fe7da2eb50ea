package logic

import "time"

// ClassifierConfig holds the gesture timing parameters.
type ClassifierConfig struct {
	// DebounceTicks is the number of consecutive agreeing samples needed
	// to confirm a press or a release.
	DebounceTicks int
	// LongPress is how long a confirmed press must be held to emit Long.
	LongPress time.Duration
	// DoubleWindow is the maximum gap between two releases of DoubleLine
	// that still counts as a double click.
	DoubleWindow time.Duration
	// DoubleLine is the only line that supports double click (NoLine for none).
	DoubleLine Line
}

// DefaultClassifierConfig returns the timings used on the production panel.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		DebounceTicks: 4,
		LongPress:     800 * time.Millisecond,
		DoubleWindow:  450 * time.Millisecond,
		DoubleLine:    LineConfirm,
	}
}

// InputLine is the per-button debounce and gesture state.
type InputLine struct {
	// Saturating debounce counter in [0, DebounceTicks].
	Counter int
	// Held is true between a confirmed press and a confirmed release.
	Held bool
	// Fired is true once Long was emitted for the current press.
	Fired bool
	// Armed is true while a release waits for a possible second click.
	Armed bool
	// PressedAt is when the current press was confirmed.
	PressedAt time.Time
	// ReleasedAt is when the armed release was confirmed.
	ReleasedAt time.Time
}

// Classifier turns periodic button samples into Short, Long and Double
// gestures.
//
// On the double-click line the Short for a release is held back until the
// double window lapses, so a double click never also produces a Short.
type Classifier struct {
	cfg   ClassifierConfig
	lines [LineCount]InputLine
}

// NewClassifier creates a classifier with every line released.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.DebounceTicks < 1 {
		cfg.DebounceTicks = 1
	}
	return &Classifier{cfg: cfg}
}

// Process takes a new sample and returns the gestures it completes, in
// line order.
func (c *Classifier) Process(in Input) []Gesture {
	var out []Gesture
	for i := range c.lines {
		out = c.processLine(Line(i), in.Pressed[i], in.Time, out)
	}
	return out
}

// Line returns a copy of the state of one line.
func (c *Classifier) Line(l Line) InputLine {
	if l < 0 || l >= LineCount {
		return InputLine{}
	}
	return c.lines[l]
}

func (c *Classifier) processLine(l Line, pressed bool, now time.Time, out []Gesture) []Gesture {
	s := &c.lines[l]

	// A deferred Short whose window has lapsed is released first.
	if s.Armed && now.Sub(s.ReleasedAt) > c.cfg.DoubleWindow {
		s.Armed = false
		out = append(out, Gesture{Line: l, Kind: GestureShort, Time: now})
	}

	if pressed {
		if s.Counter < c.cfg.DebounceTicks {
			s.Counter++
		}
		if s.Counter >= c.cfg.DebounceTicks && !s.Held {
			s.Held = true
			s.Fired = false
			s.PressedAt = now
		}
		if s.Held && !s.Fired && now.Sub(s.PressedAt) >= c.cfg.LongPress {
			s.Fired = true
			if s.Armed {
				// The earlier click stands on its own.
				s.Armed = false
				out = append(out, Gesture{Line: l, Kind: GestureShort, Time: now})
			}
			out = append(out, Gesture{Line: l, Kind: GestureLong, Time: now})
		}
		return out
	}

	if s.Counter > 0 {
		s.Counter--
	}
	if !s.Held || s.Counter != 0 {
		return out
	}

	s.Held = false
	if s.Fired {
		return out
	}

	switch {
	case l != c.cfg.DoubleLine:
		out = append(out, Gesture{Line: l, Kind: GestureShort, Time: now})
	case s.Armed:
		s.Armed = false
		out = append(out, Gesture{Line: l, Kind: GestureDouble, Time: now})
	default:
		s.Armed = true
		s.ReleasedAt = now
	}
	return out
}
