// Package hold runs long blocking operations (the reset pulse, bulk EEPROM
// erase) while keeping the poll loop alive: the runner calls a step
// function every poll interval for as long as the operation lasts.
//
// Rules:
//   - a timed Hold never runs inside another Hold
//   - bulk Work never runs inside Work or a Hold
//   - a Hold may be started from a step called by Work
package hold

import (
	"errors"
	"time"
)

// ErrNested is returned when an operation would break the nesting rules.
var ErrNested = errors.New("hold: nested hold")

// StepFunc is called repeatedly while a hold or bulk operation runs.
type StepFunc func(now time.Time)

// Runner executes holds. It is not safe for concurrent use; it belongs to
// the poll loop.
type Runner struct {
	clock    Clock
	interval time.Duration
	step     StepFunc
	holding  bool
	working  bool
}

// NewRunner creates a Runner that steps every interval.
func NewRunner(clock Clock, interval time.Duration) *Runner {
	if clock == nil {
		clock = RealClock{}
	}
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	return &Runner{clock: clock, interval: interval}
}

// SetStep installs the function called during holds.
func (r *Runner) SetStep(step StepFunc) {
	r.step = step
}

// Clock returns the runner's clock.
func (r *Runner) Clock() Clock {
	return r.clock
}

// Holding reports whether a timed Hold is in progress.
func (r *Runner) Holding() bool {
	return r.holding
}

// Active reports whether any hold or bulk operation is in progress.
func (r *Runner) Active() bool {
	return r.holding || r.working
}

// Hold blocks for d, calling the step function every interval.
func (r *Runner) Hold(d time.Duration) error {
	if r.holding {
		return ErrNested
	}
	r.holding = true
	defer func() { r.holding = false }()

	deadline := r.clock.Now().Add(d)
	for {
		now := r.clock.Now()
		if !now.Before(deadline) {
			return nil
		}
		r.yield(now)
		wait := deadline.Sub(r.clock.Now())
		if wait > r.interval {
			wait = r.interval
		}
		if wait > 0 {
			r.clock.Sleep(wait)
		}
	}
}

// Work runs unit n times, stepping after every unit. A unit error stops
// the work and is returned.
func (r *Runner) Work(n int, unit func(i int) error) error {
	if r.working || r.holding {
		return ErrNested
	}
	r.working = true
	defer func() { r.working = false }()

	for i := 0; i < n; i++ {
		if err := unit(i); err != nil {
			return err
		}
		r.yield(r.clock.Now())
	}
	return nil
}

func (r *Runner) yield(now time.Time) {
	if r.step != nil {
		r.step(now)
	}
}
