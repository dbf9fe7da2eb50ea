package logic

import "time"

// WatchdogInput is one tick of auto-reset watchdog input.
type WatchdogInput struct {
	Enabled bool
	Delay   time.Duration
	// Faulted is the sensed-active state of the global fault line.
	Faulted bool
	Time    time.Time
}

// WatchdogState is the volatile auto-reset timer.
type WatchdogState struct {
	Pending         bool
	FaultObservedAt time.Time
}

// WatchdogDecision tells the caller what a tick asked for.
type WatchdogDecision struct {
	// Armed is true on the tick that started the timer.
	Armed bool
	// Fire is true when the reset pulse must be triggered now. The caller
	// must report the outcome through Complete.
	Fire bool
}

// Watchdog fires a reset pulse once the global fault line has been seen
// faulted and the configured delay has elapsed.
//
// Once armed it fires at expiry even if the fault cleared in the meantime.
// Only firing (or disabling) clears the pending timer.
type Watchdog struct {
	state  WatchdogState
	firing bool
}

// NewWatchdog creates an idle watchdog.
func NewWatchdog() *Watchdog {
	return &Watchdog{}
}

// Step advances the watchdog by one tick.
func (w *Watchdog) Step(in WatchdogInput) WatchdogDecision {
	var d WatchdogDecision

	if !in.Enabled {
		w.state = WatchdogState{}
		return d
	}

	if in.Faulted && !w.state.Pending {
		w.state.Pending = true
		w.state.FaultObservedAt = in.Time
		d.Armed = true
	}

	if w.state.Pending && !w.firing && in.Time.Sub(w.state.FaultObservedAt) >= in.Delay {
		w.firing = true
		d.Fire = true
	}
	return d
}

// Complete reports the outcome of a Fire decision. fired=false leaves the
// timer pending so the pulse is retried on a later tick.
func (w *Watchdog) Complete(fired bool) {
	w.firing = false
	if fired {
		w.state = WatchdogState{}
	}
}

// State returns a copy of the timer state.
func (w *Watchdog) State() WatchdogState {
	return w.state
}
