package logic

import "time"

// quadratureTable maps (previous<<2 | current) phase codes to a step.
// Only single-bit Gray-code transitions count; no change and double-bit
// jumps decode to 0.
var quadratureTable = [16]int{
	0, -1, +1, 0,
	+1, 0, 0, -1,
	-1, 0, 0, +1,
	0, +1, -1, 0,
}

// Decoder converts encoder phase samples into signed steps.
type Decoder struct {
	prev   uint8
	primed bool
}

// NewDecoder creates a decoder that adopts the first sample as its
// starting phase.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset sets the reference phase without producing a step.
func (d *Decoder) Reset(a, b bool) {
	d.prev = phase(a, b)
	d.primed = true
}

// Step takes the current phase levels and returns -1, 0 or +1.
func (d *Decoder) Step(a, b bool) int {
	cur := phase(a, b)
	if !d.primed {
		d.prev = cur
		d.primed = true
		return 0
	}
	idx := d.prev<<2 | cur
	d.prev = cur
	return quadratureTable[idx]
}

func phase(a, b bool) uint8 {
	var p uint8
	if a {
		p |= 2
	}
	if b {
		p |= 1
	}
	return p
}

// StepLimiter allows at most one action per interval.
type StepLimiter struct {
	Interval time.Duration
	last     time.Time
	primed   bool
}

// Allow reports whether an action may happen at now, and records it if so.
func (s *StepLimiter) Allow(now time.Time) bool {
	if s.primed && now.Sub(s.last) < s.Interval {
		return false
	}
	s.last = now
	s.primed = true
	return true
}

// Reset forgets the last action so the next one is always allowed.
func (s *StepLimiter) Reset() {
	s.primed = false
}
