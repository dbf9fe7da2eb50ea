package hold

import (
	"errors"
	"testing"
	"time"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestHoldStepsUntilDeadline(t *testing.T) {
	clock := NewFakeClock(start)
	r := NewRunner(clock, 5*time.Millisecond)

	steps := 0
	r.SetStep(func(now time.Time) {
		steps++
		if !r.Holding() {
			t.Error("step should see Holding() during a hold")
		}
	})

	if err := r.Hold(500 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps != 100 {
		t.Errorf("expected 100 steps, got %d", steps)
	}
	if got := clock.Now().Sub(start); got != 500*time.Millisecond {
		t.Errorf("expected 500ms elapsed, got %v", got)
	}
	if r.Active() {
		t.Error("runner should be idle after hold")
	}
}

func TestHoldRefusesNesting(t *testing.T) {
	clock := NewFakeClock(start)
	r := NewRunner(clock, 5*time.Millisecond)

	var nested error
	r.SetStep(func(now time.Time) {
		if nested == nil {
			nested = r.Hold(time.Millisecond)
		}
	})
	if err := r.Hold(20 * time.Millisecond); err != nil {
		t.Fatalf("outer hold: %v", err)
	}
	if !errors.Is(nested, ErrNested) {
		t.Errorf("expected ErrNested, got %v", nested)
	}
}

func TestWorkAllowsHoldFromStep(t *testing.T) {
	clock := NewFakeClock(start)
	r := NewRunner(clock, 5*time.Millisecond)

	var holdErr error
	holds := 0
	r.SetStep(func(now time.Time) {
		if holds == 0 && !r.Holding() {
			holds++
			holdErr = r.Hold(10 * time.Millisecond)
		}
	})

	units := 0
	err := r.Work(4, func(i int) error {
		units++
		return nil
	})
	if err != nil {
		t.Fatalf("work: %v", err)
	}
	if units != 4 {
		t.Errorf("expected 4 units, got %d", units)
	}
	if holdErr != nil {
		t.Errorf("hold inside work should be allowed, got %v", holdErr)
	}
}

func TestWorkRefusesNesting(t *testing.T) {
	r := NewRunner(NewFakeClock(start), 5*time.Millisecond)

	var nested error
	r.SetStep(func(now time.Time) {
		if nested == nil {
			nested = r.Work(1, func(int) error { return nil })
		}
	})
	if err := r.Work(2, func(int) error { return nil }); err != nil {
		t.Fatalf("work: %v", err)
	}
	if !errors.Is(nested, ErrNested) {
		t.Errorf("expected ErrNested, got %v", nested)
	}
}

func TestWorkStopsOnError(t *testing.T) {
	r := NewRunner(NewFakeClock(start), 5*time.Millisecond)
	boom := errors.New("bus error")

	units := 0
	err := r.Work(10, func(i int) error {
		units++
		if i == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected unit error, got %v", err)
	}
	if units != 3 {
		t.Errorf("expected 3 units, got %d", units)
	}
	if r.Active() {
		t.Error("runner should be idle after failed work")
	}
}
