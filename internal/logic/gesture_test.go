package logic

import (
	"testing"
	"time"
)

const tick = 5 * time.Millisecond

// feeder drives a classifier one 5ms sample at a time.
type feeder struct {
	c   *Classifier
	now time.Time
	out []Gesture
}

func newFeeder() *feeder {
	return &feeder{
		c:   NewClassifier(DefaultClassifierConfig()),
		now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// hold samples line as pressed (or released) for d.
func (f *feeder) hold(l Line, pressed bool, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += tick {
		var in Input
		if l >= 0 {
			in.Pressed[l] = pressed
		}
		in.Time = f.now
		f.out = append(f.out, f.c.Process(in)...)
		f.now = f.now.Add(tick)
	}
}

func (f *feeder) press(l Line, d time.Duration) {
	f.hold(l, true, d)
}

func (f *feeder) idle(d time.Duration) {
	f.hold(NoLine, false, d)
}

func (f *feeder) count(l Line, k GestureKind) int {
	n := 0
	for _, g := range f.out {
		if g.Line == l && g.Kind == k {
			n++
		}
	}
	return n
}

func TestDebounceRequiresConsecutiveSamples(t *testing.T) {
	f := newFeeder()

	// Three pressed samples are not enough to confirm a press.
	f.press(LineDown, 3*tick)
	if f.c.Line(LineDown).Held {
		t.Fatal("press confirmed before debounce threshold")
	}

	f.press(LineDown, tick)
	if !f.c.Line(LineDown).Held {
		t.Fatal("press not confirmed at debounce threshold")
	}
}

func TestShortPressNonDoubleLine(t *testing.T) {
	f := newFeeder()
	f.press(LineDown, 100*time.Millisecond)
	f.idle(50 * time.Millisecond)

	if len(f.out) != 1 {
		t.Fatalf("expected 1 gesture, got %d: %+v", len(f.out), f.out)
	}
	if f.out[0].Line != LineDown || f.out[0].Kind != GestureShort {
		t.Errorf("expected DOWN SHORT, got %s %s", f.out[0].Line, f.out[0].Kind)
	}
}

func TestBounceDoesNotProduceGesture(t *testing.T) {
	f := newFeeder()
	for i := 0; i < 20; i++ {
		f.press(LineUp, tick)
		f.idle(tick)
	}
	f.idle(100 * time.Millisecond)
	if len(f.out) != 0 {
		t.Errorf("expected no gestures from chatter, got %+v", f.out)
	}
}

func TestLongPressEmitsExactlyOneLong(t *testing.T) {
	f := newFeeder()
	f.press(LineDown, 2*time.Second)
	f.idle(time.Second)

	if n := f.count(LineDown, GestureLong); n != 1 {
		t.Errorf("expected 1 LONG, got %d", n)
	}
	if n := f.count(LineDown, GestureShort); n != 0 {
		t.Errorf("expected 0 SHORT after LONG, got %d", n)
	}
}

func TestLongFiresWhileStillHeld(t *testing.T) {
	f := newFeeder()
	f.press(LineConfirm, 900*time.Millisecond)

	if n := f.count(LineConfirm, GestureLong); n != 1 {
		t.Fatalf("expected LONG while held, got %d", n)
	}
}

func TestLongPressOnDoubleLineNoShortNoDouble(t *testing.T) {
	f := newFeeder()
	f.press(LineConfirm, 1200*time.Millisecond)
	f.idle(time.Second)

	if n := f.count(LineConfirm, GestureLong); n != 1 {
		t.Errorf("expected 1 LONG, got %d", n)
	}
	if n := f.count(LineConfirm, GestureShort); n != 0 {
		t.Errorf("expected 0 SHORT, got %d", n)
	}
	if n := f.count(LineConfirm, GestureDouble); n != 0 {
		t.Errorf("expected 0 DOUBLE, got %d", n)
	}
}

func TestDoubleClick(t *testing.T) {
	f := newFeeder()
	f.press(LineConfirm, 80*time.Millisecond)
	f.idle(120 * time.Millisecond)
	f.press(LineConfirm, 80*time.Millisecond)
	f.idle(time.Second)

	if n := f.count(LineConfirm, GestureDouble); n != 1 {
		t.Errorf("expected 1 DOUBLE, got %d", n)
	}
	if n := f.count(LineConfirm, GestureShort); n != 0 {
		t.Errorf("expected 0 SHORT for a double click, got %d", n)
	}
}

func TestSingleClickOnDoubleLineIsDeferred(t *testing.T) {
	f := newFeeder()
	f.press(LineConfirm, 80*time.Millisecond)
	f.idle(200 * time.Millisecond)

	if len(f.out) != 0 {
		t.Fatalf("expected SHORT held back inside double window, got %+v", f.out)
	}

	f.idle(400 * time.Millisecond)
	if n := f.count(LineConfirm, GestureShort); n != 1 {
		t.Errorf("expected 1 SHORT after window, got %d", n)
	}
}

func TestClicksOutsideWindowAreTwoShorts(t *testing.T) {
	f := newFeeder()
	f.press(LineConfirm, 80*time.Millisecond)
	f.idle(600 * time.Millisecond)
	f.press(LineConfirm, 80*time.Millisecond)
	f.idle(600 * time.Millisecond)

	if n := f.count(LineConfirm, GestureShort); n != 2 {
		t.Errorf("expected 2 SHORT, got %d", n)
	}
	if n := f.count(LineConfirm, GestureDouble); n != 0 {
		t.Errorf("expected 0 DOUBLE, got %d", n)
	}
}

func TestTripleClickIsDoubleThenShort(t *testing.T) {
	f := newFeeder()
	for i := 0; i < 3; i++ {
		f.press(LineConfirm, 60*time.Millisecond)
		f.idle(100 * time.Millisecond)
	}
	f.idle(time.Second)

	if n := f.count(LineConfirm, GestureDouble); n != 1 {
		t.Errorf("expected 1 DOUBLE, got %d", n)
	}
	if n := f.count(LineConfirm, GestureShort); n != 1 {
		t.Errorf("expected 1 SHORT for the third click, got %d", n)
	}
}

func TestLongAfterClickFlushesShort(t *testing.T) {
	f := newFeeder()
	cfg := DefaultClassifierConfig()
	cfg.DoubleWindow = 2 * time.Second
	f.c = NewClassifier(cfg)

	f.press(LineConfirm, 80*time.Millisecond)
	f.idle(100 * time.Millisecond)
	f.press(LineConfirm, time.Second)
	f.idle(3 * time.Second)

	if len(f.out) != 2 {
		t.Fatalf("expected SHORT then LONG, got %+v", f.out)
	}
	if f.out[0].Kind != GestureShort || f.out[1].Kind != GestureLong {
		t.Errorf("expected SHORT then LONG, got %s then %s", f.out[0].Kind, f.out[1].Kind)
	}
	if n := f.count(LineConfirm, GestureDouble); n != 0 {
		t.Errorf("LONG must clear the double arm, got %d DOUBLE", n)
	}
}

func TestNoDoubleOnOtherLines(t *testing.T) {
	f := newFeeder()
	f.press(LineUp, 60*time.Millisecond)
	f.idle(60 * time.Millisecond)
	f.press(LineUp, 60*time.Millisecond)
	f.idle(60 * time.Millisecond)

	if n := f.count(LineUp, GestureShort); n != 2 {
		t.Errorf("expected 2 SHORT on UP, got %d", n)
	}
	if n := f.count(LineUp, GestureDouble); n != 0 {
		t.Errorf("expected 0 DOUBLE on UP, got %d", n)
	}
}

func TestDoubleDisabled(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.DoubleLine = NoLine
	f := newFeeder()
	f.c = NewClassifier(cfg)

	f.press(LineConfirm, 60*time.Millisecond)
	f.idle(60 * time.Millisecond)
	if n := f.count(LineConfirm, GestureShort); n != 1 {
		t.Errorf("expected immediate SHORT with double click disabled, got %d", n)
	}
}

func TestNeverShortAndLongForOnePress(t *testing.T) {
	durations := []time.Duration{
		20 * time.Millisecond,
		300 * time.Millisecond,
		790 * time.Millisecond,
		800 * time.Millisecond,
		810 * time.Millisecond,
		3 * time.Second,
	}
	for _, d := range durations {
		for _, l := range []Line{LineDown, LineConfirm} {
			f := newFeeder()
			f.press(l, d)
			f.idle(time.Second)

			short := f.count(l, GestureShort)
			long := f.count(l, GestureLong)
			if short+long > 1 {
				t.Errorf("%s held %v: got %d SHORT and %d LONG", l, d, short, long)
			}
		}
	}
}

func TestLinesAreIndependent(t *testing.T) {
	f := newFeeder()
	now := f.now
	for i := 0; i < 40; i++ {
		in := Input{Time: now}
		in.Pressed[LineLeft] = true
		in.Pressed[LineRight] = i < 20
		f.out = append(f.out, f.c.Process(in)...)
		now = now.Add(tick)
	}

	if n := f.count(LineRight, GestureShort); n != 1 {
		t.Errorf("expected RIGHT SHORT while LEFT held, got %d", n)
	}
	if n := f.count(LineLeft, GestureShort); n != 0 {
		t.Errorf("LEFT still held, expected no SHORT, got %d", n)
	}
}
