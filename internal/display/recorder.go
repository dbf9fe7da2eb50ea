package display

import (
	"image/color"
	"strings"
	"sync"
)

// Call is one recorded drawing call.
type Call struct {
	Op     string // "clear", "text", "circle", "edit"
	Rect   Rect
	Point  Point
	Text   string
	Color  color.RGBA
	Size   int
	Radius int16
	On     bool
}

// Recorder is a Display test double that records every call.
type Recorder struct {
	mu      sync.Mutex
	Calls   []Call
	Edit    bool
	Flushes int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(c Call) {
	r.mu.Lock()
	r.Calls = append(r.Calls, c)
	r.mu.Unlock()
}

// ClearRegion records a clear.
func (r *Recorder) ClearRegion(rect Rect, c color.RGBA) {
	r.add(Call{Op: "clear", Rect: rect, Color: c})
}

// DrawText records a text call.
func (r *Recorder) DrawText(p Point, text string, c color.RGBA, size int) {
	r.add(Call{Op: "text", Point: p, Text: text, Color: c, Size: size})
}

// DrawFilledCircle records a circle.
func (r *Recorder) DrawFilledCircle(center Point, radius int16, c color.RGBA) {
	r.add(Call{Op: "circle", Point: center, Radius: radius, Color: c})
}

// SetEditIndicator records the indicator state.
func (r *Recorder) SetEditIndicator(on bool) {
	r.mu.Lock()
	r.Edit = on
	r.mu.Unlock()
	r.add(Call{Op: "edit", On: on})
}

// Flush counts flushes.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	r.Flushes++
	r.mu.Unlock()
	return nil
}

// Texts returns every text drawn, in order.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.Calls {
		if c.Op == "text" {
			out = append(out, c.Text)
		}
	}
	return out
}

// HasText reports whether any drawn text contains s.
func (r *Recorder) HasText(s string) bool {
	for _, t := range r.Texts() {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

// Circles returns every circle drawn, in order.
func (r *Recorder) Circles() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.Calls {
		if c.Op == "circle" {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Calls = nil
	r.Flushes = 0
	r.mu.Unlock()
}
