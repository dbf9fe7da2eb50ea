package display

import (
	"bytes"
	"image/png"
	"testing"
)

func TestPanelClearRegion(t *testing.T) {
	fb := NewFramebuffer(Width, Height)
	p := NewPanel(fb)

	p.ClearRegion(Rect{X: 10, Y: 10, W: 5, H: 5}, Red)
	if got := fb.At(12, 12); got != Red {
		t.Errorf("inside: expected red, got %v", got)
	}
	if got := fb.At(15, 15); got != Black {
		t.Errorf("outside: expected black, got %v", got)
	}
}

func TestPanelFilledCircle(t *testing.T) {
	fb := NewFramebuffer(Width, Height)
	p := NewPanel(fb)

	p.DrawFilledCircle(Point{X: 100, Y: 100}, 8, Green)
	if got := fb.At(100, 100); got != Green {
		t.Errorf("centre: expected green, got %v", got)
	}
	if got := fb.At(108, 100); got != Green {
		t.Errorf("edge: expected green, got %v", got)
	}
	if got := fb.At(107, 107); got != Black {
		t.Errorf("corner: expected black, got %v", got)
	}
	if got := fb.At(109, 100); got != Black {
		t.Errorf("beyond radius: expected black, got %v", got)
	}
}

func TestPanelEditIndicator(t *testing.T) {
	fb := NewFramebuffer(Width, Height)
	p := NewPanel(fb)

	p.SetEditIndicator(true)
	if !p.EditIndicator() {
		t.Error("expected indicator on")
	}
	if got := fb.At(461, 1); got != Red {
		t.Errorf("indicator box: expected red, got %v", got)
	}

	p.SetEditIndicator(false)
	if got := fb.At(461, 1); got != Black {
		t.Errorf("cleared indicator: expected black, got %v", got)
	}
}

func TestPanelDrawTextPaintsNearCell(t *testing.T) {
	fb := NewFramebuffer(Width, Height)
	p := NewPanel(fb)

	p.DrawText(Point{X: 20, Y: 40}, "M", White, 2)

	lit := 0
	for y := 30; y < 80; y++ {
		for x := 10; x < 60; x++ {
			if fb.At(x, y) == White {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("expected text pixels")
	}
}

func TestFramebufferPNG(t *testing.T) {
	fb := NewFramebuffer(32, 16)
	fb.FillRectangle(0, 0, 4, 4, Yellow)

	var buf bytes.Buffer
	if err := fb.WritePNG(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("unexpected bounds %v", b)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.DrawText(Point{X: 2, Y: 36}, "Overduty", White, 2)
	r.DrawFilledCircle(Point{X: 460, Y: 42}, 8, Red)
	r.SetEditIndicator(true)

	if !r.HasText("Overduty") {
		t.Error("expected recorded text")
	}
	if len(r.Circles()) != 1 {
		t.Errorf("expected 1 circle, got %d", len(r.Circles()))
	}
	if !r.Edit {
		t.Error("expected edit indicator on")
	}
	r.Reset()
	if len(r.Calls) != 0 {
		t.Error("expected reset to clear calls")
	}
}
