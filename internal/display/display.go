// Package display draws the panel screen. The menu only sees the Display
// interface; the pixel work happens on any tinygo drivers.Displayer.
package display

import "image/color"

// Screen geometry of the panel LCD.
const (
	Width  = 480
	Height = 272
)

// Rect is an axis-aligned rectangle in screen pixels.
type Rect struct {
	X, Y, W, H int16
}

// Point is a screen position.
type Point struct {
	X, Y int16
}

// Display is the set of drawing primitives the menu uses.
type Display interface {
	ClearRegion(r Rect, c color.RGBA)
	// DrawText draws text with its top-left corner at p. size scales the
	// base font (1 = native).
	DrawText(p Point, text string, c color.RGBA, size int)
	DrawFilledCircle(center Point, radius int16, c color.RGBA)
	SetEditIndicator(on bool)
	// Flush pushes pending drawing to the device.
	Flush() error
}

// Palette.
var (
	Black      = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	White      = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Red        = color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
	Green      = color.RGBA{R: 0x00, G: 0xfc, B: 0x00, A: 0xff}
	Blue       = color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}
	Yellow     = color.RGBA{R: 0xff, G: 0xfc, B: 0x00, A: 0xff}
	Gray       = color.RGBA{R: 0x84, G: 0x82, B: 0x84, A: 0xff}
	SelectedBG = color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xff}
)

// EditIndicatorRect is where the edit indicator sits, top right.
var EditIndicatorRect = Rect{X: 460, Y: 0, W: 20, H: 20}
