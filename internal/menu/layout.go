package menu

import (
	"fmt"
	"image/color"

	"github.com/sweeney/interlock-panel/internal/display"
	"github.com/sweeney/interlock-panel/internal/interlock"
)

// Layout of the 480x272 screen.
const (
	headerHeight = 24
	tabPitch     = 160
	tabWidth     = 150
	tabTextY     = 4
	bodyTop      = 30
	rowHeight    = 24
	textSize     = 2
	circleX      = 460
	circleRadius = 8
	ringRadius   = 10
	flashX       = 420
)

// BodyRect is the area below the tab header.
var BodyRect = display.Rect{X: 0, Y: bodyTop, W: display.Width, H: display.Height - bodyTop}

// RowRect returns the rectangle of body row idx.
func RowRect(idx int) display.Rect {
	return display.Rect{X: 0, Y: int16(bodyTop + idx*rowHeight), W: display.Width, H: rowHeight}
}

// RowTextPos returns where the text of row idx starts.
func RowTextPos(idx int) display.Point {
	return display.Point{X: 2, Y: int16(bodyTop+idx*rowHeight) + 6}
}

// RowColors returns the background and text colours of a row.
func RowColors(selected bool) (bg, fg color.RGBA) {
	if selected {
		return display.SelectedBG, display.Yellow
	}
	return display.Black, display.White
}

// PaintTextRow clears row idx and writes text in the row colours.
func PaintTextRow(d display.Display, idx int, selected bool, text string) {
	bg, fg := RowColors(selected)
	d.ClearRegion(RowRect(idx), bg)
	d.DrawText(RowTextPos(idx), text, fg, textSize)
}

func tabRect(t Tab) display.Rect {
	x := int16(10 + int(t)*tabPitch)
	w := int16(tabWidth)
	// Keep clear of the edit indicator.
	if limit := display.EditIndicatorRect.X; x+w > limit {
		w = limit - x
	}
	return display.Rect{X: x, Y: 0, W: w, H: headerHeight}
}

func toneColor(t interlock.Tone) color.RGBA {
	switch t {
	case interlock.ToneGreen:
		return display.Green
	case interlock.ToneRed:
		return display.Red
	}
	return display.Gray
}

func settingsLabel(idx int) string {
	return fmt.Sprintf("Item %d", idx+1)
}
