package display

import (
	"image/color"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// baseline is the distance from the top of a text cell to the font
// baseline at size 1.
const baseline = 8

// rectFiller is implemented by displayers that can fill faster than
// pixel by pixel.
type rectFiller interface {
	FillRectangle(x, y, width, height int16, c color.RGBA) error
}

// Panel implements Display on a drivers.Displayer.
type Panel struct {
	mu   sync.Mutex
	dev  drivers.Displayer
	font tinyfont.Fonter
	edit bool
}

// NewPanel creates a Panel drawing on dev with the proggy font.
func NewPanel(dev drivers.Displayer) *Panel {
	return &Panel{dev: dev, font: &proggy.TinySZ8pt7b}
}

// ClearRegion fills r with c.
func (p *Panel) ClearRegion(r Rect, c color.RGBA) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fill(r, c)
}

func (p *Panel) fill(r Rect, c color.RGBA) {
	if f, ok := p.dev.(rectFiller); ok {
		f.FillRectangle(r.X, r.Y, r.W, r.H, c)
		return
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			p.dev.SetPixel(x, y, c)
		}
	}
}

// DrawText draws text with its top-left corner at pos.
func (p *Panel) DrawText(pos Point, text string, c color.RGBA, size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text(pos, text, c, size)
}

func (p *Panel) text(pos Point, text string, c color.RGBA, size int) {
	if size < 1 {
		size = 1
	}
	s := &scaler{
		dev:  p.dev,
		size: int16(size),
		x0:   pos.X,
		y0:   pos.Y + int16(baseline*size),
	}
	tinyfont.WriteLine(s, p.font, 0, 0, text, c)
}

// DrawFilledCircle draws a filled circle one scanline at a time.
func (p *Panel) DrawFilledCircle(center Point, radius int16, c color.RGBA) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := int32(radius)
	for dy := -r; dy <= r; dy++ {
		dx := int32(0)
		for (dx+1)*(dx+1)+dy*dy <= r*r {
			dx++
		}
		p.fill(Rect{
			X: center.X - int16(dx),
			Y: center.Y + int16(dy),
			W: int16(2*dx + 1),
			H: 1,
		}, c)
	}
}

// SetEditIndicator shows or hides the red "E" box.
func (p *Panel) SetEditIndicator(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edit = on
	if !on {
		p.fill(EditIndicatorRect, Black)
		return
	}
	p.fill(EditIndicatorRect, Red)
	p.text(Point{X: EditIndicatorRect.X + 2, Y: EditIndicatorRect.Y + 4}, "E", Black, 1)
}

// EditIndicator reports the last indicator state set.
func (p *Panel) EditIndicator() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edit
}

// Flush calls Display on the device.
func (p *Panel) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev.Display()
}

// scaler blows every pixel up to a size x size block around an origin,
// so one font serves every text size.
type scaler struct {
	dev    drivers.Displayer
	size   int16
	x0, y0 int16
}

func (s *scaler) Size() (x, y int16) {
	return s.dev.Size()
}

func (s *scaler) SetPixel(x, y int16, c color.RGBA) {
	px := s.x0 + x*s.size
	py := s.y0 + y*s.size
	for dy := int16(0); dy < s.size; dy++ {
		for dx := int16(0); dx < s.size; dx++ {
			s.dev.SetPixel(px+dx, py+dy, c)
		}
	}
}

func (s *scaler) Display() error {
	return nil
}
