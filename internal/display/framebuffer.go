package display

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
)

// Framebuffer is an in-memory drivers.Displayer. It backs the headless
// panel and the status page screenshot.
type Framebuffer struct {
	mu     sync.RWMutex
	img    *image.RGBA
	frames int
}

// NewFramebuffer creates a black framebuffer of w x h pixels.
func NewFramebuffer(w, h int) *Framebuffer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return &Framebuffer{img: img}
}

// Size returns the framebuffer dimensions.
func (f *Framebuffer) Size() (x, y int16) {
	b := f.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

// SetPixel sets one pixel; out-of-range coordinates are ignored.
func (f *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	f.mu.Lock()
	f.img.SetRGBA(int(x), int(y), c)
	f.mu.Unlock()
}

// FillRectangle fills a clipped rectangle.
func (f *Framebuffer) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	r := image.Rect(int(x), int(y), int(x)+int(width), int(y)+int(height)).Intersect(f.img.Bounds())
	f.mu.Lock()
	defer f.mu.Unlock()
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			f.img.SetRGBA(px, py, c)
		}
	}
	return nil
}

// Display counts presented frames.
func (f *Framebuffer) Display() error {
	f.mu.Lock()
	f.frames++
	f.mu.Unlock()
	return nil
}

// Frames returns the number of Display calls.
func (f *Framebuffer) Frames() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.frames
}

// At returns the colour of one pixel.
func (f *Framebuffer) At(x, y int) color.RGBA {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.img.RGBAAt(x, y)
}

// WritePNG encodes the current contents as PNG.
func (f *Framebuffer) WritePNG(w io.Writer) error {
	f.mu.RLock()
	snap := image.NewRGBA(f.img.Bounds())
	copy(snap.Pix, f.img.Pix)
	f.mu.RUnlock()

	if err := png.Encode(w, snap); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
