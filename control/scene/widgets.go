package scene

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// Drawable is something placed on the scene that can draw its current value.  The set is closed:
// Dial, Pointer and Label.
type Drawable interface {
	Position() image.Point
	Draw(dc *gg.Context)
}

// Dial is a round clock face whose top-left corner is at (X, Y) and whose diameter is Height.  It
// never changes after construction.
type Dial struct {
	X, Y     int
	Height   int
	Ticks    int         // Tick marks around the edge.
	Border   color.Color // Box drawn around the dial; nil for none.
	Pip      bool        // Fill a small circle at the centre.
	pointers []*Pointer
}

// Position implements Drawable.
func (d *Dial) Position() image.Point { return image.Pt(d.X, d.Y) }

func (d *Dial) centre() (x, y, r float64) {
	r = float64(d.Height) / 2
	return float64(d.X) + r, float64(d.Y) + r, r
}

// Draw implements Drawable.  The dial draws its pointers on top of itself.
func (d *Dial) Draw(dc *gg.Context) {
	cx, cy, r := d.centre()
	if d.Border != nil {
		dc.Push()
		dc.SetColor(d.Border)
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(d.X), float64(d.Y), float64(d.Height), float64(d.Height))
		dc.Stroke()
		dc.Pop()
	}
	dc.SetLineWidth(2)
	dc.DrawCircle(cx, cy, r-1)
	dc.Stroke()
	for i := 0; i < d.Ticks; i++ {
		a := 2 * math.Pi * float64(i) / float64(d.Ticks)
		s, c := math.Sincos(a)
		dc.DrawLine(cx+0.9*r*s, cy-0.9*r*c, cx+r*s, cy-r*c)
	}
	dc.Stroke()
	for _, p := range d.pointers {
		p.Draw(dc)
	}
	if d.Pip {
		dc.DrawCircle(cx, cy, 4)
		dc.Fill()
	}
}

// Pointer is a hand on a Dial.  Its value is a vector from the centre of the dial, with a length
// relative to the dial radius, in a y-up coordinate system.
type Pointer struct {
	Width float64
	dial  *Dial
	value complex128
}

// NewPointer attaches a new pointer to d.
func NewPointer(d *Dial) *Pointer {
	p := &Pointer{Width: 3, dial: d}
	d.pointers = append(d.pointers, p)
	return p
}

// Position implements Drawable; a pointer is positioned at the centre of its dial.
func (p *Pointer) Position() image.Point {
	x, y, _ := p.dial.centre()
	return image.Pt(int(x), int(y))
}

// Value returns the current vector.
func (p *Pointer) Value() complex128 { return p.value }

// SetValue changes the vector.  Nothing is drawn until the scene is rendered.
func (p *Pointer) SetValue(v complex128) { p.value = v }

// Tip returns the image coordinates of the end of the pointer.
func (p *Pointer) Tip() (x, y float64) {
	cx, cy, r := p.dial.centre()
	return cx + real(p.value)*r, cy - imag(p.value)*r
}

// Draw implements Drawable.
func (p *Pointer) Draw(dc *gg.Context) {
	cx, cy, _ := p.dial.centre()
	x, y := p.Tip()
	dc.SetLineWidth(p.Width)
	dc.DrawLine(cx, cy, x, y)
	dc.Stroke()
}

// Label is a line of text whose top-left corner is at (X, Y).
type Label struct {
	X, Y  int
	Width int // Width reserved for the text, in pixels.
	face  font.Face
	text  string
}

// NewLabel returns a label wide enough for its initial text.
func NewLabel(face font.Face, x, y int, text string) *Label {
	return &Label{X: x, Y: y, Width: font.MeasureString(face, text).Ceil(), face: face, text: text}
}

// NewLabelWidth returns an empty label with width pixels reserved for text.
func NewLabelWidth(face font.Face, x, y, width int) *Label {
	return &Label{X: x, Y: y, Width: width, face: face}
}

// Position implements Drawable.
func (l *Label) Position() image.Point { return image.Pt(l.X, l.Y) }

// Text returns the current text.
func (l *Label) Text() string { return l.text }

// SetText changes the text.  Nothing is drawn until the scene is rendered.
func (l *Label) SetText(s string) { l.text = s }

// Draw implements Drawable.  Text that doesn't fit in Width is cut off.
func (l *Label) Draw(dc *gg.Context) {
	m := l.face.Metrics()
	dc.DrawRectangle(float64(l.X), float64(l.Y), float64(l.Width), float64(m.Height.Ceil()))
	dc.Clip()
	dc.SetFontFace(l.face)
	dc.DrawString(l.text, float64(l.X), float64(l.Y+m.Ascent.Ceil()))
	dc.ResetClip()
}
