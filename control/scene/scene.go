// Package scene holds the things drawn on the clock face and their current values.  Changing a
// value never touches the display; the whole scene is rendered to an image at once, so a partial
// update can't show up as a torn frame.
package scene

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/jrockway/memlcd-clock/control/hands"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
)

// Layout describes where everything goes.
type Layout struct {
	Width, Height int
	Dial          Dial
	TimeFace      font.Face
	TimeAt        image.Point
	DateFace      font.Face
	DateAt        image.Point
	DateWidth     int
}

// DefaultLayout is for a 400x240 panel: a dial filling the left side, with the digital time and
// the date to its right.
func DefaultLayout() Layout {
	return Layout{
		Width:     400,
		Height:    240,
		Dial:      Dial{X: 2, Y: 2, Height: 215, Ticks: 12, Pip: true},
		TimeFace:  inconsolata.Bold8x16,
		TimeAt:    image.Pt(230, 50),
		DateFace:  basicfont.Face7x13,
		DateAt:    image.Pt(230, 100),
		DateWidth: 160,
	}
}

// Scene is the clock face.  It is built once and lives as long as the program.
type Scene struct {
	width, height int
	dial          *Dial
	hour, minute  *Pointer
	time, date    *Label
	items         []Drawable
}

// New builds a scene from a layout.
func New(l Layout) *Scene {
	dial := l.Dial
	dial.pointers = nil
	s := &Scene{
		width:  l.Width,
		height: l.Height,
		dial:   &dial,
		time:   NewLabel(l.TimeFace, l.TimeAt.X, l.TimeAt.Y, "00.00"),
		date:   NewLabelWidth(l.DateFace, l.DateAt.X, l.DateAt.Y, l.DateWidth),
	}
	s.hour = NewPointer(s.dial)
	s.hour.Width = 5
	s.minute = NewPointer(s.dial)
	s.hour.SetValue(hands.HourRest)
	s.minute.SetValue(hands.MinuteRest)
	s.items = []Drawable{s.dial, s.time, s.date}
	return s
}

// SetHourPointer points the hour hand at angle radians.
func (s *Scene) SetHourPointer(angle float64) { s.hour.SetValue(hands.Rotate(hands.HourRest, angle)) }

// SetMinutePointer points the minute hand at angle radians.
func (s *Scene) SetMinutePointer(angle float64) {
	s.minute.SetValue(hands.Rotate(hands.MinuteRest, angle))
}

// SetTimeLabel changes the digital time.
func (s *Scene) SetTimeLabel(text string) { s.time.SetText(text) }

// SetDateLabel changes the date.
func (s *Scene) SetDateLabel(text string) { s.date.SetText(text) }

// HourPointer returns the hour hand.
func (s *Scene) HourPointer() *Pointer { return s.hour }

// MinutePointer returns the minute hand.
func (s *Scene) MinutePointer() *Pointer { return s.minute }

// TimeLabel returns the label showing the digital time.
func (s *Scene) TimeLabel() *Label { return s.time }

// DateLabel returns the label showing the date.
func (s *Scene) DateLabel() *Label { return s.date }

// Bounds returns the size of rendered images.
func (s *Scene) Bounds() image.Rectangle { return image.Rect(0, 0, s.width, s.height) }

// Render draws everything, black on white, to a new image.
func (s *Scene) Render() image.Image {
	dc := gg.NewContext(s.width, s.height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	for _, d := range s.items {
		d.Draw(dc)
	}
	return dc.Image()
}
