// Package screen draws images to a Sharp memory LCD, and retains them for debugging the rest of the
// program without the display attached.
package screen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"math/bits"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"periph.io/x/conn/v3/gpio"
)

// Command bits, in the order they go out on the wire.  The panel expects LSB-first transfers; we
// send MSB-first and reverse the bits ourselves.
const (
	cmdWrite = 0x80
	cmdVCOM  = 0x40
	cmdClear = 0x20

	// maxTx is the largest single SPI transfer; spidev's default buffer size.
	maxTx = 4096
)

var (
	commitBytesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_commit_bytes",
		Help: "bytes sent to the display to commit frames",
	})

	commitDurationMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "display_commit_duration",
		Help:    "time taken to send one frame to the display, in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)

// Conn is the SPI connection to the panel.  periph's spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// ChipSelect is the panel's SCS line, which is active high and so can't be the SPI controller's
// own chip select.  periph's gpio.PinOut satisfies it.
type ChipSelect interface {
	Out(l gpio.Level) error
}

// Screen represents a Sharp memory LCD such as the LS027B7DH01.  It has one bit per pixel, holds
// its image without being refreshed, and needs the polarity of its common electrode (VCOM)
// inverted about once a second to avoid building up a DC bias.  The VCOM bit travels with every
// command, so a full frame also counts as a toggle opportunity, but we keep them separate: a frame
// costs about 12KB on the bus, a toggle 2 bytes.
type Screen struct {
	width, height int
	conn          Conn
	cs            ChipSelect
	vcom          bool

	imageMu sync.Mutex
	image   *image.Gray // must hold imageMu to read or write.
}

// New returns an initialized Screen.  A nil conn gives a screen that only keeps the preview image.
func New(conn Conn, cs ChipSelect, width, height int) (*Screen, error) {
	if width <= 0 || height <= 0 || width%8 != 0 {
		return nil, fmt.Errorf("invalid display size %dx%d: width must be a positive multiple of 8", width, height)
	}
	if height > 255 {
		return nil, fmt.Errorf("invalid display height %d: line addresses are one byte", height)
	}
	if conn != nil && cs == nil {
		return nil, fmt.Errorf("a chip select pin is required to talk to the display")
	}
	s := &Screen{
		width:  width,
		height: height,
		conn:   conn,
		cs:     cs,
		image:  image.NewGray(image.Rect(0, 0, width, height)),
	}
	draw.Draw(s.image, s.image.Bounds(), image.White, image.Point{}, draw.Src)
	return s, nil
}

// Bounds returns the size of the display.
func (s *Screen) Bounds() image.Rectangle { return image.Rect(0, 0, s.width, s.height) }

func (s *Screen) command(c byte) byte {
	if s.vcom {
		c |= cmdVCOM
	}
	return c
}

// send writes buf to the panel inside one chip select window.
func (s *Screen) send(buf []byte) error {
	if err := s.cs.Out(gpio.High); err != nil {
		return fmt.Errorf("assert chip select: %w", err)
	}
	var txErr error
	for len(buf) > 0 {
		n := len(buf)
		if n > maxTx {
			n = maxTx
		}
		if err := s.conn.Tx(buf[:n], nil); err != nil {
			txErr = fmt.Errorf("tx: %w", err)
			break
		}
		buf = buf[n:]
	}
	if err := s.cs.Out(gpio.Low); err != nil && txErr == nil {
		txErr = fmt.Errorf("release chip select: %w", err)
	}
	return txErr
}

// Clear blanks the screen.
func (s *Screen) Clear() error {
	s.imageMu.Lock()
	draw.Draw(s.image, s.image.Bounds(), image.White, image.Point{}, draw.Src)
	s.imageMu.Unlock()
	if s.conn == nil {
		return nil
	}
	if err := s.send([]byte{s.command(cmdClear), 0x00}); err != nil {
		return fmt.Errorf("clear display: %w", err)
	}
	return nil
}

// TogglePolarity inverts VCOM without changing the image.
func (s *Screen) TogglePolarity() error {
	s.vcom = !s.vcom
	if s.conn == nil {
		return nil
	}
	if err := s.send([]byte{s.command(0), 0x00}); err != nil {
		return fmt.Errorf("toggle vcom: %w", err)
	}
	return nil
}

// threshold converts img to black and white, aligned to the top-left of the screen.  Anything
// outside img is white.
func (s *Screen) threshold(img image.Image) *image.Gray {
	frame := image.NewGray(s.Bounds())
	b := img.Bounds()
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			c := color.Gray{Y: 0xff}
			if p := image.Pt(b.Min.X+x, b.Min.Y+y); p.In(b) {
				if color.GrayModel.Convert(img.At(p.X, p.Y)).(color.Gray).Y < 0x80 {
					c.Y = 0
				}
			}
			frame.SetGray(x, y, c)
		}
	}
	return frame
}

// encode builds the multi-line write command for frame.  Each line is its bit-reversed 1-based
// address, the pixels (1 is white, leftmost pixel first) and a trailer byte; the transfer ends with
// one more trailer.
func (s *Screen) encode(frame *image.Gray) []byte {
	stride := s.width / 8
	buf := make([]byte, 0, 2+s.height*(stride+2))
	buf = append(buf, s.command(cmdWrite))
	for y := 0; y < s.height; y++ {
		buf = append(buf, bits.Reverse8(byte(y+1)))
		for xb := 0; xb < stride; xb++ {
			var b byte
			for i := 0; i < 8; i++ {
				if frame.GrayAt(xb*8+i, y).Y != 0 {
					b |= 0x80 >> i
				}
			}
			buf = append(buf, b)
		}
		buf = append(buf, 0x00)
	}
	return append(buf, 0x00)
}

// Commit displays the provided image on the screen, replacing everything.
func (s *Screen) Commit(img image.Image) error {
	frame := s.threshold(img)
	s.imageMu.Lock()
	s.image = frame
	s.imageMu.Unlock()
	if s.conn == nil {
		return nil
	}
	start := time.Now()
	buf := s.encode(frame)
	if err := s.send(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	commitBytesCounter.Add(float64(len(buf)))
	commitDurationMetric.Observe(time.Since(start).Seconds())
	return nil
}

// Frame returns a copy of the last committed image.
func (s *Screen) Frame() *image.Gray {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	frame := image.NewGray(s.image.Bounds())
	copy(frame.Pix, s.image.Pix)
	return frame
}

// ServeHTTP serves the current image as a PNG.
func (s *Screen) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("content-type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, s.Frame()); err != nil {
		log.Printf("encoding image: %v", err)
	}
}
