// Package clock draws the time on the clock face, and decides when the display needs a new frame
// and when it only needs its polarity refreshed.
package clock

import (
	"fmt"
	"image"
	"time"

	"github.com/jrockway/memlcd-clock/control/hands"
	"github.com/jrockway/memlcd-clock/control/rtc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

var (
	framesCommittedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_committed",
		Help: "count of full frames sent to the display",
	})

	renderDurationMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_duration",
		Help:    "time taken to draw and commit one frame, in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)

// Display is a memory LCD.  Commit replaces the whole image; TogglePolarity keeps the panel healthy
// without changing what it shows.
type Display interface {
	Commit(img image.Image) error
	TogglePolarity() error
}

// Scene is the clock face.  Setting values must not draw anything.
type Scene interface {
	SetHourPointer(angle float64)
	SetMinutePointer(angle float64)
	SetTimeLabel(text string)
	SetDateLabel(text string)
	Render() image.Image
}

// Clock renders time samples to a display.
type Clock struct {
	scene   Scene
	display Display
	events  trace.EventLog
}

// New returns a clock that draws sc to d.
func New(sc Scene, d Display) *Clock {
	return &Clock{scene: sc, display: d, events: trace.NewEventLog("clock", "render")}
}

// Render updates the clock face from s and commits one full frame.  An invalid sample is an error
// rather than a wrapped-around hand.
func (c *Clock) Render(s rtc.Sample) error {
	start := time.Now()
	if err := s.Validate(); err != nil {
		c.events.Errorf("invalid sample %v: %v", s, err)
		return fmt.Errorf("validate sample: %w", err)
	}

	h, m := hands.Angles(s.Hour%12, s.Minute)
	c.scene.SetHourPointer(h)
	c.scene.SetMinutePointer(m)
	timeLabel, dateLabel := TimeLabel(s.Hour, s.Minute), DateLabel(s)
	c.scene.SetTimeLabel(timeLabel)
	c.scene.SetDateLabel(dateLabel)

	if err := c.display.Commit(c.scene.Render()); err != nil {
		c.events.Errorf("commit %s: %v", timeLabel, err)
		return fmt.Errorf("commit frame: %w", err)
	}
	framesCommittedCounter.Inc()
	d := time.Since(start)
	renderDurationMetric.Observe(d.Seconds())
	c.events.Printf("rendered %s %q (hour %.4f, minute %.4f) in %s", timeLabel, dateLabel, h, m, d)
	return nil
}
