package clock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jrockway/memlcd-clock/control/rtc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

// Defaults for a clock that only shows minutes: a full frame, then 29 one-second polarity pulses.
const (
	DefaultInterval = 1000 * time.Millisecond
	DefaultPulses   = 29
)

var polarityTogglesCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "polarity_toggles",
	Help: "count of polarity toggle pulses sent to the display",
})

// Source reads the current time.
type Source interface {
	ReadTime() (rtc.Sample, error)
}

// Sleeper is a blocking, uninterruptible, low-power delay.
type Sleeper interface {
	Sleep(d time.Duration)
}

// State is what the scheduler will do on its next tick.
type State int

const (
	Rendering State = iota
	IdleToggling
)

func (s State) String() string {
	switch s {
	case Rendering:
		return "RENDERING"
	case IdleToggling:
		return "IDLE_TOGGLING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Scheduler alternates between rendering a full frame and pulsing the display's polarity.
//
// A memory LCD holds its image without power, so there is no point committing a frame more often
// than the picture changes.  It does, however, need its polarity inverted regularly whatever it's
// showing, and that is much cheaper than a frame.
type Scheduler struct {
	clock    *Clock
	source   Source
	sleeper  Sleeper
	interval time.Duration
	pulses   int

	state   State
	toggles int
	events  trace.EventLog
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the delay before each polarity pulse.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPulses sets the number of polarity pulses between full frames.  At least one pulse, and so
// one sleep, follows every frame; n < 1 is ignored.
func WithPulses(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.pulses = n
		}
	}
}

// NewScheduler returns a scheduler in the Rendering state.
func NewScheduler(c *Clock, src Source, sl Sleeper, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    c,
		source:   src,
		sleeper:  sl,
		interval: DefaultInterval,
		pulses:   DefaultPulses,
		state:    Rendering,
		events:   trace.NewEventLog("clock", "scheduler"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the state the next Tick will run in.
func (s *Scheduler) State() State { return s.state }

// Tick does one unit of work: either reads the time and renders a frame, or sleeps and then pulses
// the display's polarity.  Any error is meant to be fatal; there is nowhere else to show it.
func (s *Scheduler) Tick() error {
	switch s.state {
	case Rendering:
		sample, err := s.source.ReadTime()
		if err != nil {
			s.events.Errorf("read time: %v", err)
			return fmt.Errorf("read time: %w", err)
		}
		if err := s.clock.Render(sample); err != nil {
			return fmt.Errorf("render %v: %w", sample, err)
		}
		s.toggles = 0
		s.state = IdleToggling
	case IdleToggling:
		s.sleeper.Sleep(s.interval)
		if err := s.clock.display.TogglePolarity(); err != nil {
			s.events.Errorf("toggle polarity: %v", err)
			return fmt.Errorf("toggle polarity: %w", err)
		}
		polarityTogglesCounter.Inc()
		s.toggles++
		if s.toggles >= s.pulses {
			s.state = Rendering
		}
	default:
		return fmt.Errorf("unknown scheduler state %v", s.state)
	}
	return nil
}

// Run ticks forever.  The context is only looked at between ticks, so cancelling it never cuts a
// sleep short; it exists so that tests and signal handlers can stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("starting clock loop: a frame every %d pulses of %s", s.pulses+1, s.interval)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("clock loop: %w", err)
		}
		if err := s.Tick(); err != nil {
			return err
		}
	}
}
