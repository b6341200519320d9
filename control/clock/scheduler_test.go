package clock

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jrockway/memlcd-clock/control/rtc"
)

type fakeSource struct {
	sample rtc.Sample
	err    error
	reads  int
}

func (s *fakeSource) ReadTime() (rtc.Sample, error) {
	s.reads++
	if s.err != nil {
		return rtc.Sample{}, s.err
	}
	smp := s.sample
	smp.Minute = (smp.Minute + s.reads - 1) % 60
	return smp, nil
}

type fakeSleeper struct {
	*recorder
	slept []time.Duration
	after func(n int)
}

func (s *fakeSleeper) Sleep(d time.Duration) {
	s.add("sleep")
	s.slept = append(s.slept, d)
	if s.after != nil {
		s.after(len(s.slept))
	}
}

func newTestScheduler(opts ...Option) (*Scheduler, *recorder, *fakeSource, *fakeSleeper) {
	r := new(recorder)
	src := &fakeSource{sample: rtc.Sample{Year: 2024, Month: 3, Day: 15, Weekday: 5, Hour: 14}}
	sl := &fakeSleeper{recorder: r}
	c := New(&fakeScene{recorder: new(recorder)}, &fakeDisplay{recorder: r})
	return NewScheduler(c, src, sl, opts...), r, src, sl
}

func TestSchedulerCycle(t *testing.T) {
	s, r, src, sl := newTestScheduler()
	if got, want := s.State(), Rendering; got != want {
		t.Errorf("initial state:\n  got: %v\n want: %v", got, want)
	}
	for i := 0; i < 90; i++ {
		if err := s.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if got, want := r.count("commit"), 3; got != want {
		t.Errorf("commits in 90 ticks:\n  got: %v\n want: %v", got, want)
	}
	if got, want := r.count("toggle"), 87; got != want {
		t.Errorf("toggles in 90 ticks:\n  got: %v\n want: %v", got, want)
	}
	if got, want := src.reads, 3; got != want {
		t.Errorf("clock reads in 90 ticks:\n  got: %v\n want: %v", got, want)
	}
	for i, d := range sl.slept {
		if d != DefaultInterval {
			t.Errorf("sleep %d:\n  got: %v\n want: %v", i, d, DefaultInterval)
		}
	}

	// Every toggle comes right after a sleep, and there are exactly 29 between commits.
	var between int
	var commits int
	for i, op := range r.ops {
		switch op {
		case "toggle":
			if i == 0 || r.ops[i-1] != "sleep" {
				t.Errorf("toggle at %d was not preceded by a sleep", i)
			}
			between++
		case "commit":
			if commits > 0 && between != DefaultPulses {
				t.Errorf("toggles before commit %d:\n  got: %v\n want: %v", commits, between, DefaultPulses)
			}
			between = 0
			commits++
		}
	}
	if got, want := s.State(), Rendering; got != want {
		t.Errorf("state after 3 full cycles:\n  got: %v\n want: %v", got, want)
	}
}

func TestSchedulerOptions(t *testing.T) {
	s, r, _, sl := newTestScheduler(WithInterval(250*time.Millisecond), WithPulses(2))
	for i := 0; i < 6; i++ {
		if err := s.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	want := []string{"commit", "sleep", "toggle", "sleep", "toggle", "commit", "sleep", "toggle", "sleep", "toggle"}
	if len(r.ops) != len(want) {
		t.Fatalf("operations:\n  got: %v\n want: %v", r.ops, want)
	}
	for i := range want {
		if r.ops[i] != want[i] {
			t.Errorf("operation %d:\n  got: %v\n want: %v", i, r.ops[i], want[i])
		}
	}
	if got, want := sl.slept[0], 250*time.Millisecond; got != want {
		t.Errorf("interval:\n  got: %v\n want: %v", got, want)
	}
}

func TestSchedulerBadOptions(t *testing.T) {
	for _, n := range []int{0, -3} {
		t.Run(fmt.Sprintf("pulses=%d", n), func(t *testing.T) {
			s, r, _, sl := newTestScheduler(WithPulses(n), WithInterval(-time.Second))
			for i := 0; i < 3; i++ {
				if err := s.Tick(); err != nil {
					t.Fatalf("tick %d: %v", i, err)
				}
			}
			if got, want := r.count("commit"), 1; got != want {
				t.Errorf("commits:\n  got: %v\n want: %v", got, want)
			}
			if got, want := r.count("sleep"), 2; got != want {
				t.Errorf("sleeps:\n  got: %v\n want: %v", got, want)
			}
			if got, want := s.pulses, DefaultPulses; got != want {
				t.Errorf("pulses:\n  got: %v\n want: %v", got, want)
			}
			if got, want := sl.slept[0], DefaultInterval; got != want {
				t.Errorf("interval:\n  got: %v\n want: %v", got, want)
			}
		})
	}
}

func TestSchedulerErrors(t *testing.T) {
	s, _, src, _ := newTestScheduler()
	src.err = rtc.ErrNoFix
	if err := s.Tick(); !errors.Is(err, rtc.ErrNoFix) {
		t.Errorf("tick with failing source:\n  got: %v\n want: %v", err, rtc.ErrNoFix)
	}
	if got, want := s.State(), Rendering; got != want {
		t.Errorf("state after failed read:\n  got: %v\n want: %v", got, want)
	}

	s, _, _, _ = newTestScheduler()
	broken := errors.New("vcom stuck")
	s.clock.display.(*fakeDisplay).toggleErr = broken
	if err := s.Tick(); err != nil {
		t.Fatalf("render tick: %v", err)
	}
	if err := s.Tick(); !errors.Is(err, broken) {
		t.Errorf("tick with failing toggle:\n  got: %v\n want: %v", err, broken)
	}
}

func TestRun(t *testing.T) {
	s, r, _, sl := newTestScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sl.after = func(n int) {
		if n == 40 {
			cancel()
		}
	}

	errCh := make(chan error)
	go func() { errCh <- s.Run(ctx) }()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for loop to stop")
	}
	// The sleep in progress when the context was cancelled still finishes its pulse.
	if got, want := r.count("commit"), 2; got != want {
		t.Errorf("commits:\n  got: %v\n want: %v", got, want)
	}
	if got, want := r.count("toggle"), 40; got != want {
		t.Errorf("toggles:\n  got: %v\n want: %v", got, want)
	}
}

func TestRunFatal(t *testing.T) {
	s, r, src, _ := newTestScheduler()
	src.err = errors.New("rtc gone")
	if err := s.Run(context.Background()); !errors.Is(err, src.err) {
		t.Errorf("run with failing source:\n  got: %v\n want: %v", err, src.err)
	}
	if len(r.ops) != 0 {
		t.Errorf("failed read still touched the display: %v", r.ops)
	}
}

func TestStateString(t *testing.T) {
	if got, want := IdleToggling.String(), "IDLE_TOGGLING"; got != want {
		t.Errorf("state name:\n  got: %v\n want: %v", got, want)
	}
}
