package rtc

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jrockway/go-gpsd"
	"golang.org/x/net/trace"
)

// GPSD learns the time from gpsd's TPV reports.  Rather than waiting for a report on every read,
// it remembers the offset between GPS time and the system clock and applies that to the system
// clock.
type GPSD struct {
	Location *time.Location
	addr     string
	now      func() time.Time

	mu      sync.Mutex
	offset  time.Duration // GPS time minus system time; must hold mu.
	fixed   bool          // true once offset is meaningful; must hold mu.
	lastFix time.Time     // must hold mu.
}

// NewGPSD returns a source that will read from the gpsd at addr once Watch is running.
func NewGPSD(addr string, loc *time.Location) *GPSD {
	if loc == nil {
		loc = time.Local
	}
	return &GPSD{Location: loc, addr: addr, now: time.Now}
}

// Watch follows gpsd, reconnecting whenever it goes quiet, until the context is cancelled.
func (g *GPSD) Watch(ctx context.Context) {
	l := trace.NewEventLog("source", "gpsd")
	defer l.Finish()
	for {
		g.monitor(ctx, l)
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (g *GPSD) monitor(ctx context.Context, l trace.EventLog) {
	watchdog := make(chan struct{})
	l.Printf("dial %s", g.addr)
	gps, err := gpsd.Dial(g.addr)
	if err != nil {
		l.Errorf("dial gpsd: %v", err)
		return
	}
	gps.AddFilter("TPV", func(r interface{}) {
		select {
		case watchdog <- struct{}{}:
		default:
		}
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok {
			l.Errorf("TPV report of unexpected type: %#v", r)
			return
		}
		if g.update(tpv) {
			l.Printf("fix from %s: %s", tpv.Device, tpv.Time.Format(time.RFC3339Nano))
		}
	})
	log.Printf("starting gpsd watch loop on %s", g.addr)
	done := gps.Watch()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			l.Errorf("gpsd watch stopped; restarting")
			return
		case <-time.After(time.Minute):
			l.Errorf("gpsd hasn't sent a TPV report for 1 minute; restarting")
			return
		case <-watchdog:
			continue
		}
	}
}

// update records the offset implied by a TPV report.  Reports without at least a 2D fix carry no
// trustworthy time and are ignored.
func (g *GPSD) update(tpv *gpsd.TPVReport) bool {
	if tpv.Mode < 2 || tpv.Time.IsZero() {
		return false
	}
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.offset = tpv.Time.Sub(now)
	g.fixed = true
	g.lastFix = now
	return true
}

// LastFix returns the system time at which the last usable report arrived.
func (g *GPSD) LastFix() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFix
}

// ReadTime implements clock.Source.  It returns ErrNoFix until gpsd has reported the time.
func (g *GPSD) ReadTime() (Sample, error) {
	g.mu.Lock()
	offset, fixed := g.offset, g.fixed
	g.mu.Unlock()
	if !fixed {
		return Sample{}, ErrNoFix
	}
	return FromTime(g.now().Add(offset).In(g.Location)), nil
}
