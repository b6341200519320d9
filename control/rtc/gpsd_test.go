package rtc

import (
	"errors"
	"testing"
	"time"

	"github.com/jrockway/go-gpsd"
)

func TestGPSD(t *testing.T) {
	system := time.Date(2024, time.March, 15, 14, 29, 0, 0, time.UTC)
	g := NewGPSD("localhost:2947", time.UTC)
	g.now = func() time.Time { return system }

	if _, err := g.ReadTime(); !errors.Is(err, ErrNoFix) {
		t.Errorf("read before fix:\n  got: %v\n want: %v", err, ErrNoFix)
	}

	if g.update(&gpsd.TPVReport{Mode: 1, Time: system}) {
		t.Error("report without a fix was accepted")
	}
	if g.update(&gpsd.TPVReport{Mode: 3}) {
		t.Error("report without a time was accepted")
	}
	if _, err := g.ReadTime(); !errors.Is(err, ErrNoFix) {
		t.Errorf("read after useless reports:\n  got: %v\n want: %v", err, ErrNoFix)
	}

	if !g.update(&gpsd.TPVReport{Mode: 3, Time: system.Add(time.Minute)}) {
		t.Fatal("3D fix was ignored")
	}
	if got, want := g.LastFix(), system; !got.Equal(want) {
		t.Errorf("last fix:\n  got: %v\n want: %v", got, want)
	}

	// The system clock keeps running; the offset is applied to it.
	system = system.Add(30 * time.Second)
	got, err := g.ReadTime()
	if err != nil {
		t.Fatalf("read time: %v", err)
	}
	if want := (Sample{Year: 2024, Month: 3, Day: 15, Weekday: 5, Hour: 14, Minute: 30, Second: 30}); got != want {
		t.Errorf("gps time:\n  got: %v\n want: %v", got, want)
	}
}
