// Package rtc provides the time samples the clock face is drawn from, and the sources that
// produce them.
package rtc

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSample is returned when a sample has a field outside its range.
	ErrInvalidSample = errors.New("invalid time sample")
	// ErrNoFix is returned by sources that have not yet learned the time.
	ErrNoFix = errors.New("no time fix")
	// ErrUnsynchronized is returned when chronyd reports that the system clock is not
	// synchronized.
	ErrUnsynchronized = errors.New("clock unsynchronized")
)

// Sample is one reading of a clock source.  Weekday runs from 1 (Monday) to 7 (Sunday) and Hour is
// in 24-hour form.  Subsecond is whatever sub-second resolution the source has.
type Sample struct {
	Year      int
	Month     int
	Day       int
	Weekday   int
	Hour      int
	Minute    int
	Second    int
	Subsecond time.Duration
}

// FromTime converts t to a Sample in t's location.
func FromTime(t time.Time) Sample {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return Sample{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		Weekday:   wd,
		Hour:      t.Hour(),
		Minute:    t.Minute(),
		Second:    t.Second(),
		Subsecond: time.Duration(t.Nanosecond()),
	}
}

// Validate returns an error wrapping ErrInvalidSample if any field is out of range.
func (s Sample) Validate() error {
	check := func(name string, v, min, max int) error {
		if v < min || v > max {
			return fmt.Errorf("%s %d not in [%d, %d]: %w", name, v, min, max, ErrInvalidSample)
		}
		return nil
	}
	for _, err := range []error{
		check("month", s.Month, 1, 12),
		check("day", s.Day, 1, 31),
		check("weekday", s.Weekday, 1, 7),
		check("hour", s.Hour, 0, 23),
		check("minute", s.Minute, 0, 59),
		check("second", s.Second, 0, 59),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s Sample) String() string {
	return fmt.Sprintf("%04d-%02d-%02d(%d) %02d:%02d:%02d", s.Year, s.Month, s.Day, s.Weekday, s.Hour, s.Minute, s.Second)
}

// System reads the host's clock.
type System struct {
	Location *time.Location
	now      func() time.Time
}

// NewSystem returns a source that reads the system clock in loc.  A nil loc means local time.
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}
	return &System{Location: loc, now: time.Now}
}

// ReadTime implements clock.Source.
func (s *System) ReadTime() (Sample, error) {
	return FromTime(s.now().In(s.Location)), nil
}
