package rtc

import (
	"errors"
	"testing"
	"time"
)

func TestFromTime(t *testing.T) {
	testData := []struct {
		in   time.Time
		want Sample
	}{
		{
			in:   time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC),
			want: Sample{Year: 2024, Month: 3, Day: 15, Weekday: 5, Hour: 14, Minute: 30},
		},
		{
			in:   time.Date(2024, time.March, 17, 23, 59, 58, 250_000_000, time.UTC),
			want: Sample{Year: 2024, Month: 3, Day: 17, Weekday: 7, Hour: 23, Minute: 59, Second: 58, Subsecond: 250 * time.Millisecond},
		},
		{
			in:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			want: Sample{Year: 2024, Month: 1, Day: 1, Weekday: 1},
		},
	}
	for _, test := range testData {
		t.Run(test.in.String(), func(t *testing.T) {
			if got, want := FromTime(test.in), test.want; got != want {
				t.Errorf("sample:\n  got: %v\n want: %v", got, want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := Sample{Year: 2024, Month: 3, Day: 15, Weekday: 5, Hour: 14, Minute: 30}
	if err := good.Validate(); err != nil {
		t.Errorf("validate good sample: %v", err)
	}
	testData := []struct {
		name   string
		modify func(*Sample)
	}{
		{"month", func(s *Sample) { s.Month = 13 }},
		{"day", func(s *Sample) { s.Day = 0 }},
		{"weekday", func(s *Sample) { s.Weekday = 0 }},
		{"hour", func(s *Sample) { s.Hour = 24 }},
		{"minute", func(s *Sample) { s.Minute = 60 }},
		{"second", func(s *Sample) { s.Second = -1 }},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			s := good
			test.modify(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidSample) {
				t.Errorf("validate bad %s:\n  got: %v\n want: %v", test.name, err, ErrInvalidSample)
			}
		})
	}
}

func TestSystem(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	s := NewSystem(loc)
	s.now = func() time.Time { return time.Date(2024, time.March, 15, 19, 30, 0, 0, time.UTC) }
	got, err := s.ReadTime()
	if err != nil {
		t.Fatalf("read time: %v", err)
	}
	if want := (Sample{Year: 2024, Month: 3, Day: 15, Weekday: 5, Hour: 14, Minute: 30}); got != want {
		t.Errorf("system time:\n  got: %v\n want: %v", got, want)
	}
}
