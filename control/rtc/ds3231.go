package rtc

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DS3231Addr is the fixed I2C address of the DS3231.
const DS3231Addr = 0x68

type register uint8

const (
	rSeconds register = 0x00
	rStatus  register = 0x0f
)

const (
	hour12     = 0x40
	hourPM     = 0x20
	century    = 0x80
	oscStopped = 0x80
)

// DS3231 is a battery-backed real time clock.  The chip keeps UTC; readings are converted to
// Location.  The chip doesn't care what day of the week its weekday register counts from; we store
// 1 for Monday, but readings take the weekday from the converted date.
type DS3231 struct {
	Location *time.Location
	dev      i2c.Dev
}

// NewDS3231 returns a DS3231 on bus that reports time in loc.
func NewDS3231(bus i2c.Bus, loc *time.Location) *DS3231 {
	return &DS3231{Location: loc, dev: i2c.Dev{Bus: bus, Addr: DS3231Addr}}
}

func (d *DS3231) readRegisters(r register, out []byte) error {
	if err := d.dev.Tx([]byte{byte(r)}, out); err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	return nil
}

func (d *DS3231) writeRegisters(r register, data ...byte) error {
	w := make([]byte, 1, len(data)+1)
	w[0] = byte(r)
	w = append(w, data...)
	if err := d.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	return nil
}

func fromBCD(b byte) int { return int(b>>4)*10 + int(b&0x0f) }

func toBCD(v int) byte { return byte(v/10)<<4 | byte(v%10) }

// ReadTime implements clock.Source.  If the oscillator has stopped since the time was last set, the
// time is meaningless and ErrNoFix is returned.
func (d *DS3231) ReadTime() (Sample, error) {
	var status [1]byte
	if err := d.readRegisters(rStatus, status[:]); err != nil {
		return Sample{}, fmt.Errorf("read status register: %w", err)
	}
	if status[0]&oscStopped != 0 {
		return Sample{}, fmt.Errorf("ds3231 oscillator stopped: %w", ErrNoFix)
	}

	var buf [7]byte
	if err := d.readRegisters(rSeconds, buf[:]); err != nil {
		return Sample{}, fmt.Errorf("read time registers: %w", err)
	}
	s := Sample{
		Second: fromBCD(buf[0] & 0x7f),
		Minute: fromBCD(buf[1] & 0x7f),
		Day:    fromBCD(buf[4] & 0x3f),
		Month:  fromBCD(buf[5] & 0x1f),
		Year:   2000 + fromBCD(buf[6]),
	}
	if buf[5]&century != 0 {
		s.Year += 100
	}
	if h := buf[2]; h&hour12 != 0 {
		s.Hour = fromBCD(h&0x1f) % 12
		if h&hourPM != 0 {
			s.Hour += 12
		}
	} else {
		s.Hour = fromBCD(h & 0x3f)
	}
	t := time.Date(s.Year, time.Month(s.Month), s.Day, s.Hour, s.Minute, s.Second, 0, time.UTC)
	// time.Date normalizes out-of-range fields; a register file holding garbage must not.
	if t.Month() != time.Month(s.Month) || t.Day() != s.Day || t.Hour() != s.Hour || t.Minute() != s.Minute || t.Second() != s.Second {
		return Sample{}, fmt.Errorf("ds3231 registers hold %04d-%02d-%02d %02d:%02d:%02d: %w", s.Year, s.Month, s.Day, s.Hour, s.Minute, s.Second, ErrInvalidSample)
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(t.In(loc)), nil
}

// Set loads t, as UTC, into the RTC in 24-hour mode and clears the oscillator-stopped flag.
func (d *DS3231) Set(t time.Time) error {
	t = t.UTC()
	if y := t.Year(); y < 2000 || y > 2199 {
		return fmt.Errorf("year %d out of range for ds3231", y)
	}
	s := FromTime(t)
	month := toBCD(s.Month)
	year := s.Year - 2000
	if year >= 100 {
		month |= century
		year -= 100
	}
	if err := d.writeRegisters(rSeconds, toBCD(s.Second), toBCD(s.Minute), toBCD(s.Hour), byte(s.Weekday), toBCD(s.Day), month, toBCD(year)); err != nil {
		return fmt.Errorf("write time registers: %w", err)
	}
	var status [1]byte
	if err := d.readRegisters(rStatus, status[:]); err != nil {
		return fmt.Errorf("read status register: %w", err)
	}
	if err := d.writeRegisters(rStatus, status[0]&^oscStopped); err != nil {
		return fmt.Errorf("write status register: %w", err)
	}
	return nil
}
