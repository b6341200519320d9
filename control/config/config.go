// Package config loads the clock's settings.  Defaults are overridden by an optional YAML file,
// which is overridden by CLOCK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Clock sources.
const (
	SourceSystem = "system"
	SourceDS3231 = "ds3231"
	SourceGPSD   = "gpsd"
)

// Config is everything that varies between installations.
type Config struct {
	// SPI is the SPI port the display is on; empty runs without a display, for debugging.
	SPI string `koanf:"spi"`

	// SPIHz is the SPI clock rate.
	SPIHz int64 `koanf:"spi_hz"`

	// ChipSelect names the GPIO wired to the display's active-high SCS input.
	ChipSelect string `koanf:"cs_pin"`

	Width  int `koanf:"width"`
	Height int `koanf:"height"`

	// Source is where the time comes from: system, ds3231 or gpsd.
	Source string `koanf:"source"`

	// I2C is the bus the DS3231 is on.
	I2C string `koanf:"i2c"`

	// GPSD is the address of gpsd.
	GPSD string `koanf:"gpsd"`

	// Chrony, if set, is the address of chronyd's command port.  Startup fails if chronyd
	// says the system clock is unsynchronized.
	Chrony string `koanf:"chrony"`

	// Location is the time zone the clock shows.
	Location string `koanf:"location"`

	// Interval is the delay before each polarity toggle.
	Interval time.Duration `koanf:"interval"`

	// Pulses is the number of polarity toggles between full frames.
	Pulses int `koanf:"pulses"`

	// Bind is the address for the debug/metrics server; empty disables it.
	Bind string `koanf:"bind"`
}

// New returns the defaults.
func New() *Config {
	return &Config{
		SPIHz:      1_000_000,
		ChipSelect: "GPIO8",
		Width:      400,
		Height:     240,
		Source:     SourceSystem,
		GPSD:       "localhost:2947",
		Location:   "Local",
		Interval:   time.Second,
		Pulses:     29,
	}
}

// Load layers defaults, the YAML file at path (if path is not empty) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// CLOCK_SPI_HZ -> spi_hz.
	envProvider := env.Provider("CLOCK_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "clock_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the config describes a clock that can run.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceSystem, SourceGPSD:
	case SourceDS3231:
		if c.I2C == "" {
			return fmt.Errorf("source ds3231 needs an i2c bus: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("unknown source %q: %w", c.Source, ErrInvalidConfig)
	}
	if c.Source == SourceGPSD && c.GPSD == "" {
		return fmt.Errorf("source gpsd needs a gpsd address: %w", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval %s must be positive: %w", c.Interval, ErrInvalidConfig)
	}
	if c.Pulses < 1 {
		return fmt.Errorf("pulses %d must be at least 1: %w", c.Pulses, ErrInvalidConfig)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("display size %dx%d: %w", c.Width, c.Height, ErrInvalidConfig)
	}
	if c.SPI != "" && (c.ChipSelect == "" || c.SPIHz <= 0) {
		return fmt.Errorf("spi display needs cs_pin and spi_hz: %w", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.Location); err != nil {
		return fmt.Errorf("location %q: %v: %w", c.Location, err, ErrInvalidConfig)
	}
	return nil
}

// TimeLocation returns the configured time zone.  The config must be valid.
func (c *Config) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.Local
	}
	return loc
}
