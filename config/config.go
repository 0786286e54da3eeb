// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Environment variables read by Load.
const (
	EnvBlockDuration = "AUDSTREAM_BLOCK_DURATION"
	EnvPumpInterval  = "AUDSTREAM_PUMP_INTERVAL"
	EnvDeviceBuffer  = "AUDSTREAM_DEVICE_BUFFER"
	EnvSampleRate    = "AUDSTREAM_SAMPLE_RATE"
	EnvChannels      = "AUDSTREAM_CHANNELS"
	EnvLogLevel      = "AUDSTREAM_LOG_LEVEL"
	EnvVolume        = "AUDSTREAM_VOLUME"
)

var ErrInvalidValue = errors.New("invalid configuration value")

type Config struct {
	// BlockDuration is the amount of audio in one stream buffer.
	BlockDuration time.Duration
	// PumpInterval is how often managed streams are topped up.
	PumpInterval time.Duration
	// DeviceBuffer is the output driver buffer, 0 for the platform default.
	DeviceBuffer time.Duration
	// SampleRate and Channels are the output device format. Sounds in any
	// other format are converted while they play.
	SampleRate int
	Channels   int
	LogLevel   zerolog.Level
	// Volume is the initial listener volume in [0, 1].
	Volume float64
}

func Default() Config {
	return Config{
		BlockDuration: time.Second,
		PumpInterval:  100 * time.Millisecond,
		SampleRate:    44100,
		Channels:      2,
		LogLevel:      zerolog.InfoLevel,
		Volume:        1,
	}
}

// Load reads files into the environment and builds a Config from the
// AUDSTREAM_* variables on top of Default. Variables already set in the
// environment win over the files. Without files it tries ".env" and does
// not mind if it is missing.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	return FromEnv()
}

// FromEnv builds a Config from the process environment.
func FromEnv() (Config, error) {
	cfg := Default()

	var errs []error
	duration(EnvBlockDuration, &cfg.BlockDuration, &errs)
	duration(EnvPumpInterval, &cfg.PumpInterval, &errs)
	duration(EnvDeviceBuffer, &cfg.DeviceBuffer, &errs)
	integer(EnvSampleRate, &cfg.SampleRate, &errs)
	integer(EnvChannels, &cfg.Channels, &errs)

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		lvl, err := zerolog.ParseLevel(v)
		if err != nil {
			errs = append(errs, invalid(EnvLogLevel, v, err))
		} else {
			cfg.LogLevel = lvl
		}
	}

	if v, ok := os.LookupEnv(EnvVolume); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, invalid(EnvVolume, v, err))
		} else {
			cfg.Volume = f
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func duration(key string, dst *time.Duration, errs *[]error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, invalid(key, v, err))
		return
	}
	*dst = d
}

func integer(key string, dst *int, errs *[]error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, invalid(key, v, err))
		return
	}
	*dst = n
}

func invalid(key, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, value, err)
}

// Validate reports every out of range field.
func (c Config) Validate() error {
	var errs []error
	if c.BlockDuration <= 0 {
		errs = append(errs, fmt.Errorf("%w: block duration %s must be positive", ErrInvalidValue, c.BlockDuration))
	}
	if c.PumpInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: pump interval %s must be positive", ErrInvalidValue, c.PumpInterval))
	}
	if c.DeviceBuffer < 0 {
		errs = append(errs, fmt.Errorf("%w: device buffer %s is negative", ErrInvalidValue, c.DeviceBuffer))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidValue, c.SampleRate))
	}
	if c.Channels < 1 || c.Channels > 2 {
		errs = append(errs, fmt.Errorf("%w: %d channels, want 1 or 2", ErrInvalidValue, c.Channels))
	}
	if c.Volume < 0 || c.Volume > 1 {
		errs = append(errs, fmt.Errorf("%w: volume %g out of [0, 1]", ErrInvalidValue, c.Volume))
	}
	return errors.Join(errs...)
}
