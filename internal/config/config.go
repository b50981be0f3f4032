// Package config loads and validates the static configuration for the
// oximeter. Validation failures are fatal by design: the device must
// refuse to run rather than produce silently wrong vitals.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DeviceName  string            `yaml:"device_name"`
	LogLevel    string            `yaml:"log_level"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Filter      FilterConfig      `yaml:"filter"`
	Peaks       PeakConfig        `yaml:"peaks"`
	Vitals      VitalsConfig      `yaml:"vitals"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	BLE         BLEConfig         `yaml:"ble"`
}

// SensorConfig holds sample acquisition settings.
type SensorConfig struct {
	SampleRateHz int    `yaml:"sample_rate_hz"`
	I2CDevice    string `yaml:"i2c_device"`
}

// FilterConfig holds windowed-filter settings.
type FilterConfig struct {
	Window  int     `yaml:"window"`
	DCAlpha float64 `yaml:"dc_alpha"`
}

// PeakConfig holds peak-detection settings.
type PeakConfig struct {
	ThresholdFraction float64 `yaml:"threshold_fraction"`
	EnvelopeDecay     float64 `yaml:"envelope_decay"`
	NoiseFloor        float64 `yaml:"noise_floor"`
	RefractoryMs      int     `yaml:"refractory_ms"`
	PulseTimeoutS     int     `yaml:"pulse_timeout_s"`
}

// VitalsConfig holds estimation settings, including the SpO2 calibration
// curve SpO2 = A - B*R.
type VitalsConfig struct {
	Window        int     `yaml:"window"`
	MinBeats      int     `yaml:"min_beats"`
	MinIntervalMs int     `yaml:"min_interval_ms"`
	MaxIntervalMs int     `yaml:"max_interval_ms"`
	NoiseFloor    float64 `yaml:"noise_floor"`
	CalibrationA  float64 `yaml:"calibration_a"`
	CalibrationB  float64 `yaml:"calibration_b"`
}

// AggregationConfig holds reading-aggregation settings.
type AggregationConfig struct {
	Count int `yaml:"count"`
}

// BLEConfig holds link-layer settings.
type BLEConfig struct {
	AdvertisingIntervalMs int `yaml:"advertising_interval_ms"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pulseoxd")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with the firmware's tuning.
func Default() *Config {
	return &Config{
		DeviceName: "PicoW_Oximeter",
		LogLevel:   "info",
		Sensor: SensorConfig{
			SampleRateHz: 100,
			I2CDevice:    "/dev/i2c-0",
		},
		Filter: FilterConfig{
			Window:  8,
			DCAlpha: 0.05,
		},
		Peaks: PeakConfig{
			ThresholdFraction: 0.5,
			EnvelopeDecay:     0.995,
			NoiseFloor:        10,
			RefractoryMs:      300,
			PulseTimeoutS:     5,
		},
		Vitals: VitalsConfig{
			Window:        8,
			MinBeats:      2,
			MinIntervalMs: 300,
			MaxIntervalMs: 2000,
			NoiseFloor:    50,
			CalibrationA:  110,
			CalibrationB:  25,
		},
		Aggregation: AggregationConfig{
			Count: 4,
		},
		BLE: BLEConfig{
			AdvertisingIntervalMs: 500,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for values that would make the pipeline
// produce wrong vitals or hang.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("device_name must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if c.Sensor.SampleRateHz <= 0 {
		return fmt.Errorf("sensor.sample_rate_hz must be > 0")
	}

	if c.Filter.Window < 1 {
		return fmt.Errorf("filter.window must be >= 1")
	}
	if c.Filter.DCAlpha <= 0 || c.Filter.DCAlpha >= 1 {
		return fmt.Errorf("filter.dc_alpha must be in (0, 1), got %g", c.Filter.DCAlpha)
	}

	if c.Peaks.ThresholdFraction <= 0 || c.Peaks.ThresholdFraction >= 1 {
		return fmt.Errorf("peaks.threshold_fraction must be in (0, 1), got %g", c.Peaks.ThresholdFraction)
	}
	if c.Peaks.EnvelopeDecay <= 0 || c.Peaks.EnvelopeDecay >= 1 {
		return fmt.Errorf("peaks.envelope_decay must be in (0, 1), got %g", c.Peaks.EnvelopeDecay)
	}
	if c.Peaks.NoiseFloor <= 0 {
		return fmt.Errorf("peaks.noise_floor must be > 0")
	}
	if c.Peaks.RefractoryMs <= 0 {
		return fmt.Errorf("peaks.refractory_ms must be > 0")
	}
	if c.Peaks.PulseTimeoutS*1000 <= c.Peaks.RefractoryMs {
		return fmt.Errorf("peaks.pulse_timeout_s must exceed the refractory interval")
	}

	if c.Vitals.Window < 1 {
		return fmt.Errorf("vitals.window must be >= 1")
	}
	if c.Vitals.MinBeats < 2 || c.Vitals.MinBeats > c.Vitals.Window {
		return fmt.Errorf("vitals.min_beats must be in [2, vitals.window]")
	}
	if c.Vitals.MinIntervalMs <= 0 || c.Vitals.MaxIntervalMs <= c.Vitals.MinIntervalMs {
		return fmt.Errorf("vitals interval bounds [%d, %d] ms are invalid", c.Vitals.MinIntervalMs, c.Vitals.MaxIntervalMs)
	}
	if c.Vitals.NoiseFloor <= 0 {
		return fmt.Errorf("vitals.noise_floor must be > 0")
	}
	if c.Vitals.CalibrationA <= 0 || c.Vitals.CalibrationB <= 0 {
		return fmt.Errorf("vitals calibration constants A=%g B=%g must be > 0", c.Vitals.CalibrationA, c.Vitals.CalibrationB)
	}

	if c.Aggregation.Count < 1 {
		return fmt.Errorf("aggregation.count must be >= 1")
	}

	if c.BLE.AdvertisingIntervalMs <= 0 {
		return fmt.Errorf("ble.advertising_interval_ms must be > 0")
	}

	return nil
}
