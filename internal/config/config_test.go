package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DeviceName != "PicoW_Oximeter" {
		t.Errorf("DeviceName = %q, want %q", cfg.DeviceName, "PicoW_Oximeter")
	}
	if cfg.Sensor.SampleRateHz != 100 {
		t.Errorf("Sensor.SampleRateHz = %d, want 100", cfg.Sensor.SampleRateHz)
	}
	if cfg.Filter.Window != 8 {
		t.Errorf("Filter.Window = %d, want 8", cfg.Filter.Window)
	}
	if cfg.Vitals.CalibrationA != 110 || cfg.Vitals.CalibrationB != 25 {
		t.Errorf("calibration = (%g, %g), want (110, 25)", cfg.Vitals.CalibrationA, cfg.Vitals.CalibrationB)
	}
	if cfg.Aggregation.Count != 4 {
		t.Errorf("Aggregation.Count = %d, want 4", cfg.Aggregation.Count)
	}
	if cfg.BLE.AdvertisingIntervalMs != 500 {
		t.Errorf("BLE.AdvertisingIntervalMs = %d, want 500", cfg.BLE.AdvertisingIntervalMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device_name: BedsideOx
log_level: debug
sensor:
  sample_rate_hz: 50
  i2c_device: /dev/i2c-1
filter:
  window: 4
  dc_alpha: 0.1
vitals:
  calibration_a: 104
  calibration_b: 17
aggregation:
  count: 2
ble:
  advertising_interval_ms: 250
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DeviceName != "BedsideOx" {
		t.Errorf("DeviceName = %q, want %q", cfg.DeviceName, "BedsideOx")
	}
	if cfg.Sensor.SampleRateHz != 50 {
		t.Errorf("Sensor.SampleRateHz = %d, want 50", cfg.Sensor.SampleRateHz)
	}
	if cfg.Sensor.I2CDevice != "/dev/i2c-1" {
		t.Errorf("Sensor.I2CDevice = %q, want %q", cfg.Sensor.I2CDevice, "/dev/i2c-1")
	}
	if cfg.Filter.Window != 4 || cfg.Filter.DCAlpha != 0.1 {
		t.Errorf("Filter = %+v, want window 4, alpha 0.1", cfg.Filter)
	}
	if cfg.Vitals.CalibrationA != 104 || cfg.Vitals.CalibrationB != 17 {
		t.Errorf("calibration = (%g, %g), want (104, 17)", cfg.Vitals.CalibrationA, cfg.Vitals.CalibrationB)
	}
	if cfg.Aggregation.Count != 2 {
		t.Errorf("Aggregation.Count = %d, want 2", cfg.Aggregation.Count)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Peaks.RefractoryMs != 300 {
		t.Errorf("Peaks.RefractoryMs = %d, want default 300", cfg.Peaks.RefractoryMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("device_name: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() of malformed yaml should fail")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty device name", func(c *Config) { c.DeviceName = "" }, "device_name"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"zero sample rate", func(c *Config) { c.Sensor.SampleRateHz = 0 }, "sample_rate_hz"},
		{"zero filter window", func(c *Config) { c.Filter.Window = 0 }, "filter.window"},
		{"alpha out of range", func(c *Config) { c.Filter.DCAlpha = 1.5 }, "dc_alpha"},
		{"threshold fraction out of range", func(c *Config) { c.Peaks.ThresholdFraction = 0 }, "threshold_fraction"},
		{"zero refractory", func(c *Config) { c.Peaks.RefractoryMs = 0 }, "refractory_ms"},
		{"timeout below refractory", func(c *Config) { c.Peaks.PulseTimeoutS = 0 }, "pulse_timeout_s"},
		{"min beats of one", func(c *Config) { c.Vitals.MinBeats = 1 }, "min_beats"},
		{"inverted interval bounds", func(c *Config) { c.Vitals.MaxIntervalMs = 100 }, "interval bounds"},
		{"zero calibration slope", func(c *Config) { c.Vitals.CalibrationB = 0 }, "calibration"},
		{"negative calibration intercept", func(c *Config) { c.Vitals.CalibrationA = -1 }, "calibration"},
		{"zero aggregation count", func(c *Config) { c.Aggregation.Count = 0 }, "aggregation.count"},
		{"zero advertising interval", func(c *Config) { c.BLE.AdvertisingIntervalMs = 0 }, "advertising_interval_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
