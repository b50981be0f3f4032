// Package sensor provides raw two-wavelength PPG samples, either from a
// MAX30101 optical sensor over I2C or from a synthetic waveform generator
// used for development and tests.
package sensor

import "time"

// Sample is one acquisition from the two optical channels. IR and Red are
// the raw 18-bit ADC counts from the sensor FIFO.
type Sample struct {
	T   time.Time
	IR  uint32
	Red uint32
}

// Source abstracts the raw-sample producer for testing.
type Source interface {
	// ReadSample returns the next sample. Errors are transient: the caller
	// skips the cycle and keeps polling.
	ReadSample() (Sample, error)
}
