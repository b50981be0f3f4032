package sensor

import (
	"math"
	"time"
)

// SyntheticOptions shapes the generated waveform. With equal baselines the
// ratio-of-ratios R works out to RedAmplitude/IRAmplitude.
type SyntheticOptions struct {
	SampleRate   float64 // samples per second
	PulseHz      float64 // heartbeats per second
	IRBaseline   float64
	RedBaseline  float64
	IRAmplitude  float64
	RedAmplitude float64
}

// DefaultSyntheticOptions returns a 60 BPM waveform at 100 Hz with an
// amplitude ratio of 0.4 (SpO2 of 100% under the 110 - 25*R calibration).
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		SampleRate:   100,
		PulseHz:      1.0,
		IRBaseline:   50000,
		RedBaseline:  50000,
		IRAmplitude:  3000,
		RedAmplitude: 1200,
	}
}

// Synthetic produces a deterministic two-channel sinusoid. Timestamps
// advance by exactly one sample period per read, independent of wall-clock
// jitter, so downstream interval math is exact in tests.
type Synthetic struct {
	opts  SyntheticOptions
	start time.Time
	n     int
}

// NewSynthetic creates a synthetic source starting at the given instant.
func NewSynthetic(opts SyntheticOptions, start time.Time) *Synthetic {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSyntheticOptions().SampleRate
	}
	if opts.PulseHz <= 0 {
		opts.PulseHz = DefaultSyntheticOptions().PulseHz
	}
	return &Synthetic{opts: opts, start: start}
}

// ReadSample returns the next sample of the waveform.
func (s *Synthetic) ReadSample() (Sample, error) {
	secs := float64(s.n) / s.opts.SampleRate
	t := s.start.Add(time.Duration(secs * float64(time.Second)))
	phase := 2 * math.Pi * s.opts.PulseHz * secs
	ir := s.opts.IRBaseline + s.opts.IRAmplitude*math.Sin(phase)
	red := s.opts.RedBaseline + s.opts.RedAmplitude*math.Sin(phase)
	s.n++
	return Sample{T: t, IR: uint32(ir), Red: uint32(red)}, nil
}

var _ Source = (*Synthetic)(nil)
