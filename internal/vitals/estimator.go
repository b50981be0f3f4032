// Package vitals turns detected heartbeats into SpO2 and pulse-rate
// estimates and smooths them across readings before transmission.
package vitals

import (
	"fmt"
	"log/slog"
	"time"
)

// Beat captures one detected heartbeat: the interval since the previous
// beat and the pulsatile extremes plus baseline of both channels over that
// interval.
type Beat struct {
	T        time.Time
	Interval time.Duration

	IRPeak, IRTrough   float64
	RedPeak, RedTrough float64
	IRDC, RedDC        float64
}

// Reading is one estimate cycle's output. Valid is false when the signal
// was insufficient; invalid readings carry no numeric values downstream.
type Reading struct {
	SpO2  float64 // percent, [0, 100]
	BPM   float64
	Valid bool
}

// EstimatorOptions configures the vital-sign estimator.
type EstimatorOptions struct {
	// Window is the number of recent beats averaged into each estimate.
	Window int
	// MinBeats is the minimum number of clean inter-beat intervals before
	// the first Reading is produced.
	MinBeats int
	// MinInterval and MaxInterval bound plausible inter-beat intervals;
	// beats outside the range are excluded as outliers.
	MinInterval time.Duration
	MaxInterval time.Duration
	// NoiseFloor is the minimum peak-to-trough amplitude on either channel.
	// Below it the sensor is considered decoupled from tissue.
	NoiseFloor float64
	// CalibrationA and CalibrationB map the averaged ratio-of-ratios R to
	// SpO2 as A - B*R. External calibration constants, never derived at
	// runtime.
	CalibrationA float64
	CalibrationB float64
}

// DefaultEstimatorOptions returns the firmware calibration (SpO2 = 110 - 25R)
// with plausible heart-rate bounds of 30-200 BPM.
func DefaultEstimatorOptions() EstimatorOptions {
	return EstimatorOptions{
		Window:       8,
		MinBeats:     2,
		MinInterval:  300 * time.Millisecond,
		MaxInterval:  2 * time.Second,
		NoiseFloor:   50,
		CalibrationA: 110,
		CalibrationB: 25,
	}
}

// Estimator combines beat timing and per-beat amplitudes into Readings.
type Estimator struct {
	opts EstimatorOptions

	intervals []float64 // seconds, most recent last
	ratios    []float64
}

// NewEstimator validates the options and creates an estimator.
func NewEstimator(opts EstimatorOptions) (*Estimator, error) {
	if opts.Window < 1 {
		return nil, fmt.Errorf("vitals: window must be >= 1, got %d", opts.Window)
	}
	if opts.MinBeats < 2 || opts.MinBeats > opts.Window {
		return nil, fmt.Errorf("vitals: min beats must be in [2, %d], got %d", opts.Window, opts.MinBeats)
	}
	if opts.MinInterval <= 0 || opts.MaxInterval <= opts.MinInterval {
		return nil, fmt.Errorf("vitals: interval bounds [%v, %v] are invalid", opts.MinInterval, opts.MaxInterval)
	}
	if opts.NoiseFloor <= 0 {
		return nil, fmt.Errorf("vitals: noise floor must be > 0, got %g", opts.NoiseFloor)
	}
	if opts.CalibrationA <= 0 || opts.CalibrationB <= 0 {
		return nil, fmt.Errorf("vitals: calibration constants A=%g B=%g must be > 0", opts.CalibrationA, opts.CalibrationB)
	}
	return &Estimator{opts: opts}, nil
}

// AddBeat folds one beat into the rolling window. It returns a Reading and
// true once enough clean beats exist; false means insufficient data, which
// is normal during startup, not an error. A beat with below-noise-floor
// amplitudes yields an explicit invalid Reading and resets the window so
// stale values cannot leak into later estimates.
func (e *Estimator) AddBeat(b Beat) (Reading, bool) {
	secs := b.Interval.Seconds()
	if b.Interval < e.opts.MinInterval || b.Interval > e.opts.MaxInterval {
		slog.Debug("excluding outlier beat interval", "interval", b.Interval)
		return Reading{}, false
	}

	irAC := b.IRPeak - b.IRTrough
	redAC := b.RedPeak - b.RedTrough
	if irAC < e.opts.NoiseFloor || redAC < e.opts.NoiseFloor || b.IRDC <= 0 || b.RedDC <= 0 {
		slog.Debug("beat amplitude below noise floor", "ir_ac", irAC, "red_ac", redAC)
		e.reset()
		return Reading{Valid: false}, true
	}

	r := (redAC / b.RedDC) / (irAC / b.IRDC)
	e.intervals = appendWindow(e.intervals, secs, e.opts.Window)
	e.ratios = appendWindow(e.ratios, r, e.opts.Window)

	if len(e.intervals) < e.opts.MinBeats {
		return Reading{}, false
	}

	bpm := 60 / mean(e.intervals)
	spo2 := e.opts.CalibrationA - e.opts.CalibrationB*mean(e.ratios)
	if spo2 > 100 {
		spo2 = 100
	}
	if spo2 < 0 {
		spo2 = 0
	}
	return Reading{SpO2: spo2, BPM: bpm, Valid: true}, true
}

// NoPulse reports signal loss. The window is cleared and an explicit
// invalid Reading is returned for the aggregation layer.
func (e *Estimator) NoPulse() Reading {
	e.reset()
	return Reading{Valid: false}
}

func (e *Estimator) reset() {
	e.intervals = e.intervals[:0]
	e.ratios = e.ratios[:0]
}

// appendWindow appends v and evicts the oldest entry beyond size.
func appendWindow(s []float64, v float64, size int) []float64 {
	s = append(s, v)
	if len(s) > size {
		s = s[1:]
	}
	return s
}

func mean(s []float64) float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
