// Package oximeter wires the processing stages together: raw samples in,
// aggregated vital-sign readings out, on a fixed-cadence control loop.
package oximeter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/psah/pulseox/internal/config"
	"github.com/psah/pulseox/internal/dsp"
	"github.com/psah/pulseox/internal/sensor"
	"github.com/psah/pulseox/internal/vitals"
)

// Pipeline runs one sample at a time through filter, peak detection,
// estimation, and aggregation. It is single-threaded by design: the
// control loop owns it exclusively.
type Pipeline struct {
	filter     *dsp.Filter
	detector   *dsp.Detector
	estimator  *vitals.Estimator
	aggregator *vitals.Aggregator

	// Per-interval extremes of both channels, reset at each beat. They
	// become the AC terms of the ratio-of-ratios.
	irMax, irMin   float64
	redMax, redMin float64
	tracking       bool

	lastBeat time.Time
	haveBeat bool
	lost     bool
}

// NewPipeline builds the pipeline from validated configuration.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	filter, err := dsp.NewFilter(dsp.FilterOptions{
		Window:  cfg.Filter.Window,
		DCAlpha: cfg.Filter.DCAlpha,
	})
	if err != nil {
		return nil, fmt.Errorf("oximeter: %w", err)
	}

	detector, err := dsp.NewDetector(dsp.DetectorOptions{
		ThresholdFraction: cfg.Peaks.ThresholdFraction,
		EnvelopeDecay:     cfg.Peaks.EnvelopeDecay,
		NoiseFloor:        cfg.Peaks.NoiseFloor,
		Refractory:        time.Duration(cfg.Peaks.RefractoryMs) * time.Millisecond,
		PulseTimeout:      time.Duration(cfg.Peaks.PulseTimeoutS) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("oximeter: %w", err)
	}

	estimator, err := vitals.NewEstimator(vitals.EstimatorOptions{
		Window:       cfg.Vitals.Window,
		MinBeats:     cfg.Vitals.MinBeats,
		MinInterval:  time.Duration(cfg.Vitals.MinIntervalMs) * time.Millisecond,
		MaxInterval:  time.Duration(cfg.Vitals.MaxIntervalMs) * time.Millisecond,
		NoiseFloor:   cfg.Vitals.NoiseFloor,
		CalibrationA: cfg.Vitals.CalibrationA,
		CalibrationB: cfg.Vitals.CalibrationB,
	})
	if err != nil {
		return nil, fmt.Errorf("oximeter: %w", err)
	}

	aggregator, err := vitals.NewAggregator(cfg.Aggregation.Count)
	if err != nil {
		return nil, fmt.Errorf("oximeter: %w", err)
	}

	return &Pipeline{
		filter:     filter,
		detector:   detector,
		estimator:  estimator,
		aggregator: aggregator,
	}, nil
}

// Push feeds one raw sample through every stage. It returns an aggregated
// reading and true on the sample that completes an aggregation window.
func (p *Pipeline) Push(s sensor.Sample) (vitals.AggregatedReading, bool) {
	filtered, ok := p.filter.Process(s)
	if !ok {
		return vitals.AggregatedReading{}, false
	}

	p.trackExtremes(filtered)

	if ev, ok := p.detector.Process(filtered.IR, filtered.T); ok {
		p.lost = false
		return p.onBeat(ev)
	}

	// Bounded no-pulse timeout: surface an explicit invalid reading once,
	// then wait for the signal to return.
	if !p.lost && p.detector.PulseLost(filtered.T) {
		p.lost = true
		slog.Warn("no pulse detected, invalidating reading")
		reading := p.estimator.NoPulse()
		p.detector.Reset()
		p.haveBeat = false
		p.tracking = false
		return p.aggregator.Accumulate(reading)
	}

	return vitals.AggregatedReading{}, false
}

// trackExtremes folds the filtered sample into the per-interval min/max of
// both channels.
func (p *Pipeline) trackExtremes(f dsp.FilteredSample) {
	if !p.tracking {
		p.irMax, p.irMin = f.IR, f.IR
		p.redMax, p.redMin = f.Red, f.Red
		p.tracking = true
		return
	}
	if f.IR > p.irMax {
		p.irMax = f.IR
	}
	if f.IR < p.irMin {
		p.irMin = f.IR
	}
	if f.Red > p.redMax {
		p.redMax = f.Red
	}
	if f.Red < p.redMin {
		p.redMin = f.Red
	}
}

// onBeat converts a confirmed peak into a Beat for the estimator. The
// first beat only anchors the interval clock.
func (p *Pipeline) onBeat(ev dsp.PeakEvent) (vitals.AggregatedReading, bool) {
	defer func() {
		p.lastBeat = ev.T
		p.haveBeat = true
		p.tracking = false
	}()

	if !p.haveBeat {
		return vitals.AggregatedReading{}, false
	}

	irDC, redDC := p.filter.DCLevels()
	beat := vitals.Beat{
		T:         ev.T,
		Interval:  ev.T.Sub(p.lastBeat),
		IRPeak:    p.irMax,
		IRTrough:  p.irMin,
		RedPeak:   p.redMax,
		RedTrough: p.redMin,
		IRDC:      irDC,
		RedDC:     redDC,
	}

	reading, ok := p.estimator.AddBeat(beat)
	if !ok {
		return vitals.AggregatedReading{}, false
	}
	if !reading.Valid {
		slog.Warn("invalid reading, dropped from aggregation")
	} else {
		slog.Debug("reading", "spo2", reading.SpO2, "bpm", reading.BPM)
	}
	return p.aggregator.Accumulate(reading)
}
