package dsp

import (
	"fmt"
	"time"
)

// PeakEvent marks a detected heartbeat in the filtered waveform.
type PeakEvent struct {
	T         time.Time
	Amplitude float64
}

// DetectorOptions configures peak detection.
type DetectorOptions struct {
	// ThresholdFraction scales the decaying peak envelope into the dynamic
	// threshold. Must be in (0, 1).
	ThresholdFraction float64
	// EnvelopeDecay is the per-sample multiplier applied to the peak
	// envelope so the threshold adapts when the signal amplitude drops.
	// Must be in (0, 1); values near 1 decay slowly.
	EnvelopeDecay float64
	// NoiseFloor is the minimum threshold. Signals that never rise above it
	// produce no peaks.
	NoiseFloor float64
	// Refractory is the minimum spacing between peaks. A candidate inside
	// the refractory interval of the previous peak is discarded, which
	// keeps dicrotic notches from double-counting.
	Refractory time.Duration
	// PulseTimeout bounds how long the detector waits for a beat before
	// reporting pulse loss.
	PulseTimeout time.Duration
}

// DefaultDetectorOptions returns the tuning used by the device firmware.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		ThresholdFraction: 0.5,
		EnvelopeDecay:     0.995,
		NoiseFloor:        10,
		Refractory:        300 * time.Millisecond,
		PulseTimeout:      5 * time.Second,
	}
}

type detectorState int

const (
	stateBelowThreshold detectorState = iota
	stateRising
	statePeakCandidate
)

// Detector finds heartbeats in one channel of the filtered waveform. It is
// a three-state machine: below threshold, rising, and peak candidate. A
// candidate becomes a PeakEvent once the signal falls back below the
// threshold, unless it lands inside the refractory interval.
type Detector struct {
	opts  DetectorOptions
	state detectorState

	envelope float64
	prev     float64
	prevT    time.Time
	primed   bool

	candAmp float64
	candT   time.Time

	lastPeakT time.Time
	hasPeak   bool
	firstT    time.Time
}

// NewDetector validates the options and creates a detector.
func NewDetector(opts DetectorOptions) (*Detector, error) {
	if opts.ThresholdFraction <= 0 || opts.ThresholdFraction >= 1 {
		return nil, fmt.Errorf("dsp: threshold fraction must be in (0, 1), got %g", opts.ThresholdFraction)
	}
	if opts.EnvelopeDecay <= 0 || opts.EnvelopeDecay >= 1 {
		return nil, fmt.Errorf("dsp: envelope decay must be in (0, 1), got %g", opts.EnvelopeDecay)
	}
	if opts.NoiseFloor <= 0 {
		return nil, fmt.Errorf("dsp: noise floor must be > 0, got %g", opts.NoiseFloor)
	}
	if opts.Refractory <= 0 {
		return nil, fmt.Errorf("dsp: refractory interval must be > 0, got %v", opts.Refractory)
	}
	if opts.PulseTimeout <= opts.Refractory {
		return nil, fmt.Errorf("dsp: pulse timeout %v must exceed refractory %v", opts.PulseTimeout, opts.Refractory)
	}
	return &Detector{opts: opts}, nil
}

// Process consumes one filtered value. It returns a PeakEvent and true when
// a beat is confirmed at this sample.
func (d *Detector) Process(v float64, t time.Time) (PeakEvent, bool) {
	if !d.primed {
		d.primed = true
		d.firstT = t
		d.prev = v
		d.prevT = t
		return PeakEvent{}, false
	}

	d.envelope *= d.opts.EnvelopeDecay
	if v > d.envelope {
		d.envelope = v
	}
	threshold := d.envelope * d.opts.ThresholdFraction
	if threshold < d.opts.NoiseFloor {
		threshold = d.opts.NoiseFloor
	}

	var ev PeakEvent
	var confirmed bool

	switch d.state {
	case stateBelowThreshold:
		if v >= threshold && v > d.prev {
			d.state = stateRising
		}

	case stateRising:
		if v < d.prev {
			// Local maximum was the previous sample.
			d.candAmp = d.prev
			d.candT = d.prevT
			d.state = statePeakCandidate
		}

	case statePeakCandidate:
		switch {
		case v < threshold:
			d.state = stateBelowThreshold
			if !d.hasPeak || d.candT.Sub(d.lastPeakT) >= d.opts.Refractory {
				d.lastPeakT = d.candT
				d.hasPeak = true
				ev = PeakEvent{T: d.candT, Amplitude: d.candAmp}
				confirmed = true
			}
			// Inside the refractory interval the candidate is dropped, not
			// counted, and does not move the refractory origin.
		case v > d.candAmp:
			// Still climbing: a higher maximum supersedes the candidate.
			d.candAmp = v
			d.candT = t
		}
	}

	d.prev = v
	d.prevT = t
	return ev, confirmed
}

// PulseLost reports whether no beat has been confirmed within the timeout.
func (d *Detector) PulseLost(now time.Time) bool {
	if !d.primed {
		return false
	}
	since := d.firstT
	if d.hasPeak {
		since = d.lastPeakT
	}
	return now.Sub(since) > d.opts.PulseTimeout
}

// Reset clears all detection state. Call after pulse loss so the timeout
// and refractory origins restart with the next sample.
func (d *Detector) Reset() {
	*d = Detector{opts: d.opts}
}
