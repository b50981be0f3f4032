// Package dsp implements the signal-processing stages between raw PPG
// samples and detected heartbeats: DC removal with smoothing, and peak
// detection on the filtered waveform.
package dsp

import (
	"fmt"
	"time"

	"github.com/psah/pulseox/internal/sensor"
)

// FilteredSample is a DC-removed, smoothed two-channel value. The AC values
// are signed: they oscillate around zero once the baseline is subtracted.
type FilteredSample struct {
	T   time.Time
	IR  float64
	Red float64
}

// FilterOptions configures the windowed filter.
type FilterOptions struct {
	// Window is the moving-average width in samples.
	Window int
	// DCAlpha is the per-sample weight of the exponential baseline
	// estimate. Must be in (0, 1); small values track the baseline slowly.
	DCAlpha float64
}

// channelFilter holds the per-channel running DC estimate and the circular
// buffer of the last Window AC values.
type channelFilter struct {
	dc     float64
	primed bool
	alpha  float64

	buf   []float64
	next  int
	count int
	sum   float64
}

func (c *channelFilter) push(raw float64) (float64, bool) {
	if !c.primed {
		// Seed the baseline with the first raw value so the estimate does
		// not spend seconds climbing from zero.
		c.dc = raw
		c.primed = true
	}
	c.dc += (raw - c.dc) * c.alpha
	ac := raw - c.dc

	if c.count == len(c.buf) {
		c.sum -= c.buf[c.next]
	} else {
		c.count++
	}
	c.buf[c.next] = ac
	c.sum += ac
	c.next = (c.next + 1) % len(c.buf)

	if c.count < len(c.buf) {
		// Warmup: output is withheld until the buffer is full so the
		// detector never sees a partial-window average.
		return 0, false
	}
	return c.sum / float64(len(c.buf)), true
}

// Filter removes the DC baseline and smooths both channels. One instance
// per sample stream; Process is constant-time and never blocks.
type Filter struct {
	ir  channelFilter
	red channelFilter
}

// NewFilter validates the options and creates a filter.
func NewFilter(opts FilterOptions) (*Filter, error) {
	if opts.Window < 1 {
		return nil, fmt.Errorf("dsp: filter window must be >= 1, got %d", opts.Window)
	}
	if opts.DCAlpha <= 0 || opts.DCAlpha >= 1 {
		return nil, fmt.Errorf("dsp: dc alpha must be in (0, 1), got %g", opts.DCAlpha)
	}
	return &Filter{
		ir:  channelFilter{alpha: opts.DCAlpha, buf: make([]float64, opts.Window)},
		red: channelFilter{alpha: opts.DCAlpha, buf: make([]float64, opts.Window)},
	}, nil
}

// Process folds one raw sample into the filter state. It returns false
// while the smoothing window is still filling.
func (f *Filter) Process(s sensor.Sample) (FilteredSample, bool) {
	ir, irOK := f.ir.push(float64(s.IR))
	red, redOK := f.red.push(float64(s.Red))
	if !irOK || !redOK {
		return FilteredSample{}, false
	}
	return FilteredSample{T: s.T, IR: ir, Red: red}, true
}

// DCLevels returns the current per-channel baseline estimates. These are
// the DC terms of the ratio-of-ratios computation.
func (f *Filter) DCLevels() (ir, red float64) {
	return f.ir.dc, f.red.dc
}
