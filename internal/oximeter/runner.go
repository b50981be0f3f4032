package oximeter

import (
	"context"
	"log/slog"
	"time"

	"github.com/psah/pulseox/internal/sensor"
	"github.com/psah/pulseox/internal/vitals"
)

// Publisher delivers aggregated readings to the connected peer.
// Implemented by the BLE notification service.
type Publisher interface {
	Publish(r vitals.AggregatedReading) error
}

// Runner polls the sensor at a fixed cadence and drives the pipeline.
// Single foreground loop; the radio stack's callbacks run concurrently but
// never touch the pipeline.
type Runner struct {
	source    sensor.Source
	pipeline  *Pipeline
	publisher Publisher
	period    time.Duration
}

// NewRunner creates the control loop for the given sample rate.
func NewRunner(source sensor.Source, pipeline *Pipeline, publisher Publisher, sampleRateHz int) *Runner {
	return &Runner{
		source:    source,
		pipeline:  pipeline,
		publisher: publisher,
		period:    time.Second / time.Duration(sampleRateHz),
	}
}

// Run loops until the context is cancelled. Sensor read failures are
// transient: the cycle is skipped and polling continues. Publish failures
// are link errors: logged, never fatal to the loop.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s, err := r.source.ReadSample()
			if err != nil {
				slog.Warn("sensor read failed, skipping cycle", "error", err)
				continue
			}
			agg, ok := r.pipeline.Push(s)
			if !ok {
				continue
			}
			slog.Info("aggregated reading", "spo2", agg.SpO2, "bpm", agg.BPM)
			if err := r.publisher.Publish(agg); err != nil {
				slog.Error("publish failed", "error", err)
			}
		}
	}
}
