package vitals

import (
	"math"
	"testing"
)

func TestNewAggregatorRejectsZeroCount(t *testing.T) {
	if _, err := NewAggregator(0); err == nil {
		t.Error("NewAggregator(0) should fail")
	}
}

func TestAggregatorEmitsMeanOfNValidReadings(t *testing.T) {
	a, err := NewAggregator(4)
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}

	// Exactly 4 valid readings with invalid ones interleaved; the invalid
	// readings must shift neither the count nor the mean.
	sequence := []Reading{
		{SpO2: 98, BPM: 60, Valid: true},
		{Valid: false},
		{SpO2: 97, BPM: 62, Valid: true},
		{Valid: false},
		{Valid: false},
		{SpO2: 99, BPM: 58, Valid: true},
		{SpO2: 96, BPM: 64, Valid: true},
	}

	var emitted []AggregatedReading
	for _, r := range sequence {
		if agg, ok := a.Accumulate(r); ok {
			emitted = append(emitted, agg)
		}
	}

	if len(emitted) != 1 {
		t.Fatalf("emitted %d aggregated readings, want exactly 1", len(emitted))
	}
	if math.Abs(emitted[0].SpO2-97.5) > 1e-9 {
		t.Errorf("SpO2 = %g, want 97.5", emitted[0].SpO2)
	}
	if math.Abs(emitted[0].BPM-61) > 1e-9 {
		t.Errorf("BPM = %g, want 61", emitted[0].BPM)
	}
}

func TestAggregatorResetsAfterEmission(t *testing.T) {
	a, err := NewAggregator(2)
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}

	r := Reading{SpO2: 98, BPM: 60, Valid: true}
	a.Accumulate(r)
	if _, ok := a.Accumulate(r); !ok {
		t.Fatal("second valid reading should complete the window")
	}

	if a.Pending() != 0 {
		t.Errorf("Pending() = %d after emission, want 0", a.Pending())
	}
	if _, ok := a.Accumulate(r); ok {
		t.Error("window should restart counting after emission")
	}
}
