package vitals

import (
	"math"
	"testing"
	"time"
)

func testEstimatorOptions() EstimatorOptions {
	opts := DefaultEstimatorOptions()
	opts.NoiseFloor = 10
	return opts
}

// cleanBeat returns a beat with a 1s interval and amplitudes giving R=0.4.
func cleanBeat() Beat {
	return Beat{
		Interval: time.Second,
		IRPeak:   1500, IRTrough: -1500, // AC 3000
		RedPeak: 600, RedTrough: -600, // AC 1200
		IRDC: 50000, RedDC: 50000, // R = (1200/50000)/(3000/50000) = 0.4
	}
}

func TestNewEstimatorRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EstimatorOptions)
	}{
		{"zero window", func(o *EstimatorOptions) { o.Window = 0 }},
		{"min beats of one", func(o *EstimatorOptions) { o.MinBeats = 1 }},
		{"min beats above window", func(o *EstimatorOptions) { o.MinBeats = o.Window + 1 }},
		{"inverted interval bounds", func(o *EstimatorOptions) { o.MaxInterval = o.MinInterval }},
		{"zero noise floor", func(o *EstimatorOptions) { o.NoiseFloor = 0 }},
		{"zero calibration slope", func(o *EstimatorOptions) { o.CalibrationB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultEstimatorOptions()
			tt.mutate(&opts)
			if _, err := NewEstimator(opts); err == nil {
				t.Errorf("NewEstimator(%+v) should fail", opts)
			}
		})
	}
}

func TestEstimatorNeedsMinimumBeats(t *testing.T) {
	e, err := NewEstimator(testEstimatorOptions())
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	if _, ok := e.AddBeat(cleanBeat()); ok {
		t.Error("one beat should be insufficient data")
	}
	r, ok := e.AddBeat(cleanBeat())
	if !ok {
		t.Fatal("two clean beats should produce a reading")
	}
	if !r.Valid {
		t.Fatal("reading from clean beats should be valid")
	}
}

func TestEstimatorBPMFromIntervals(t *testing.T) {
	e, err := NewEstimator(testEstimatorOptions())
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	// 750ms intervals: 80 BPM.
	var r Reading
	var ok bool
	for i := 0; i < 4; i++ {
		b := cleanBeat()
		b.Interval = 750 * time.Millisecond
		r, ok = e.AddBeat(b)
	}
	if !ok || !r.Valid {
		t.Fatal("expected a valid reading")
	}
	if math.Abs(r.BPM-80) > 0.01 {
		t.Errorf("BPM = %g, want 80", r.BPM)
	}
}

func TestEstimatorSpO2FromCalibrationCurve(t *testing.T) {
	opts := testEstimatorOptions()
	opts.CalibrationA = 104
	opts.CalibrationB = 17
	e, err := NewEstimator(opts)
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	var r Reading
	for i := 0; i < 3; i++ {
		r, _ = e.AddBeat(cleanBeat()) // R = 0.4
	}
	want := 104 - 17*0.4
	if math.Abs(r.SpO2-want) > 0.01 {
		t.Errorf("SpO2 = %g, want %g", r.SpO2, want)
	}
}

func TestEstimatorClampsSpO2(t *testing.T) {
	e, err := NewEstimator(testEstimatorOptions()) // A=110, B=25: R=0.1 maps to 107.5
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	var r Reading
	for i := 0; i < 3; i++ {
		b := cleanBeat()
		b.RedPeak, b.RedTrough = 150, -150 // R = 0.1
		r, _ = e.AddBeat(b)
	}
	if r.SpO2 != 100 {
		t.Errorf("SpO2 = %g, want clamped to 100", r.SpO2)
	}
}

func TestEstimatorExcludesOutlierIntervals(t *testing.T) {
	e, err := NewEstimator(testEstimatorOptions())
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	e.AddBeat(cleanBeat())
	e.AddBeat(cleanBeat())

	short := cleanBeat()
	short.Interval = 100 * time.Millisecond // 600 BPM, implausible
	if _, ok := e.AddBeat(short); ok {
		t.Error("outlier interval should not produce a reading")
	}

	// The outlier must not have shifted the mean.
	r, ok := e.AddBeat(cleanBeat())
	if !ok || !r.Valid {
		t.Fatal("expected a valid reading")
	}
	if math.Abs(r.BPM-60) > 0.01 {
		t.Errorf("BPM = %g after outlier, want 60", r.BPM)
	}
}

func TestEstimatorLowAmplitudeInvalidatesAndResets(t *testing.T) {
	e, err := NewEstimator(testEstimatorOptions())
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	e.AddBeat(cleanBeat())
	e.AddBeat(cleanBeat())

	weak := cleanBeat()
	weak.IRPeak, weak.IRTrough = 2, -2
	r, ok := e.AddBeat(weak)
	if !ok {
		t.Fatal("low-amplitude beat should surface an explicit reading")
	}
	if r.Valid {
		t.Error("low-amplitude reading should be invalid")
	}
	if r.SpO2 != 0 || r.BPM != 0 {
		t.Errorf("invalid reading should carry no values, got SpO2=%g BPM=%g", r.SpO2, r.BPM)
	}

	// Window was reset: the next clean beat is insufficient again.
	if _, ok := e.AddBeat(cleanBeat()); ok {
		t.Error("window should be empty after an invalid beat")
	}
}

func TestEstimatorNoPulseYieldsInvalidReading(t *testing.T) {
	e, err := NewEstimator(testEstimatorOptions())
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	e.AddBeat(cleanBeat())
	e.AddBeat(cleanBeat())

	r := e.NoPulse()
	if r.Valid {
		t.Error("NoPulse() reading should be invalid")
	}
	if _, ok := e.AddBeat(cleanBeat()); ok {
		t.Error("window should be empty after pulse loss")
	}
}
