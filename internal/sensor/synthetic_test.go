package sensor

import (
	"testing"
	"time"
)

func TestSyntheticTimestampsAdvanceBySamplePeriod(t *testing.T) {
	start := time.Unix(0, 0)
	src := NewSynthetic(SyntheticOptions{SampleRate: 50, PulseHz: 1}, start)

	s0, _ := src.ReadSample()
	s1, _ := src.ReadSample()

	if !s0.T.Equal(start) {
		t.Errorf("first timestamp = %v, want %v", s0.T, start)
	}
	if got := s1.T.Sub(s0.T); got != 20*time.Millisecond {
		t.Errorf("sample period = %v, want 20ms", got)
	}
}

func TestSyntheticOscillatesAroundBaseline(t *testing.T) {
	opts := DefaultSyntheticOptions()
	src := NewSynthetic(opts, time.Unix(0, 0))

	var min, max uint32 = ^uint32(0), 0
	for i := 0; i < int(opts.SampleRate); i++ { // one full pulse period
		s, err := src.ReadSample()
		if err != nil {
			t.Fatalf("ReadSample() error = %v", err)
		}
		if s.IR < min {
			min = s.IR
		}
		if s.IR > max {
			max = s.IR
		}
	}

	wantMin := uint32(opts.IRBaseline - opts.IRAmplitude)
	wantMax := uint32(opts.IRBaseline + opts.IRAmplitude)
	if min > wantMin+1 || max < wantMax-1 {
		t.Errorf("IR range [%d, %d], want about [%d, %d]", min, max, wantMin, wantMax)
	}
}
