package vitals

import "fmt"

// AggregatedReading is the mean of the last N valid Readings. It is what
// the notification layer transmits; nothing is persisted after that.
type AggregatedReading struct {
	SpO2 float64
	BPM  float64
}

// Aggregator accumulates valid Readings and emits their mean once N have
// been collected. Invalid Readings are dropped: they count toward nothing
// and cannot corrupt the running sums.
type Aggregator struct {
	n       int
	count   int
	spo2Sum float64
	bpmSum  float64
}

// NewAggregator creates an aggregator that emits every n valid readings.
func NewAggregator(n int) (*Aggregator, error) {
	if n < 1 {
		return nil, fmt.Errorf("vitals: aggregation count must be >= 1, got %d", n)
	}
	return &Aggregator{n: n}, nil
}

// Accumulate folds one Reading in. It returns an AggregatedReading and true
// on the reading that completes the window; the accumulator then resets.
func (a *Aggregator) Accumulate(r Reading) (AggregatedReading, bool) {
	if !r.Valid {
		return AggregatedReading{}, false
	}
	a.count++
	a.spo2Sum += r.SpO2
	a.bpmSum += r.BPM
	if a.count < a.n {
		return AggregatedReading{}, false
	}
	agg := AggregatedReading{
		SpO2: a.spo2Sum / float64(a.n),
		BPM:  a.bpmSum / float64(a.n),
	}
	a.count = 0
	a.spo2Sum = 0
	a.bpmSum = 0
	return agg, true
}

// Pending returns how many valid readings are waiting in the current window.
func (a *Aggregator) Pending() int {
	return a.count
}
