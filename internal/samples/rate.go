package samples

import (
	"fmt"
	"math"
)

// Rate computes the per-second derivative between two counter samples.
// Params: older and newer samples of the same series.
// Returns: sample at newer.Timestamp carrying the rate, or ErrZeroInterval,
// ErrCounterReset, ErrComputation.
func Rate(older, newer Sample) (Sample, error) {
	interval := newer.Timestamp - older.Timestamp
	if interval == 0 {
		return Sample{}, sampleErr("rate", "", ErrZeroInterval,
			fmt.Sprintf("both samples at %v", newer.Timestamp))
	}

	delta := newer.Value - older.Value
	if delta < 0 {
		return Sample{}, sampleErr("rate", "", ErrCounterReset,
			fmt.Sprintf("%v -> %v", older.Value, newer.Value))
	}

	// Saves are ordered by the caller; an interval going backwards means the
	// clock moved, not that the counter did.
	if interval < 0 || math.IsNaN(interval) || math.IsNaN(delta) {
		return Sample{}, sampleErr("rate", "", ErrComputation,
			fmt.Sprintf("interval %v delta %v", interval, delta))
	}

	value := delta / interval
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Sample{}, sampleErr("rate", "", ErrComputation,
			fmt.Sprintf("non-finite rate %v/%v", delta, interval))
	}

	return Sample{
		Timestamp: newer.Timestamp,
		Value:     value,
		Hostname:  newer.Hostname,
		Device:    newer.Device,
	}, nil
}
