package samples

import (
	"errors"
	"math"
	"testing"
)

func TestRate(t *testing.T) {
	got, err := Rate(
		Sample{Timestamp: 0, Value: 10, Hostname: "old", Device: "old"},
		Sample{Timestamp: 10, Value: 20, Hostname: "new", Device: "sda"},
	)
	if err != nil {
		t.Fatalf("Rate() error: %v", err)
	}
	want := Sample{Timestamp: 10, Value: 1.0, Hostname: "new", Device: "sda"}
	if got != want {
		t.Fatalf("Rate()=%+v want %+v", got, want)
	}
}

func TestRate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		older  Sample
		newer  Sample
		want   error
		transi bool
	}{
		{name: "same tick", older: Sample{Timestamp: 0, Value: 10}, newer: Sample{Timestamp: 0, Value: 20}, want: ErrZeroInterval, transi: true},
		{name: "counter reset", older: Sample{Timestamp: 0, Value: 20}, newer: Sample{Timestamp: 10, Value: 10}, want: ErrCounterReset, transi: true},
		{name: "overflow", older: Sample{Timestamp: 0, Value: -math.MaxFloat64}, newer: Sample{Timestamp: 1e-300, Value: math.MaxFloat64}, want: ErrComputation},
		{name: "clock stepped back", older: Sample{Timestamp: 10, Value: 10}, newer: Sample{Timestamp: 5, Value: 20}, want: ErrComputation},
		{name: "nan", older: Sample{Timestamp: 0, Value: math.NaN()}, newer: Sample{Timestamp: 1, Value: 1}, want: ErrComputation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Rate(tc.older, tc.newer)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if IsTransient(err) != tc.transi {
				t.Fatalf("IsTransient(%v)=%v want %v", err, !tc.transi, tc.transi)
			}
		})
	}
}

func TestRate_FlatCounter(t *testing.T) {
	got, err := Rate(Sample{Timestamp: 5, Value: 7}, Sample{Timestamp: 7, Value: 7})
	if err != nil {
		t.Fatalf("Rate() error: %v", err)
	}
	if got.Value != 0 {
		t.Fatalf("expected zero rate for flat counter, got %v", got.Value)
	}
}
