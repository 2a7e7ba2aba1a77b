package samples

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig reports malformed tags passed to Save.
	ErrConfig = errors.New("invalid sample configuration")
	// ErrDeclaration reports a save on a metric that has no declared kind.
	ErrDeclaration = errors.New("metric is not declared")
	// ErrValueConversion reports a value that cannot be coerced to a finite number.
	ErrValueConversion = errors.New("value is not numeric")
	// ErrUnknownMetric reports a fetch on a metric that was never declared.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrInsufficientHistory reports a key without enough samples yet.
	ErrInsufficientHistory = errors.New("insufficient sample history")
	// ErrZeroInterval reports two counter samples with the same timestamp.
	ErrZeroInterval = errors.New("zero interval between counter samples")
	// ErrCounterReset reports a counter that decreased between samples.
	ErrCounterReset = errors.New("counter decreased between samples")
	// ErrComputation reports any other rate arithmetic failure.
	ErrComputation = errors.New("rate computation failed")
)

// SampleError annotates a store failure with the operation and metric name.
// Params: Op is store operation; Metric is metric name; Err is one of the package sentinels.
// Returns: error unwrapping to Err.
type SampleError struct {
	Op     string
	Metric string
	Err    error
	Detail string
}

// Error renders the failure as "op metric: cause".
// Params: none.
// Returns: error text.
func (e *SampleError) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Op, e.Metric, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap exposes the sentinel for errors.Is.
// Params: none.
// Returns: wrapped sentinel error.
func (e *SampleError) Unwrap() error {
	return e.Err
}

// IsTransient reports conditions that clear up on a later poll:
// warm-up, duplicate timestamps, and counter resets.
// Params: err returned by Fetch/Rate.
// Returns: true when the caller should skip the point and retry next poll.
func IsTransient(err error) bool {
	return errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrZeroInterval) ||
		errors.Is(err, ErrCounterReset)
}

func sampleErr(op, metric string, sentinel error, detail string) error {
	return &SampleError{Op: op, Metric: metric, Err: sentinel, Detail: detail}
}
