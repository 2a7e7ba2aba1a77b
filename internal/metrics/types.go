package metrics

import (
	"context"
	"time"

	"hostagent/internal/samples"
)

// Recorder is the write side of a sample store used by collectors.
// Params: metric name, raw value, and sample attributes.
// Returns: store error when the sample is rejected.
type Recorder interface {
	SaveGauge(name string, value any, attrs samples.Attrs) error
	SaveCounter(name string, value any, attrs samples.Attrs) error
}

// Collector polls one data source and records raw readings into a store.
// Params: context for cancellation and deadlines.
// Returns: poll error; readings already recorded stay recorded.
type Collector interface {
	Name() string
	Collect(ctx context.Context, rec Recorder) error
}

// Labels are static attributes attached to every sample a collector records.
// Params: Hostname reported as host_name; Tags appended to per-sample tags.
// Returns: label set shared by collectors of one agent.
type Labels struct {
	Hostname string
	Tags     []string
}

// attrs builds sample attributes for one reading.
// Params: at poll time; device optional device dimension; tags per-sample tags.
// Returns: attributes with static labels merged in.
func (l Labels) attrs(at time.Time, device string, tags ...string) samples.Attrs {
	merged := tags
	if len(l.Tags) > 0 {
		merged = make([]string, 0, len(tags)+len(l.Tags))
		merged = append(merged, tags...)
		merged = append(merged, l.Tags...)
	}
	return samples.Attrs{
		Time:     at,
		Tags:     merged,
		Hostname: l.Hostname,
		Device:   device,
	}
}

// recordSet records a batch of readings and keeps the first failure.
// Params: none; use gauge/counter then err.
// Returns: accumulated state for one Collect call.
type recordSet struct {
	rec Recorder
	err error
	n   int
}

func (r *recordSet) gauge(name string, value any, attrs samples.Attrs) {
	r.keep(r.rec.SaveGauge(name, value, attrs))
}

func (r *recordSet) counter(name string, value any, attrs samples.Attrs) {
	r.keep(r.rec.SaveCounter(name, value, attrs))
}

func (r *recordSet) keep(err error) {
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.n++
}

// metricName joins base and field and normalizes the result under prefix.
func metricName(prefix, base, field string) string {
	return samples.Normalize(base+"."+field, prefix)
}
