package samples

import (
	"iter"
	"slices"
)

// SaveGauge records a gauge reading, declaring name as a gauge on first use.
// Params: name metric; value numeric reading; attrs optional time/tags/host/device.
// Returns: ErrConfig or ErrValueConversion wrapped in *SampleError.
func (s *Store) SaveGauge(name string, value any, attrs Attrs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kinds[name] != KindGauge {
		s.declareLocked(name, KindGauge)
	}
	return s.saveLocked(name, value, attrs)
}

// SaveCounter records a cumulative reading, declaring name as a counter on first use.
// Params: name metric; value cumulative reading; attrs optional time/tags/host/device.
// Returns: ErrConfig or ErrValueConversion wrapped in *SampleError.
func (s *Store) SaveCounter(name string, value any, attrs Attrs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kinds[name] != KindCounter {
		s.declareLocked(name, KindCounter)
	}
	return s.saveLocked(name, value, attrs)
}

// GetSampleWithTimestamp is Fetch under the collector-facing name.
func (s *Store) GetSampleWithTimestamp(name string, tags []string, device string, expire bool) (Sample, error) {
	return s.Fetch(name, tags, device, expire)
}

// GetSample returns only the reportable value for one series.
// Params: name metric; tags in any order; device may be empty; expire controls eviction.
// Returns: value or the Fetch error.
func (s *Store) GetSample(name string, tags []string, device string, expire bool) (float64, error) {
	sample, err := s.Fetch(name, tags, device, expire)
	if err != nil {
		return 0, err
	}
	return sample.Value, nil
}

// GetSamplesWithTimestamps fetches the untagged, device-less series of every metric.
// Params: expire controls counter eviction.
// Returns: name -> sample for series that are ready; others are omitted.
func (s *Store) GetSamplesWithTimestamps(expire bool) map[string]Sample {
	values := make(map[string]Sample)
	for _, name := range s.Names() {
		sample, err := s.Fetch(name, nil, "", expire)
		if err != nil {
			continue
		}
		values[name] = sample
	}
	return values
}

// GetSamples is GetSamplesWithTimestamps without timestamps.
func (s *Store) GetSamples(expire bool) map[string]float64 {
	withTS := s.GetSamplesWithTimestamps(expire)
	values := make(map[string]float64, len(withTS))
	for name, sample := range withTS {
		values[name] = sample.Value
	}
	return values
}

// GetMetrics collects All into a slice.
// Params: expire controls counter eviction.
// Returns: every ready series as an exported metric.
func (s *Store) GetMetrics(expire bool) []Metric {
	return slices.Collect(s.All(expire))
}

// All lazily exports every stored series of every metric, ordered by name,
// tags and device. Series that fail to fetch (warm-up, resets, duplicate
// timestamps) are skipped so one cold series never blocks the rest.
// Params: expire controls counter eviction.
// Returns: iterator of exported metrics.
func (s *Store) All(expire bool) iter.Seq[Metric] {
	return func(yield func(Metric) bool) {
		for _, key := range s.keys() {
			sample, err := s.fetchKey(key, expire)
			if err != nil {
				if s.onSkip != nil {
					s.onSkip(key, err)
				}
				continue
			}
			if !yield(exportMetric(key, sample)) {
				return
			}
		}
	}
}

func exportMetric(key Key, sample Sample) Metric {
	return Metric{
		Name:      key.Metric,
		Timestamp: int64(sample.Timestamp),
		Value:     sample.Value,
		Attributes: Attributes{
			Tags:       key.Tags(),
			HostName:   sample.Hostname,
			DeviceName: sample.Device,
		},
	}
}
