package samples

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// counterHistory is the number of samples a counter series retains.
const counterHistory = 2

// Store keeps recent samples per series and the declared kind of each metric.
// Params: none; build with NewStore.
// Returns: per-instance store; the zero value is not usable.
type Store struct {
	mu     sync.Mutex
	kinds  map[string]Kind
	series map[string]map[Key][]Sample
	now    func() time.Time
	onSkip func(Key, error)
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the clock used for saves without an explicit time.
// Params: now returns current time.
// Returns: store option.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSkipHook registers a callback for series that All skips.
// Params: hook receives the series key and the fetch error; it runs without the store lock.
// Returns: store option.
func WithSkipHook(hook func(Key, error)) Option {
	return func(s *Store) {
		s.onSkip = hook
	}
}

// NewStore creates an empty sample store.
// Params: opts optional store settings.
// Returns: ready store instance.
func NewStore(opts ...Option) *Store {
	s := &Store{
		kinds:  make(map[string]Kind),
		series: make(map[string]map[Key][]Sample),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeclareGauge marks name as a gauge and drops all history stored under it.
// Params: name metric name.
// Returns: none.
func (s *Store) DeclareGauge(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declareLocked(name, KindGauge)
}

// DeclareCounter marks name as a counter and drops all history stored under it.
// Params: name metric name.
// Returns: none.
func (s *Store) DeclareCounter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declareLocked(name, KindCounter)
}

// IsGauge reports whether name is declared as a gauge.
func (s *Store) IsGauge(name string) bool {
	return s.kindOf(name) == KindGauge
}

// IsCounter reports whether name is declared as a counter.
func (s *Store) IsCounter(name string) bool {
	return s.kindOf(name) == KindCounter
}

// IsKnown reports whether name was declared with any kind.
func (s *Store) IsKnown(name string) bool {
	return s.kindOf(name) != kindUnknown
}

// Names returns declared metric names in lexical order.
// Params: none.
// Returns: sorted names.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.kinds))
	for name := range s.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save records one sample for an already declared metric.
// Gauges keep only the new sample; counters keep the two newest.
// Params: name declared metric; value numeric reading; attrs optional time/tags/host/device.
// Returns: ErrDeclaration, ErrConfig or ErrValueConversion wrapped in *SampleError.
func (s *Store) Save(name string, value any, attrs Attrs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kinds[name] == kindUnknown {
		return sampleErr("save", name, ErrDeclaration, "")
	}
	return s.saveLocked(name, value, attrs)
}

// Fetch returns the reportable sample for one series.
// Gauges return the stored sample; counters return the rate between the two
// stored samples and, when expire is set, keep only the newest as baseline.
// Params: name metric; tags in any order; device may be empty; expire controls eviction.
// Returns: sample or ErrUnknownMetric/ErrInsufficientHistory/rate errors.
func (s *Store) Fetch(name string, tags []string, device string, expire bool) (Sample, error) {
	return s.fetchKey(NewKey(name, tags, device), expire)
}

func (s *Store) fetchKey(key Key, expire bool) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, ok := s.kinds[key.Metric]
	if !ok {
		return Sample{}, sampleErr("fetch", key.Metric, ErrUnknownMetric, "")
	}

	history := s.series[key.Metric][key]
	switch kind {
	case KindGauge:
		if len(history) == 0 {
			return Sample{}, sampleErr("fetch", key.Metric, ErrInsufficientHistory, "no gauge sample")
		}
		return history[len(history)-1], nil
	case KindCounter:
		if len(history) < counterHistory {
			return Sample{}, sampleErr("fetch", key.Metric, ErrInsufficientHistory,
				fmt.Sprintf("%d of %d counter samples", len(history), counterHistory))
		}
		rate, err := Rate(history[0], history[1])
		if err != nil {
			var sampleError *SampleError
			if errors.As(err, &sampleError) {
				sampleError.Metric = key.Metric
			}
			return Sample{}, err
		}
		if expire {
			s.series[key.Metric][key] = []Sample{history[1]}
		}
		return rate, nil
	default:
		panic(fmt.Sprintf("samples: metric %q has corrupt kind %d", key.Metric, kind))
	}
}

// keys snapshots every stored series key ordered by metric, tags, device.
func (s *Store) keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0, len(s.series))
	for _, byKey := range s.series {
		for key := range byKey {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

func (s *Store) kindOf(name string) Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kinds[name]
}

func (s *Store) declareLocked(name string, kind Kind) {
	s.kinds[name] = kind
	s.series[name] = make(map[Key][]Sample)
}

func (s *Store) saveLocked(name string, value any, attrs Attrs) error {
	if err := validateTags(attrs.Tags); err != nil {
		return sampleErr("save", name, ErrConfig, err.Error())
	}

	number, err := toFloat(value)
	if err != nil {
		return sampleErr("save", name, ErrValueConversion, err.Error())
	}

	at := attrs.Time
	if at.IsZero() {
		at = s.now()
	}
	sample := Sample{
		Timestamp: epochSeconds(at),
		Value:     number,
		Hostname:  attrs.Hostname,
		Device:    attrs.Device,
	}

	key := NewKey(name, attrs.Tags, attrs.Device)
	byKey := s.series[name]
	if byKey == nil {
		byKey = make(map[Key][]Sample)
		s.series[name] = byKey
	}

	switch kind := s.kinds[name]; kind {
	case KindGauge:
		byKey[key] = []Sample{sample}
	case KindCounter:
		history := byKey[key]
		if len(history) >= counterHistory {
			history = history[len(history)-counterHistory+1:]
		}
		next := make([]Sample, 0, counterHistory)
		next = append(next, history...)
		byKey[key] = append(next, sample)
	default:
		panic(fmt.Sprintf("samples: metric %q must be gauge or counter, got kind %d", name, kind))
	}
	return nil
}

// validateTags rejects tags that would break canonical key encoding.
func validateTags(tags []string) error {
	for idx, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags[%d] is empty", idx)
		}
		if strings.Contains(tag, tagSeparator) {
			return fmt.Errorf("tags[%d] contains NUL byte", idx)
		}
	}
	return nil
}
