package samples

import (
	"sort"
	"strings"
	"time"
)

// Kind identifies how a metric's samples are retained and reported.
type Kind uint8

const (
	kindUnknown Kind = iota
	// KindGauge keeps one sample and reports it as-is.
	KindGauge
	// KindCounter keeps two samples and reports their per-second rate.
	KindCounter
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindGauge:
		return "gauge"
	case KindCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// tagSeparator joins canonical tags inside Key; tags may not contain it.
const tagSeparator = "\x00"

// Key identifies one time series: metric name, canonical tag set, and device.
// Key is comparable and used directly as a map key.
type Key struct {
	Metric string
	Device string
	tags   string
}

// NewKey builds a key with tags sorted into canonical order.
// Params: metric name; tags in any order; device name (may be empty).
// Returns: key value; input tag order never affects equality.
func NewKey(metric string, tags []string, device string) Key {
	return Key{Metric: metric, Device: device, tags: canonicalTags(tags)}
}

// Tags returns the sorted tag set.
// Params: none.
// Returns: sorted tag copy or nil for an untagged key.
func (k Key) Tags() []string {
	if k.tags == "" {
		return nil
	}
	return strings.Split(k.tags, tagSeparator)
}

// Untagged reports whether the key has neither tags nor a device.
func (k Key) Untagged() bool {
	return k.tags == "" && k.Device == ""
}

func (k Key) less(other Key) bool {
	if k.Metric != other.Metric {
		return k.Metric < other.Metric
	}
	if k.tags != other.tags {
		return k.tags < other.tags
	}
	return k.Device < other.Device
}

func canonicalTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	return strings.Join(sorted, tagSeparator)
}

// Sample is one observation: epoch seconds, numeric value, and origin.
type Sample struct {
	Timestamp float64
	Value     float64
	Hostname  string
	Device    string
}

// Time converts the sample timestamp to time.Time.
func (s Sample) Time() time.Time {
	sec := int64(s.Timestamp)
	nsec := int64((s.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Attrs carries optional Save parameters.
// Params: Time defaults to store clock when zero; Tags/Hostname/Device are optional dimensions.
// Returns: save attributes.
type Attrs struct {
	Time     time.Time
	Tags     []string
	Hostname string
	Device   string
}

// Attributes is the optional metadata attached to an exported metric.
type Attributes struct {
	Tags       []string `json:"tags,omitempty"`
	HostName   string   `json:"host_name,omitempty"`
	DeviceName string   `json:"device_name,omitempty"`
}

// Metric is one exported point handed to sinks.
type Metric struct {
	Name       string     `json:"name"`
	Timestamp  int64      `json:"timestamp"`
	Value      float64    `json:"value"`
	Attributes Attributes `json:"attributes"`
}

// epochSeconds converts time to float seconds since epoch.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
