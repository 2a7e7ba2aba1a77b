package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// SWAPCollector records swap usage gauges and swap-in/out byte counters.
// Params: prefix for metric names; labels static attributes.
// Returns: SWAP collector instance.
type SWAPCollector struct {
	prefix   string
	labels   Labels
	readSwap func(context.Context) (*mem.SwapMemoryStat, error)
	now      func() time.Time
}

// NewSWAPCollector creates a SWAP collector.
// Params: prefix for metric names; labels static attributes.
// Returns: configured SWAP collector.
func NewSWAPCollector(prefix string, labels Labels) *SWAPCollector {
	return &SWAPCollector{
		prefix:   prefix,
		labels:   labels,
		readSwap: mem.SwapMemoryWithContext,
		now:      time.Now,
	}
}

// Name returns logical collector name.
func (c *SWAPCollector) Name() string {
	return "swap"
}

// Collect reads swap state; sin/sout are cumulative and reported as rates.
// Params: ctx for cancellation; rec destination store.
// Returns: read error or first rejected sample.
func (c *SWAPCollector) Collect(ctx context.Context, rec Recorder) error {
	sm, err := c.readSwap(ctx)
	if err != nil {
		return fmt.Errorf("read swap memory: %w", err)
	}

	attrs := c.labels.attrs(c.now(), "")
	set := &recordSet{rec: rec}
	set.gauge(metricName(c.prefix, "system.swap", "total"), sm.Total, attrs)
	set.gauge(metricName(c.prefix, "system.swap", "used"), sm.Used, attrs)
	set.gauge(metricName(c.prefix, "system.swap", "free"), sm.Free, attrs)
	set.gauge(metricName(c.prefix, "system.swap", "util"), sm.UsedPercent, attrs)
	set.counter(metricName(c.prefix, "system.swap", "in"), sm.Sin, attrs)
	set.counter(metricName(c.prefix, "system.swap", "out"), sm.Sout, attrs)
	return set.err
}
