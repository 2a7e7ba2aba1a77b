package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// RAMCollector records RAM totals, used/free, and utilization gauges.
// Params: prefix for metric names; labels static attributes.
// Returns: RAM collector instance.
type RAMCollector struct {
	prefix     string
	labels     Labels
	readMemory func(context.Context) (*mem.VirtualMemoryStat, error)
	now        func() time.Time
}

// NewRAMCollector creates a RAM collector.
// Params: prefix for metric names; labels static attributes.
// Returns: configured RAM collector.
func NewRAMCollector(prefix string, labels Labels) *RAMCollector {
	return &RAMCollector{
		prefix:     prefix,
		labels:     labels,
		readMemory: mem.VirtualMemoryWithContext,
		now:        time.Now,
	}
}

// Name returns logical collector name.
func (c *RAMCollector) Name() string {
	return "ram"
}

// Collect reads virtual memory state and records gauges.
// Params: ctx for cancellation; rec destination store.
// Returns: read error or first rejected sample.
func (c *RAMCollector) Collect(ctx context.Context, rec Recorder) error {
	vm, err := c.readMemory(ctx)
	if err != nil {
		return fmt.Errorf("read virtual memory: %w", err)
	}

	util := 0.0
	if vm.Total > 0 {
		util = (float64(vm.Used) / float64(vm.Total)) * 100
	}

	attrs := c.labels.attrs(c.now(), "")
	set := &recordSet{rec: rec}
	set.gauge(metricName(c.prefix, "system.mem", "total"), vm.Total, attrs)
	set.gauge(metricName(c.prefix, "system.mem", "used"), vm.Used, attrs)
	set.gauge(metricName(c.prefix, "system.mem", "free"), vm.Available, attrs)
	set.gauge(metricName(c.prefix, "system.mem", "cached"), vm.Cached, attrs)
	set.gauge(metricName(c.prefix, "system.mem", "util"), util, attrs)
	return set.err
}
