package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// CPUCollector records cumulative CPU time as counters so the store reports
// seconds of CPU per second (1.0 == one fully busy core).
// Params: prefix for metric names; perCore adds one device per core.
// Returns: CPU collector instance.
type CPUCollector struct {
	prefix    string
	perCore   bool
	labels    Labels
	readTimes func(context.Context, bool) ([]cpu.TimesStat, error)
	now       func() time.Time
}

// NewCPUCollector creates a CPU collector.
// Params: prefix for metric names; perCore enables per-core series; labels static attributes.
// Returns: configured CPU collector.
func NewCPUCollector(prefix string, perCore bool, labels Labels) *CPUCollector {
	return &CPUCollector{
		prefix:    prefix,
		perCore:   perCore,
		labels:    labels,
		readTimes: cpu.TimesWithContext,
		now:       time.Now,
	}
}

// Name returns logical collector name.
func (c *CPUCollector) Name() string {
	return "cpu"
}

// Collect records total (and optionally per-core) CPU time counters.
// Params: ctx for cancellation; rec destination store.
// Returns: read error or first rejected sample.
func (c *CPUCollector) Collect(ctx context.Context, rec Recorder) error {
	total, err := c.readTimes(ctx, false)
	if err != nil {
		return fmt.Errorf("read total CPU times: %w", err)
	}

	now := c.now()
	set := &recordSet{rec: rec}
	for _, stat := range total {
		c.recordTimes(set, now, "", stat)
	}

	if c.perCore {
		perCore, err := c.readTimes(ctx, true)
		if err != nil {
			return fmt.Errorf("read per-core CPU times: %w", err)
		}
		for _, stat := range perCore {
			c.recordTimes(set, now, stat.CPU, stat)
		}
	}

	return set.err
}

func (c *CPUCollector) recordTimes(set *recordSet, now time.Time, device string, stat cpu.TimesStat) {
	attrs := c.labels.attrs(now, device)
	set.counter(c.name("user"), stat.User, attrs)
	set.counter(c.name("system"), stat.System, attrs)
	set.counter(c.name("idle"), stat.Idle, attrs)
	set.counter(c.name("nice"), stat.Nice, attrs)
	set.counter(c.name("iowait"), stat.Iowait, attrs)
	set.counter(c.name("irq"), stat.Irq, attrs)
	set.counter(c.name("softirq"), stat.Softirq, attrs)
	set.counter(c.name("steal"), stat.Steal, attrs)
	set.counter(c.name("guest"), stat.Guest, attrs)
}

func (c *CPUCollector) name(field string) string {
	return metricName(c.prefix, "system.cpu", field)
}
