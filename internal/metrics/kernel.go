package metrics

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/load"
)

const procStatPath = "/proc/stat"

type kernelCounters struct {
	ctxt         uint64
	intr         uint64
	softirq      uint64
	forks        uint64
	procsRunning uint64
	procsBlocked uint64
}

// KERNELCollector records load averages and core Linux kernel counters.
// Params: prefix for metric names; labels static attributes.
// Returns: KERNEL collector instance.
type KERNELCollector struct {
	prefix   string
	labels   Labels
	readLoad func(context.Context) (*load.AvgStat, error)
	readFile func(string) ([]byte, error)
	now      func() time.Time
}

// NewKERNELCollector creates a KERNEL collector.
// Params: prefix for metric names; labels static attributes.
// Returns: configured KERNEL collector.
func NewKERNELCollector(prefix string, labels Labels) *KERNELCollector {
	return &KERNELCollector{
		prefix:   prefix,
		labels:   labels,
		readLoad: load.AvgWithContext,
		readFile: os.ReadFile,
		now:      time.Now,
	}
}

// Name returns logical collector name.
func (c *KERNELCollector) Name() string {
	return "kernel"
}

// Collect records load and run-queue gauges plus cumulative kernel counters.
// Context switches, interrupts, softirqs and forks are counters so the
// store reports them per second.
// Params: ctx for cancellation; rec destination store.
// Returns: read/parse error or first rejected sample.
func (c *KERNELCollector) Collect(ctx context.Context, rec Recorder) error {
	avg, err := c.readLoad(ctx)
	if err != nil {
		return fmt.Errorf("read load averages: %w", err)
	}

	payload, err := c.readFile(procStatPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", procStatPath, err)
	}
	counters, err := parseKernelCounters(payload)
	if err != nil {
		return fmt.Errorf("parse %s: %w", procStatPath, err)
	}

	attrs := c.labels.attrs(c.now(), "")
	set := &recordSet{rec: rec}
	set.gauge(metricName(c.prefix, "system.load", "1"), avg.Load1, attrs)
	set.gauge(metricName(c.prefix, "system.load", "5"), avg.Load5, attrs)
	set.gauge(metricName(c.prefix, "system.load", "15"), avg.Load15, attrs)
	set.gauge(metricName(c.prefix, "system.procs", "running"), counters.procsRunning, attrs)
	set.gauge(metricName(c.prefix, "system.procs", "blocked"), counters.procsBlocked, attrs)
	set.counter(metricName(c.prefix, "system.kernel", "ctxt"), counters.ctxt, attrs)
	set.counter(metricName(c.prefix, "system.kernel", "intr"), counters.intr, attrs)
	set.counter(metricName(c.prefix, "system.kernel", "softirq"), counters.softirq, attrs)
	set.counter(metricName(c.prefix, "system.kernel", "forks"), counters.forks, attrs)
	return set.err
}

// parseKernelCounters parses required counters from /proc/stat.
// Params: payload is /proc/stat file body.
// Returns: parsed kernel counters or parse error.
func parseKernelCounters(payload []byte) (kernelCounters, error) {
	fields := map[string]*uint64{}
	counters := kernelCounters{}
	fields["ctxt"] = &counters.ctxt
	fields["intr"] = &counters.intr
	fields["softirq"] = &counters.softirq
	fields["processes"] = &counters.forks
	fields["procs_running"] = &counters.procsRunning
	fields["procs_blocked"] = &counters.procsBlocked

	seen := make(map[string]bool, len(fields))
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		dst, ok := fields[tokens[0]]
		if !ok {
			continue
		}
		value, err := parseKernelUintField(tokens, 1, tokens[0])
		if err != nil {
			return kernelCounters{}, err
		}
		*dst = value
		seen[tokens[0]] = true
	}
	if err := scanner.Err(); err != nil {
		return kernelCounters{}, fmt.Errorf("scan: %w", err)
	}

	for _, name := range []string{"ctxt", "intr", "softirq", "processes", "procs_running", "procs_blocked"} {
		if !seen[name] {
			return kernelCounters{}, fmt.Errorf("missing %s field", name)
		}
	}
	return counters, nil
}

// parseKernelUintField parses one uint64 field from tokenized /proc/stat line.
func parseKernelUintField(fields []string, index int, fieldName string) (uint64, error) {
	if len(fields) <= index {
		return 0, fmt.Errorf("%s field has no value", fieldName)
	}

	value, err := strconv.ParseUint(fields[index], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", fieldName, err)
	}
	return value, nil
}
