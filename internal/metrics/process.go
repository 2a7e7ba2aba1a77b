package metrics

import (
	"context"
	"fmt"
	"time"

	goprocess "github.com/shirou/gopsutil/v4/process"

	"hostagent/internal/match"
)

// processStat is one process reading used for per-name aggregation.
type processStat struct {
	name       string
	cpuSeconds float64
	rss        uint64
	readBytes  uint64
	writeBytes uint64
	threads    int32
}

// PROCESSCollector records the host process count and, for processes whose
// name matches a configured wildcard, aggregated CPU/RAM/IO per name.
// Params: prefix for metric names; names wildcard masks; labels static attributes.
// Returns: PROCESS collector instance.
type PROCESSCollector struct {
	prefix   string
	names    match.Patterns
	labels   Labels
	listPids func(context.Context) ([]int32, error)
	inspect  func(context.Context, int32) (processStat, error)
	now      func() time.Time
}

// NewPROCESSCollector creates a PROCESS collector.
// Params: prefix for metric names; names process-name wildcards (empty: count only); labels static attributes.
// Returns: configured PROCESS collector.
func NewPROCESSCollector(prefix string, names []string, labels Labels) *PROCESSCollector {
	return &PROCESSCollector{
		prefix:   prefix,
		names:    match.Compile(names),
		labels:   labels,
		listPids: goprocess.PidsWithContext,
		inspect:  inspectProcess,
		now:      time.Now,
	}
}

// Name returns logical collector name.
func (c *PROCESSCollector) Name() string {
	return "process"
}

// Collect lists processes and records per-name aggregates tagged process:<name>.
// Cumulative CPU time and IO bytes are counters; an exiting process makes the
// aggregate drop, which the store reports as a reset and skips for one poll.
// Params: ctx for cancellation; rec destination store.
// Returns: process list error or first rejected sample.
func (c *PROCESSCollector) Collect(ctx context.Context, rec Recorder) error {
	pids, err := c.listPids(ctx)
	if err != nil {
		return fmt.Errorf("read process list: %w", err)
	}

	now := c.now()
	set := &recordSet{rec: rec}
	set.gauge(c.name("count"), len(pids), c.labels.attrs(now, ""))

	if len(c.names) == 0 {
		return set.err
	}

	byName := make(map[string]*processStat)
	instances := make(map[string]int)
	for _, pid := range pids {
		stat, inspectErr := c.inspect(ctx, pid)
		if inspectErr != nil || stat.name == "" || !c.names.MatchAny(stat.name) {
			continue
		}

		agg, ok := byName[stat.name]
		if !ok {
			agg = &processStat{name: stat.name}
			byName[stat.name] = agg
		}
		agg.cpuSeconds += stat.cpuSeconds
		agg.rss += stat.rss
		agg.readBytes += stat.readBytes
		agg.writeBytes += stat.writeBytes
		agg.threads += stat.threads
		instances[stat.name]++
	}

	for name, agg := range byName {
		attrs := c.labels.attrs(now, "", "process:"+name)
		set.gauge(c.name("instances"), instances[name], attrs)
		set.gauge(c.name("threads"), agg.threads, attrs)
		set.gauge(c.name("mem.rss"), agg.rss, attrs)
		set.counter(c.name("cpu.time"), agg.cpuSeconds, attrs)
		set.counter(c.name("io.read_bytes"), agg.readBytes, attrs)
		set.counter(c.name("io.write_bytes"), agg.writeBytes, attrs)
	}

	return set.err
}

func (c *PROCESSCollector) name(field string) string {
	return metricName(c.prefix, "system.proc", field)
}

// inspectProcess reads one process through gopsutil.
// Params: ctx for cancellation; pid process id.
// Returns: process reading; IO counters default to zero when access is denied.
func inspectProcess(ctx context.Context, pid int32) (processStat, error) {
	proc, err := goprocess.NewProcessWithContext(ctx, pid)
	if err != nil {
		return processStat{}, err
	}

	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return processStat{}, fmt.Errorf("read process %d name: %w", pid, err)
	}

	times, err := proc.TimesWithContext(ctx)
	if err != nil {
		return processStat{}, fmt.Errorf("read process %d cpu times: %w", pid, err)
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return processStat{}, fmt.Errorf("read process %d memory: %w", pid, err)
	}

	stat := processStat{
		name:       name,
		cpuSeconds: times.User + times.System,
		rss:        memInfo.RSS,
	}
	if io, ioErr := proc.IOCountersWithContext(ctx); ioErr == nil {
		stat.readBytes = io.ReadBytes
		stat.writeBytes = io.WriteBytes
	}
	if threads, threadsErr := proc.NumThreadsWithContext(ctx); threadsErr == nil {
		stat.threads = threads
	}
	return stat, nil
}
