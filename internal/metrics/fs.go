package metrics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"hostagent/internal/samples"
)

// FSCollector records filesystem and inode usage gauges per mountpoint.
// Params: prefix for metric names; labels static attributes.
// Returns: FS collector instance.
type FSCollector struct {
	prefix         string
	labels         Labels
	readPartitions func(context.Context, bool) ([]disk.PartitionStat, error)
	readUsage      func(context.Context, string) (*disk.UsageStat, error)
	now            func() time.Time
}

// NewFSCollector creates an FS collector.
// Params: prefix for metric names; labels static attributes.
// Returns: configured FS collector.
func NewFSCollector(prefix string, labels Labels) *FSCollector {
	return &FSCollector{
		prefix:         prefix,
		labels:         labels,
		readPartitions: disk.PartitionsWithContext,
		readUsage:      disk.UsageWithContext,
		now:            time.Now,
	}
}

// Name returns logical collector name.
func (c *FSCollector) Name() string {
	return "fs"
}

// Collect reads mounted filesystems; the mountpoint is the device dimension.
// Params: ctx for cancellation; rec destination store.
// Returns: error when partitions cannot be listed or every usage read fails.
func (c *FSCollector) Collect(ctx context.Context, rec Recorder) error {
	partitions, err := c.readPartitions(ctx, false)
	if err != nil {
		return fmt.Errorf("read partitions: %w", err)
	}

	now := c.now()
	set := &recordSet{rec: rec}
	skipped := 0

	for _, part := range partitions {
		mpoint := strings.TrimSpace(part.Mountpoint)
		if mpoint == "" {
			skipped++
			continue
		}

		usage, usageErr := c.readUsage(ctx, mpoint)
		if usageErr != nil {
			skipped++
			continue
		}

		inodesUtil := usage.InodesUsedPercent
		if math.IsNaN(inodesUtil) || math.IsInf(inodesUtil, 0) {
			inodesUtil = 0
		}

		attrs := c.labels.attrs(now, samples.NormalizeDevice(mpoint), "fstype:"+part.Fstype)
		set.gauge(c.name("total"), usage.Total, attrs)
		set.gauge(c.name("used"), usage.Used, attrs)
		set.gauge(c.name("free"), usage.Free, attrs)
		set.gauge(c.name("util"), usage.UsedPercent, attrs)
		set.gauge(c.name("inodes.total"), usage.InodesTotal, attrs)
		set.gauge(c.name("inodes.used"), usage.InodesUsed, attrs)
		set.gauge(c.name("inodes.free"), usage.InodesFree, attrs)
		set.gauge(c.name("inodes.util"), inodesUtil, attrs)
		set.gauge(c.name("readonly"), readonlyValue(part.Opts), attrs)
	}

	if set.n == 0 && skipped > 0 {
		return fmt.Errorf("all filesystem usage reads failed")
	}
	return set.err
}

func (c *FSCollector) name(field string) string {
	return metricName(c.prefix, "system.fs", field)
}

// readonlyValue maps partition mount options to a 0/1 flag.
func readonlyValue(opts []string) float64 {
	for _, option := range opts {
		if strings.EqualFold(strings.TrimSpace(option), "ro") {
			return 1
		}
	}
	return 0
}
