package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"hostagent/internal/samples"
)

// DISKCollector records block device IO counters per base device.
// Partitions, loop and ram devices are skipped; the store derives rates.
// Params: prefix for metric names; labels static attributes.
// Returns: DISK collector instance.
type DISKCollector struct {
	prefix string
	labels Labels
	readIO func(context.Context, ...string) (map[string]disk.IOCountersStat, error)
	now    func() time.Time
}

// NewDISKCollector creates a DISK collector.
// Params: prefix for metric names; labels static attributes.
// Returns: configured DISK collector.
func NewDISKCollector(prefix string, labels Labels) *DISKCollector {
	return &DISKCollector{
		prefix: prefix,
		labels: labels,
		readIO: disk.IOCountersWithContext,
		now:    time.Now,
	}
}

// Name returns logical collector name.
func (c *DISKCollector) Name() string {
	return "disk"
}

// Collect reads per-device IO counters and records them with device=<short name>.
// Params: ctx for cancellation; rec destination store.
// Returns: read error or first rejected sample.
func (c *DISKCollector) Collect(ctx context.Context, rec Recorder) error {
	stats, err := c.readIO(ctx)
	if err != nil {
		return fmt.Errorf("read disk counters: %w", err)
	}

	now := c.now()
	set := &recordSet{rec: rec}
	for name, stat := range stats {
		if !isBaseDiskDevice(name) {
			continue
		}

		attrs := c.labels.attrs(now, normalizeDeviceName(name))
		set.counter(c.name("reads"), stat.ReadCount, attrs)
		set.counter(c.name("writes"), stat.WriteCount, attrs)
		set.counter(c.name("read_bytes"), stat.ReadBytes, attrs)
		set.counter(c.name("write_bytes"), stat.WriteBytes, attrs)
		set.counter(c.name("read_time"), stat.ReadTime, attrs)
		set.counter(c.name("write_time"), stat.WriteTime, attrs)
		set.counter(c.name("io_time"), stat.IoTime, attrs)
		set.counter(c.name("weighted_io_time"), stat.WeightedIO, attrs)
		set.gauge(c.name("in_progress"), stat.IopsInProgress, attrs)
	}

	return set.err
}

func (c *DISKCollector) name(field string) string {
	return metricName(c.prefix, "system.disk", field)
}

// isBaseDiskDevice returns true for top-level block devices and false for partitions.
// Params: device name from gopsutil, with or without `/dev/` prefix.
// Returns: true when device should be reported by DISK metric.
func isBaseDiskDevice(name string) bool {
	device := normalizeDeviceName(name)
	if device == "" {
		return false
	}

	if matched, base := matchLetterDisk(device, "sd"); matched {
		return base
	}
	if matched, base := matchLetterDisk(device, "vd"); matched {
		return base
	}
	if matched, base := matchLetterDisk(device, "xvd"); matched {
		return base
	}
	if matched, base := matchLetterDisk(device, "hd"); matched {
		return base
	}
	if matched, base := matchNVMeDisk(device); matched {
		return base
	}
	if matched, base := matchMMCBLKDisk(device); matched {
		return base
	}

	if strings.HasPrefix(device, "loop") && isDigits(device[len("loop"):]) {
		return false
	}
	if strings.HasPrefix(device, "ram") && isDigits(device[len("ram"):]) {
		return false
	}

	if strings.HasPrefix(device, "dm-") && isDigits(device[len("dm-"):]) {
		return true
	}
	if strings.HasPrefix(device, "md") && isDigits(device[len("md"):]) {
		return true
	}
	if strings.HasPrefix(device, "zd") && isDigits(device[len("zd"):]) {
		return true
	}

	// Keep unknown names to avoid dropping valid devices on non-standard kernels.
	return true
}

// normalizeDeviceName strips an optional /dev/ prefix and canonicalizes the rest.
// Params: raw device name.
// Returns: normalized short device name.
func normalizeDeviceName(name string) string {
	return samples.NormalizeDevice(strings.TrimPrefix(strings.TrimSpace(name), "/dev/"))
}

// matchLetterDisk matches sd/vd/xvd/hd names; the second result is false for partitions.
func matchLetterDisk(device, prefix string) (bool, bool) {
	if !strings.HasPrefix(device, prefix) {
		return false, false
	}

	rest := device[len(prefix):]
	if rest == "" {
		return false, false
	}

	letters := 0
	for letters < len(rest) {
		ch := rest[letters]
		if ch < 'a' || ch > 'z' {
			break
		}
		letters++
	}
	if letters == 0 {
		return false, false
	}
	if letters == len(rest) {
		return true, true
	}
	if isDigits(rest[letters:]) {
		return true, false
	}
	return true, true
}

// matchNVMeDisk matches nvmeNnM and nvmeNnMpP names.
func matchNVMeDisk(device string) (bool, bool) {
	if !strings.HasPrefix(device, "nvme") {
		return false, false
	}

	rest := device[len("nvme"):]
	n := consumeDigits(rest)
	if n == 0 {
		return false, false
	}
	rest = rest[n:]
	if !strings.HasPrefix(rest, "n") {
		return false, false
	}
	rest = rest[1:]
	n = consumeDigits(rest)
	if n == 0 {
		return false, false
	}
	rest = rest[n:]
	if rest == "" {
		return true, true
	}
	if strings.HasPrefix(rest, "p") && isDigits(rest[1:]) {
		return true, false
	}
	return true, true
}

// matchMMCBLKDisk matches mmcblkN and mmcblkNpP names.
func matchMMCBLKDisk(device string) (bool, bool) {
	if !strings.HasPrefix(device, "mmcblk") {
		return false, false
	}

	rest := device[len("mmcblk"):]
	n := consumeDigits(rest)
	if n == 0 {
		return false, false
	}
	rest = rest[n:]
	if rest == "" {
		return true, true
	}
	if strings.HasPrefix(rest, "p") && isDigits(rest[1:]) {
		return true, false
	}
	return true, true
}

// consumeDigits returns the leading decimal digit run length.
func consumeDigits(value string) int {
	index := 0
	for index < len(value) {
		ch := value[index]
		if ch < '0' || ch > '9' {
			break
		}
		index++
	}
	return index
}

// isDigits checks that value is a non-empty decimal number.
// Params: string to validate.
// Returns: true if value contains only digits and is not empty.
func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for idx := 0; idx < len(value); idx++ {
		ch := value[idx]
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
