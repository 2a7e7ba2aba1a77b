package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	netio "github.com/shirou/gopsutil/v4/net"
)

// protoStats selects the protocol counters worth reporting as rates.
var protoStats = map[string][]string{
	"tcp": {"ActiveOpens", "PassiveOpens", "RetransSegs", "OutRsts", "InErrs"},
	"udp": {"InDatagrams", "OutDatagrams", "InErrors", "NoPorts", "RcvbufErrors", "SndbufErrors"},
}

// NETCollector records per-interface traffic counters and host TCP/UDP counters.
// Params: prefix for metric names; labels static attributes.
// Returns: NET collector instance.
type NETCollector struct {
	prefix string
	labels Labels

	readIOCounters    func(context.Context, bool) ([]netio.IOCountersStat, error)
	readProtoCounters func(context.Context, []string) ([]netio.ProtoCountersStat, error)
	now               func() time.Time
}

// NewNETCollector creates a NET collector.
// Params: prefix for metric names; labels static attributes.
// Returns: configured NET collector.
func NewNETCollector(prefix string, labels Labels) *NETCollector {
	return &NETCollector{
		prefix:            prefix,
		labels:            labels,
		readIOCounters:    netio.IOCountersWithContext,
		readProtoCounters: netio.ProtoCountersWithContext,
		now:               time.Now,
	}
}

// Name returns logical collector name.
func (c *NETCollector) Name() string {
	return "net"
}

// Collect reads interface and protocol counters; loopback is skipped.
// Params: ctx for cancellation; rec destination store.
// Returns: read error or first rejected sample.
func (c *NETCollector) Collect(ctx context.Context, rec Recorder) error {
	interfaces, err := c.readIOCounters(ctx, true)
	if err != nil {
		return fmt.Errorf("read net counters: %w", err)
	}

	now := c.now()
	set := &recordSet{rec: rec}
	for _, stat := range interfaces {
		if isLoopback(stat.Name) {
			continue
		}

		attrs := c.labels.attrs(now, stat.Name)
		set.counter(c.name("bytes_sent"), stat.BytesSent, attrs)
		set.counter(c.name("bytes_rcvd"), stat.BytesRecv, attrs)
		set.counter(c.name("packets_sent"), stat.PacketsSent, attrs)
		set.counter(c.name("packets_rcvd"), stat.PacketsRecv, attrs)
		set.counter(c.name("errors_in"), stat.Errin, attrs)
		set.counter(c.name("errors_out"), stat.Errout, attrs)
		set.counter(c.name("drops_in"), stat.Dropin, attrs)
		set.counter(c.name("drops_out"), stat.Dropout, attrs)
	}

	// Protocol counters are not available on every platform.
	protocols, err := c.readProtoCounters(ctx, []string{"tcp", "udp"})
	if err != nil {
		return set.err
	}
	attrs := c.labels.attrs(now, "")
	for _, proto := range protocols {
		protocol := strings.ToLower(proto.Protocol)
		for _, field := range protoStats[protocol] {
			value, ok := proto.Stats[field]
			if !ok {
				continue
			}
			set.counter(c.name(protocol+"."+snakeCase(field)), value, attrs)
		}
	}

	return set.err
}

func (c *NETCollector) name(field string) string {
	return metricName(c.prefix, "system.net", field)
}

func isLoopback(name string) bool {
	return name == "lo" || strings.HasPrefix(name, "lo0") || strings.EqualFold(name, "loopback")
}

// snakeCase converts CamelCase counter names (RetransSegs) into retrans_segs.
func snakeCase(value string) string {
	var b strings.Builder
	for idx, r := range value {
		if r >= 'A' && r <= 'Z' {
			if idx > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
