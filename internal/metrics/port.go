package metrics

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	portUsed   = 1
	portUnused = 0
)

// PortCollector dials TCP ports and records host.port.used (1 when a
// connection succeeds, 0 otherwise) tagged port:<n>.
// Params: host address to dial, port list, per-dial timeout.
// Returns: port check collector instance.
type PortCollector struct {
	prefix  string
	host    string
	ports   []int
	timeout time.Duration
	labels  Labels
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
	now     func() time.Time
}

// NewPortCollector creates a port check collector.
// Params: prefix for metric names; host to dial; ports to dial; timeout per dial; labels static attributes.
// Returns: configured port collector.
func NewPortCollector(prefix, host string, ports []int, timeout time.Duration, labels Labels) *PortCollector {
	dialer := &net.Dialer{}
	return &PortCollector{
		prefix:  prefix,
		host:    host,
		ports:   ports,
		timeout: timeout,
		labels:  labels,
		dial:    dialer.DialContext,
		now:     time.Now,
	}
}

// Name returns logical collector name.
func (c *PortCollector) Name() string {
	return "port"
}

// Collect dials each port once; dial failures are readings, not errors.
// Params: ctx for cancellation; rec destination store.
// Returns: first rejected sample or context error.
func (c *PortCollector) Collect(ctx context.Context, rec Recorder) error {
	now := c.now()
	set := &recordSet{rec: rec}
	name := metricName(c.prefix, "host.port", "used")

	for _, port := range c.ports {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("dial ports: %w", err)
		}

		state := portUnused
		dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
		conn, err := c.dial(dialCtx, "tcp", net.JoinHostPort(c.host, strconv.Itoa(port)))
		cancel()
		if err == nil {
			state = portUsed
			_ = conn.Close()
		}

		set.gauge(name, state, c.labels.attrs(now, "", "port:"+strconv.Itoa(port)))
	}

	return set.err
}
