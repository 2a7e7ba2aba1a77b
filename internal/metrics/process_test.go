package metrics

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"hostagent/internal/samples"
)

// TestPROCESSCollectorAggregatesByName verifies per-name aggregation and name masks.
// Params: testing.T for assertions.
// Returns: none.
func TestPROCESSCollectorAggregatesByName(t *testing.T) {
	tick := time.Unix(1700000000, 0)
	cpuSeconds := 10.0

	collector := NewPROCESSCollector("", []string{"java*"}, Labels{})
	collector.now = func() time.Time { return tick }
	collector.listPids = func(context.Context) ([]int32, error) {
		return []int32{1, 2, 3, 4}, nil
	}
	collector.inspect = func(_ context.Context, pid int32) (processStat, error) {
		switch pid {
		case 1:
			return processStat{name: "systemd", rss: 1}, nil
		case 2, 3:
			return processStat{name: "java", cpuSeconds: cpuSeconds, rss: 100, threads: 20}, nil
		default:
			return processStat{}, errors.New("gone")
		}
	}

	store := samples.NewStore()
	if err := collector.Collect(context.Background(), store); err != nil {
		t.Fatalf("first Collect() error: %v", err)
	}

	count, err := store.GetSample("system.proc.count", nil, "", true)
	if err != nil || count != 4 {
		t.Fatalf("unexpected process count: value=%v err=%v", count, err)
	}
	rss, err := store.GetSample("system.proc.mem.rss", []string{"process:java"}, "", true)
	if err != nil || rss != 200 {
		t.Fatalf("unexpected java rss: value=%v err=%v", rss, err)
	}
	instances, err := store.GetSample("system.proc.instances", []string{"process:java"}, "", true)
	if err != nil || instances != 2 {
		t.Fatalf("unexpected java instances: value=%v err=%v", instances, err)
	}
	if _, err := store.GetSample("system.proc.mem.rss", []string{"process:systemd"}, "", true); err == nil {
		t.Fatalf("expected systemd to be filtered by name mask")
	}

	tick = tick.Add(4 * time.Second)
	cpuSeconds = 12
	if err := collector.Collect(context.Background(), store); err != nil {
		t.Fatalf("second Collect() error: %v", err)
	}
	cpuRate, err := store.GetSample("system.proc.cpu.time", []string{"process:java"}, "", true)
	if err != nil {
		t.Fatalf("fetch cpu rate: %v", err)
	}
	if cpuRate != 1 {
		t.Fatalf("unexpected java cpu rate: %v", cpuRate)
	}
}

func TestPortCollectorCollect(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	openPort := listener.Addr().(*net.TCPAddr).Port

	collector := NewPortCollector("", "127.0.0.1", []int{openPort, 1}, time.Second, Labels{})
	collector.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		if address == net.JoinHostPort("127.0.0.1", "1") {
			return nil, errors.New("connection refused")
		}
		var dialer net.Dialer
		return dialer.DialContext(ctx, network, address)
	}

	store := samples.NewStore()
	if err := collector.Collect(context.Background(), store); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	used, err := store.GetSample("host.port.used", []string{"port:" + strconv.Itoa(openPort)}, "", true)
	if err != nil || used != 1 {
		t.Fatalf("unexpected open port state: value=%v err=%v", used, err)
	}
	unused, err := store.GetSample("host.port.used", []string{"port:1"}, "", true)
	if err != nil || unused != 0 {
		t.Fatalf("unexpected closed port state: value=%v err=%v", unused, err)
	}
}

func TestFSCollectorCollect(t *testing.T) {
	collector := NewFSCollector("", Labels{})
	collector.readPartitions = func(context.Context, bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Mountpoint: "/", Fstype: "ext4", Opts: []string{"rw"}},
			{Mountpoint: "/boot", Fstype: "vfat", Opts: []string{"ro"}},
			{Mountpoint: "/broken", Fstype: "nfs"},
			{Mountpoint: "/media/USB Stick", Fstype: "exfat", Opts: []string{"rw"}},
		}, nil
	}
	collector.readUsage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		switch path {
		case "/broken":
			return nil, errors.New("stale handle")
		case "/media/usb_stick":
			t.Fatalf("usage must be read from the raw mountpoint")
		}
		return &disk.UsageStat{Total: 100, Used: 40, UsedPercent: 40}, nil
	}

	store := samples.NewStore()
	if err := collector.Collect(context.Background(), store); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	readonly, err := store.GetSample("system.fs.readonly", []string{"fstype:vfat"}, "/boot", true)
	if err != nil || readonly != 1 {
		t.Fatalf("unexpected /boot readonly: value=%v err=%v", readonly, err)
	}
	util, err := store.GetSample("system.fs.util", []string{"fstype:ext4"}, "/", true)
	if err != nil || util != 40 {
		t.Fatalf("unexpected / util: value=%v err=%v", util, err)
	}
	usb, err := store.GetSample("system.fs.util", []string{"fstype:exfat"}, "/media/usb_stick", true)
	if err != nil || usb != 40 {
		t.Fatalf("unexpected normalized mountpoint util: value=%v err=%v", usb, err)
	}
}

func TestFSCollectorCollectAllFailed(t *testing.T) {
	collector := NewFSCollector("", Labels{})
	collector.readPartitions = func(context.Context, bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{{Mountpoint: "/data"}}, nil
	}
	collector.readUsage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.New("denied")
	}
	if err := collector.Collect(context.Background(), samples.NewStore()); err == nil {
		t.Fatalf("expected error when every usage read fails")
	}
}
