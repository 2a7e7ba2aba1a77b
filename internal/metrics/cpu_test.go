package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"hostagent/internal/samples"
)

// TestCPUCollectorCollect verifies CPU seconds become per-second utilization rates.
// Params: testing.T for assertions.
// Returns: none.
func TestCPUCollectorCollect(t *testing.T) {
	tick := time.Unix(1700000000, 0)
	user := 100.0

	collector := NewCPUCollector("", true, Labels{Hostname: "web-1"})
	collector.now = func() time.Time { return tick }
	collector.readTimes = func(_ context.Context, perCPU bool) ([]cpu.TimesStat, error) {
		if perCPU {
			return []cpu.TimesStat{
				{CPU: "cpu0", User: user / 2},
				{CPU: "cpu1", User: user / 2},
			}, nil
		}
		return []cpu.TimesStat{{CPU: "cpu-total", User: user}}, nil
	}

	store := samples.NewStore()
	if err := collector.Collect(context.Background(), store); err != nil {
		t.Fatalf("first Collect() error: %v", err)
	}
	if got := store.GetMetrics(true); len(got) != 0 {
		t.Fatalf("expected counters to be warming up, got %+v", got)
	}

	tick = tick.Add(10 * time.Second)
	user = 115
	if err := collector.Collect(context.Background(), store); err != nil {
		t.Fatalf("second Collect() error: %v", err)
	}

	total, err := store.GetSample("system.cpu.user", nil, "", false)
	if err != nil {
		t.Fatalf("fetch total user: %v", err)
	}
	if total != 1.5 {
		t.Fatalf("unexpected total user rate: %v", total)
	}
	core, err := store.GetSample("system.cpu.user", nil, "cpu1", false)
	if err != nil {
		t.Fatalf("fetch core user: %v", err)
	}
	if core != 0.75 {
		t.Fatalf("unexpected core user rate: %v", core)
	}
}

func TestCPUCollectorCollectReadError(t *testing.T) {
	collector := NewCPUCollector("", false, Labels{})
	collector.readTimes = func(context.Context, bool) ([]cpu.TimesStat, error) {
		return nil, errors.New("boom")
	}
	if err := collector.Collect(context.Background(), samples.NewStore()); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestRAMAndSWAPCollectorsCollect(t *testing.T) {
	now := func() time.Time { return time.Unix(1700000000, 0) }

	ram := NewRAMCollector("agent", Labels{})
	ram.now = now
	ram.readMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1000, Used: 250, Available: 700}, nil
	}

	swap := NewSWAPCollector("agent", Labels{})
	swap.now = now
	swap.readSwap = func(context.Context) (*mem.SwapMemoryStat, error) {
		return &mem.SwapMemoryStat{Total: 100, Used: 10, Free: 90, UsedPercent: 10, Sin: 5}, nil
	}

	store := samples.NewStore()
	for _, collector := range []Collector{ram, swap} {
		if err := collector.Collect(context.Background(), store); err != nil {
			t.Fatalf("%s Collect() error: %v", collector.Name(), err)
		}
	}

	util, err := store.GetSample("agent.system.mem.util", nil, "", true)
	if err != nil || util != 25 {
		t.Fatalf("unexpected mem util: value=%v err=%v", util, err)
	}
	if !store.IsGauge("agent.system.swap.used") || !store.IsCounter("agent.system.swap.in") {
		t.Fatalf("unexpected swap kinds")
	}
}
