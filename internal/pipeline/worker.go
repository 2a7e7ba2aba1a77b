package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hostagent/internal/match"
	"hostagent/internal/metrics"
	"hostagent/internal/samples"
)

// WorkerConfig defines one collector worker runtime.
// Params: collector identity, schedule, collector, and metric name filter.
// Returns: worker runtime configuration.
type WorkerConfig struct {
	Kind      string
	Instance  string
	Interval  time.Duration
	Collector metrics.Collector
	Filter    match.Filter
}

type metricWorker struct {
	cfg       WorkerConfig
	store     *samples.Store
	sink      Sink
	logger    *slog.Logger
	telemetry *Telemetry
	now       func() time.Time
}

// newMetricWorker builds a worker that owns a fresh sample store.
// Params: cfg runtime settings; sink batch consumer; logger root logger; telemetry optional self-metrics.
// Returns: worker instance or error.
func newMetricWorker(cfg WorkerConfig, sink Sink, logger *slog.Logger, telemetry *Telemetry) (*metricWorker, error) {
	if cfg.Collector == nil {
		return nil, fmt.Errorf("collector is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be > 0")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cfg.Instance = strings.TrimSpace(cfg.Instance)
	if cfg.Instance == "" {
		cfg.Instance = cfg.Collector.Name()
	}

	w := &metricWorker{
		cfg:  cfg,
		sink: sink,
		logger: logger.With(
			slog.String("metric", cfg.Kind),
			slog.String("instance", cfg.Instance),
		),
		telemetry: telemetry,
		now:       time.Now,
	}
	w.store = samples.NewStore(samples.WithSkipHook(w.logSkipped))
	return w, nil
}

// run executes the collect/report loop until context cancellation.
// Params: ctx controls lifecycle.
// Returns: nil on graceful stop.
func (w *metricWorker) run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	// Warm-up poll so counters have a previous reading on the first tick.
	w.collectOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick polls once and reports the store only when the poll succeeded.
// Params: ctx for poll and sink.
// Returns: number of samples delivered.
func (w *metricWorker) tick(ctx context.Context) int {
	if !w.collectOnce(ctx) {
		return 0
	}
	return w.flush(ctx)
}

// collectOnce polls the collector into the worker store.
// A failed poll leaves the previous gauges in the store, so the caller must
// not flush after it or stale readings are reported again.
// Params: ctx for poll cancellation.
// Returns: true when the poll succeeded; failures are logged and counted.
func (w *metricWorker) collectOnce(ctx context.Context) bool {
	started := w.now()
	err := w.cfg.Collector.Collect(ctx, w.store)
	w.telemetry.observePoll(w.cfg.Instance, w.now().Sub(started), err)
	if err == nil {
		return true
	}
	if ctx.Err() == nil {
		w.logger.Error("collect failed", slog.String("error", err.Error()))
	}
	return false
}

// logSkipped reports series left out of an export. Warm-up and counter
// resets are expected and stay at debug level.
func (w *metricWorker) logSkipped(key samples.Key, err error) {
	level := slog.LevelWarn
	if samples.IsTransient(err) {
		level = slog.LevelDebug
	}
	w.logger.Log(
		context.Background(),
		level,
		"series skipped",
		slog.String("name", key.Metric),
		slog.String("device", key.Device),
		slog.String("error", err.Error()),
	)
}

// flush exports every computable sample, drops filtered names, and sends
// the batch to the sink.
// Params: ctx passed to the sink.
// Returns: number of samples delivered.
func (w *metricWorker) flush(ctx context.Context) int {
	batch := make([]samples.Metric, 0)
	for metric := range w.store.All(true) {
		if !w.cfg.Filter.Allow(metric.Name) {
			continue
		}
		batch = append(batch, metric)
	}
	if len(batch) == 0 {
		return 0
	}

	err := w.sink.Consume(ctx, batch)
	w.telemetry.observeFlush(w.cfg.Instance, len(batch), err)
	if err != nil {
		w.logger.Error(
			"sink rejected batch",
			slog.Int("samples", len(batch)),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return len(batch)
}
