package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"hostagent/internal/config"
	"hostagent/internal/match"
	"hostagent/internal/metrics"
)

const defaultInterval = 15 * time.Second

// Engine owns collector workers and the sinks they report to.
// Params: worker list, sink set, and logger.
// Returns: pipeline runtime engine.
type Engine struct {
	runners   []runner
	sink      *MultiSink
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

type runner interface {
	run(context.Context) error
}

// workerSettings holds the per-instance fields shared by every section type.
type workerSettings struct {
	name     string
	interval time.Duration
	filter   []string
	drop     []string
}

// builtInMetricGroup binds one built-in section list to its collector factory.
type builtInMetricGroup struct {
	metric      string
	definitions []config.MetricWorkerConfig
	factory     func(config.MetricWorkerConfig) metrics.Collector
}

// NewFromConfig builds sinks and one worker per configured collector instance.
// Params: ctx lifecycle context; cfg validated runtime config; logger initialized logger; telemetry optional self-metrics.
// Returns: engine with active workers or error.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, telemetry *Telemetry) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	sink, err := NewSinksFromConfig(cfg.Sink, logger)
	if err != nil {
		return nil, fmt.Errorf("init sinks: %w", err)
	}

	builder := &engineBuilder{
		cfg:       cfg,
		labels:    metrics.Labels{Hostname: cfg.Global.Host, Tags: cfg.Global.Tags},
		sink:      sink,
		logger:    logger,
		telemetry: telemetry,
	}

	runners, err := builder.build()
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	return &Engine{
		runners: runners,
		sink:    sink,
		logger:  logger,
	}, nil
}

// Run starts all workers and waits for context cancellation, then closes sinks.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		if err := e.Close(); err != nil {
			e.logger.Error("close sinks failed", slog.String("error", err.Error()))
		}
	}()

	if len(e.runners) == 0 {
		e.logger.Warn("no metric workers configured")
		<-ctx.Done()
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(len(e.runners))

	for _, r := range e.runners {
		go func(activeRunner runner) {
			defer wg.Done()
			if err := activeRunner.run(ctx); err != nil {
				e.logger.Error("runner stopped with error", slog.String("error", err.Error()))
			}
		}(r)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// Close closes the sinks. Run calls it on exit; callers only need it for an
// engine that is discarded without running. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.sink.Close()
	})
	return e.closeErr
}

// Workers returns the number of configured collector workers.
func (e *Engine) Workers() int {
	return len(e.runners)
}

type engineBuilder struct {
	cfg       *config.Config
	labels    metrics.Labels
	sink      Sink
	logger    *slog.Logger
	telemetry *Telemetry
	runners   []runner
}

// build creates workers for every section in a stable order.
// Params: none.
// Returns: runner list or the first build error.
func (b *engineBuilder) build() ([]runner, error) {
	prefix := b.cfg.Global.Prefix

	groups := []builtInMetricGroup{
		{
			metric:      "cpu",
			definitions: b.cfg.Metrics.CPU,
			factory: func(definition config.MetricWorkerConfig) metrics.Collector {
				return metrics.NewCPUCollector(prefix, definition.PerCore, b.labels)
			},
		},
		{
			metric:      "ram",
			definitions: b.cfg.Metrics.RAM,
			factory: func(config.MetricWorkerConfig) metrics.Collector {
				return metrics.NewRAMCollector(prefix, b.labels)
			},
		},
		{
			metric:      "swap",
			definitions: b.cfg.Metrics.SWAP,
			factory: func(config.MetricWorkerConfig) metrics.Collector {
				return metrics.NewSWAPCollector(prefix, b.labels)
			},
		},
		{
			metric:      "disk",
			definitions: b.cfg.Metrics.DISK,
			factory: func(config.MetricWorkerConfig) metrics.Collector {
				return metrics.NewDISKCollector(prefix, b.labels)
			},
		},
		{
			metric:      "net",
			definitions: b.cfg.Metrics.NET,
			factory: func(config.MetricWorkerConfig) metrics.Collector {
				return metrics.NewNETCollector(prefix, b.labels)
			},
		},
		{
			metric:      "fs",
			definitions: b.cfg.Metrics.FS,
			factory: func(config.MetricWorkerConfig) metrics.Collector {
				return metrics.NewFSCollector(prefix, b.labels)
			},
		},
		{
			metric:      "kernel",
			definitions: b.cfg.Metrics.Kernel,
			factory: func(config.MetricWorkerConfig) metrics.Collector {
				return metrics.NewKERNELCollector(prefix, b.labels)
			},
		},
	}

	for _, group := range groups {
		for idx, definition := range group.definitions {
			settings := workerSettings{
				name:     definition.Name,
				interval: definition.Interval.Duration,
				filter:   definition.Filter,
				drop:     definition.Drop,
			}
			if err := b.add(group.metric, idx, settings, group.factory(definition)); err != nil {
				return nil, err
			}
		}
	}

	for idx, definition := range b.cfg.Metrics.Process {
		settings := workerSettings{
			name:     definition.Name,
			interval: definition.Interval.Duration,
			filter:   definition.Filter,
			drop:     definition.Drop,
		}
		collector := metrics.NewPROCESSCollector(prefix, definition.Names, b.labels)
		if err := b.add("process", idx, settings, collector); err != nil {
			return nil, err
		}
	}

	for idx, definition := range b.cfg.Metrics.Port {
		settings := workerSettings{
			name:     definition.Name,
			interval: definition.Interval.Duration,
			filter:   definition.Filter,
			drop:     definition.Drop,
		}
		collector := metrics.NewPortCollector(
			prefix,
			definition.Host,
			definition.Ports,
			definition.Timeout.Duration,
			b.labels,
		)
		if err := b.add("port", idx, settings, collector); err != nil {
			return nil, err
		}
	}

	for _, source := range config.SortedNames(b.cfg.Metrics.HTTP) {
		for idx, definition := range b.cfg.Metrics.HTTP[source] {
			settings := workerSettings{
				name:     definition.Name,
				interval: definition.Interval.Duration,
				filter:   definition.Filter,
				drop:     definition.Drop,
			}
			instance := defaultWorkerInstance(definition.Name, source, idx)
			collector := metrics.NewHTTPClientCollector(
				instance,
				definition.URL,
				metrics.HTTPClientOptions{
					Format:   definition.Format,
					Prefix:   joinPrefix(prefix, httpPrefix(definition.Prefix, source)),
					Counters: definition.Counters,
					Timeout:  definition.Timeout.Duration,
				},
				b.labels,
			)
			if err := b.add(source, idx, settings, collector); err != nil {
				return nil, err
			}
		}
	}

	for _, source := range config.SortedNames(b.cfg.Metrics.Script) {
		for idx, definition := range b.cfg.Metrics.Script[source] {
			settings := workerSettings{
				name:     definition.Name,
				interval: definition.Interval.Duration,
				filter:   definition.Filter,
				drop:     definition.Drop,
			}
			instance := defaultWorkerInstance(definition.Name, source, idx)
			collector := metrics.NewScriptCollector(
				instance,
				definition.Path,
				metrics.ScriptOptions{
					Args:     definition.Args,
					Env:      definition.Env,
					Timeout:  definition.Timeout.Duration,
					Format:   definition.Format,
					Prefix:   joinPrefix(prefix, httpPrefix(definition.Prefix, source)),
					Counters: definition.Counters,
				},
				b.labels,
			)
			if err := b.add(source, idx, settings, collector); err != nil {
				return nil, err
			}
		}
	}

	return b.runners, nil
}

// add resolves schedule and filters for one instance and appends its worker.
// Params: metric section kind; index within section; settings instance fields; collector data source.
// Returns: build error.
func (b *engineBuilder) add(metric string, index int, settings workerSettings, collector metrics.Collector) error {
	worker, err := newMetricWorker(
		WorkerConfig{
			Kind:      metric,
			Instance:  defaultWorkerInstance(settings.name, metric, index),
			Interval:  resolveWorkerInterval(b.cfg.Agent.Interval.Duration, settings.interval, defaultInterval),
			Collector: collector,
			Filter:    resolveWorkerFilter(b.cfg.Agent, settings),
		},
		b.sink,
		b.logger,
		b.telemetry,
	)
	if err != nil {
		return fmt.Errorf("build %s worker[%d]: %w", metric, index, err)
	}
	b.runners = append(b.runners, worker)
	return nil
}

// resolveWorkerInterval resolves interval with override/default/fallback precedence.
// Params: defaultValue from [agent]; overrideValue from worker; fallback hardcoded fallback.
// Returns: resolved interval value.
func resolveWorkerInterval(defaultValue time.Duration, overrideValue time.Duration, fallback time.Duration) time.Duration {
	interval := defaultValue
	if interval <= 0 {
		interval = fallback
	}
	if overrideValue > 0 {
		interval = overrideValue
	}
	return interval
}

// resolveWorkerFilter combines agent and worker masks: worker keep masks
// replace the agent ones, drop masks from both apply.
// Params: agent defaults; settings worker overrides.
// Returns: compiled name filter.
func resolveWorkerFilter(agent config.AgentConfig, settings workerSettings) match.Filter {
	keep := agent.Filter
	if len(settings.filter) > 0 {
		keep = settings.filter
	}
	drop := slices.Concat(agent.Drop, settings.drop)
	return match.NewFilter(keep, drop)
}

// defaultWorkerInstance resolves worker instance name using explicit name or "<prefix>-<idx>".
// Params: name optional configured worker name; prefix section-derived default prefix; index worker index.
// Returns: non-empty worker instance string.
func defaultWorkerInstance(name string, prefix string, index int) string {
	instance := strings.TrimSpace(name)
	if instance != "" {
		return instance
	}

	base := strings.TrimSpace(prefix)
	if base == "" {
		base = "worker"
	}
	return base + "-" + strconv.Itoa(index)
}

// httpPrefix returns the configured prefix of an http or script source, or its section name.
func httpPrefix(configured, source string) string {
	if prefix := strings.TrimSpace(configured); prefix != "" {
		return prefix
	}
	return strings.TrimSpace(source)
}

func joinPrefix(outer, inner string) string {
	switch {
	case outer == "":
		return inner
	case inner == "":
		return outer
	default:
		return outer + "." + inner
	}
}
