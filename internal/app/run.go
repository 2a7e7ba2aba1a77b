package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"hostagent/internal/config"
	"hostagent/internal/logging"
	"hostagent/internal/pipeline"
)

// Runtime defines runtime inputs required to start the agent.
// Params: ConfigPath points to the TOML configuration file or directory; Reload
// delivers one value per reload request (SIGHUP).
// Returns: Runtime value used by Run.
type Runtime struct {
	ConfigPath string
	Reload     <-chan struct{}
}

type engineRunner interface {
	Run(context.Context) error
	Close() error
}

type runDeps struct {
	loadConfig func(string) (*config.Config, error)
	newLogger  func(config.LogConfig) (*slog.Logger, func(), error)
	startDebug func(context.Context, config.DebugConfig, *slog.Logger) (func(), error)
	newEngine  func(context.Context, *config.Config, *slog.Logger) (engineRunner, error)
}

// generation is one pipeline built from one config snapshot. Every generation
// owns its engine, and with it a fresh sample store per worker, so rates never
// span a reload. Self-metrics live outside generations.
type generation struct {
	cfg         *config.Config
	logger      *slog.Logger
	closeLogger func()
	engine      engineRunner
	cancel      context.CancelFunc
	done        chan error
	stopDebug   func()
}

// Run loads configuration, starts the pipeline, and swaps in a new pipeline
// on every reload request.
// Params: ctx controls lifecycle; rt provides config path and reload trigger.
// Returns: startup or pipeline error, nil on graceful stop.
func Run(ctx context.Context, rt Runtime) error {
	deps, err := newRunDeps(newSelfRegistry())
	if err != nil {
		return err
	}
	return runWithDeps(ctx, rt, deps)
}

// newRunDeps wires production dependencies around one self-metrics registry.
// Telemetry is registered once here and shared by every generation.
// Params: registry process-lifetime registry exposed on /metrics.
// Returns: dependency set or telemetry registration error.
func newRunDeps(registry *prometheus.Registry) (runDeps, error) {
	telemetry, err := pipeline.NewTelemetry(registry)
	if err != nil {
		return runDeps{}, fmt.Errorf("init telemetry: %w", err)
	}

	return runDeps{
		loadConfig: config.Load,
		newLogger:  logging.New,
		startDebug: func(ctx context.Context, cfg config.DebugConfig, logger *slog.Logger) (func(), error) {
			return startDebugServer(ctx, cfg, logger, registry)
		},
		newEngine: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engineRunner, error) {
			return pipeline.NewFromConfig(ctx, cfg, logger, telemetry)
		},
	}, nil
}

func runWithDeps(ctx context.Context, rt Runtime, deps runDeps) error {
	if strings.TrimSpace(rt.ConfigPath) == "" {
		return fmt.Errorf("config path is required")
	}

	cfg, err := deps.loadConfig(rt.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	current, err := buildGeneration(ctx, cfg, deps)
	if err != nil {
		return err
	}
	current.stopDebug, err = deps.startDebug(ctx, cfg.Debug, current.logger)
	if err != nil {
		current.discard()
		return fmt.Errorf("start debug server: %w", err)
	}
	current.launch(ctx)
	defer func() {
		current.stop()
		current.closeLoggerSink()
	}()

	reloadCh := rt.Reload
	for {
		select {
		case runErr := <-current.done:
			current.done = nil
			if ctx.Err() != nil {
				current.logger.Info("agent stopped", slog.String("reason", ctx.Err().Error()))
				return nil
			}
			if runErr == nil {
				runErr = fmt.Errorf("engine exited without context cancellation")
			}
			current.logger.Error("pipeline stopped unexpectedly", slog.String("error", runErr.Error()))
			return fmt.Errorf("run pipeline: %w", runErr)
		case <-ctx.Done():
			current.stop()
			current.logger.Info("agent stopped", slog.String("reason", ctx.Err().Error()))
			return nil
		case _, ok := <-reloadCh:
			if !ok {
				reloadCh = nil
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			current = reload(ctx, rt.ConfigPath, current, deps)
		}
	}
}

// reload builds the next generation while the current one keeps collecting.
// The current generation is stopped only after the next one has been built,
// so a rejected config never interrupts collection.
// Params: ctx root lifecycle; path config location; current running generation; deps dependency set.
// Returns: generation that is running after the call.
func reload(ctx context.Context, path string, current *generation, deps runDeps) *generation {
	current.logger.Info("config reload requested")

	cfg, err := deps.loadConfig(path)
	if err != nil {
		current.logger.Error("config reload rejected", slog.String("stage", "load"), slog.String("error", err.Error()))
		return current
	}

	next, err := buildGeneration(ctx, cfg, deps)
	if err != nil {
		current.logger.Error("config reload rejected", slog.String("stage", "build"), slog.String("error", err.Error()))
		return current
	}

	current.stop()
	current.closeLoggerSink()

	next.stopDebug, err = deps.startDebug(ctx, cfg.Debug, next.logger)
	if err != nil {
		next.logger.Error("debug server unavailable after reload", slog.String("error", err.Error()))
	}
	next.launch(ctx)
	next.logger.Info("config reload applied")
	return next
}

// buildGeneration creates logger and engine for cfg without starting workers.
// Params: ctx root lifecycle; cfg validated config; deps dependency set.
// Returns: idle generation or build error.
func buildGeneration(ctx context.Context, cfg *config.Config, deps runDeps) (*generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	logger, closeLogger, err := deps.newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	engine, err := deps.newEngine(ctx, cfg, logger)
	if err != nil {
		closeLogger()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	return &generation{
		cfg:         cfg,
		logger:      logger,
		closeLogger: closeLogger,
		engine:      engine,
	}, nil
}

// launch starts the engine under a context derived from ctx.
func (g *generation) launch(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan error, 1)
	go func() {
		g.done <- g.engine.Run(runCtx)
	}()
	logStartup(g.logger, g.cfg)
}

// stop cancels the engine, waits until its sinks are closed, and stops the
// debug listener. The logger stays open.
func (g *generation) stop() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	if g.done != nil {
		<-g.done
		g.done = nil
	}
	if g.stopDebug != nil {
		g.stopDebug()
		g.stopDebug = nil
	}
}

// discard releases a generation whose engine never ran.
func (g *generation) discard() {
	if err := g.engine.Close(); err != nil {
		g.logger.Warn("close sinks failed", slog.String("error", err.Error()))
	}
	g.closeLoggerSink()
}

func (g *generation) closeLoggerSink() {
	if g.closeLogger != nil {
		g.closeLogger()
		g.closeLogger = nil
	}
}

// logStartup emits what the generation collects and where it reports.
// Params: logger generation logger; cfg validated runtime config.
// Returns: none.
func logStartup(logger *slog.Logger, cfg *config.Config) {
	counts := cfg.WorkerCounts()
	workers := 0
	for _, n := range counts {
		workers += n
	}

	sinkTypes := make([]string, 0, len(cfg.Sink))
	for _, sink := range cfg.Sink {
		sinkTypes = append(sinkTypes, sink.Type)
	}

	logger.Info(
		"agent started",
		slog.String("host", cfg.Global.Host),
		slog.String("prefix", cfg.Global.Prefix),
		slog.Duration("interval", cfg.Agent.Interval.Duration),
		slog.Int("workers", workers),
		slog.String("sinks", strings.Join(sinkTypes, ",")),
	)
}
