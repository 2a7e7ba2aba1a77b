package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	pprofhttp "net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostagent/internal/config"
)

const (
	debugShutdownTimeout = 3 * time.Second
	debugReadHeaderTO    = 2 * time.Second
	metricsPath          = "/metrics"
)

// newSelfRegistry creates the registry that backs /metrics for the whole
// process lifetime, so counters survive config reloads.
func newSelfRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// newDebugMux mounts the enabled debug handlers.
// Params: cfg debug section; gatherer source for /metrics.
// Returns: HTTP handler.
func newDebugMux(cfg config.DebugConfig, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	if cfg.PprofEnabled() {
		mux.HandleFunc("/debug/pprof/", pprofhttp.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprofhttp.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprofhttp.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprofhttp.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprofhttp.Trace)
	}
	if cfg.MetricsEnabled() {
		mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// startDebugServer starts optional debug HTTP endpoint and wires graceful shutdown.
// Params: ctx controls lifecycle; cfg provides enabled/listen options; logger reports runtime events; gatherer backs /metrics.
// Returns: stop function (idempotent) and startup error.
func startDebugServer(
	ctx context.Context,
	cfg config.DebugConfig,
	logger *slog.Logger,
	gatherer prometheus.Gatherer,
) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", cfg.Listen, err)
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newDebugMux(cfg, gatherer),
		ReadHeaderTimeout: debugReadHeaderTO,
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), debugShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("debug server shutdown error", slog.String("error", err.Error()))
			}
		})
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("debug server failed", slog.String("addr", cfg.Listen), slog.String("error", err.Error()))
		}
	}()

	logger.Info(
		"debug server started",
		slog.String("addr", cfg.Listen),
		slog.Bool("pprof", cfg.PprofEnabled()),
		slog.Bool("metrics", cfg.MetricsEnabled()),
	)
	return stop, nil
}
