package app

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"hostagent/internal/config"
)

// Check validates the configuration at path without starting any worker and
// writes which collector sections and sinks it would run.
// Params: path config file or directory; w summary destination.
// Returns: load/validation error.
func Check(path string, w io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sinks := make([]string, 0, len(cfg.Sink))
	for _, sink := range cfg.Sink {
		if sink.Path != "" {
			sinks = append(sinks, sink.Type+":"+sink.Path)
			continue
		}
		sinks = append(sinks, sink.Type)
	}

	fmt.Fprintf(w, "config ok: host=%s prefix=%q interval=%s\n", cfg.Global.Host, cfg.Global.Prefix, cfg.Agent.Interval.Duration)
	fmt.Fprintf(w, "sinks: %s\n", strings.Join(sinks, " "))

	counts := cfg.WorkerCounts()
	if len(counts) == 0 {
		fmt.Fprintln(w, "workers: none")
		return nil
	}
	for _, section := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "workers: %s=%d\n", section, counts[section])
	}
	return nil
}
