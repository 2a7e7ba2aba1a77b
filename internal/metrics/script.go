package metrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"hostagent/internal/match"
)

const (
	maxScriptStdoutBytes = 4 << 20
	maxScriptStderrBytes = 8 * 1024
)

type cappedBuffer struct {
	buffer bytes.Buffer
	max    int
}

// Write appends data up to configured cap and silently drops the rest.
// Params: payload chunk bytes.
// Returns: consumed input size to keep writer contract for command pipes.
func (b *cappedBuffer) Write(payload []byte) (int, error) {
	if b.max <= 0 || b.buffer.Len() >= b.max {
		return len(payload), nil
	}

	remaining := b.max - b.buffer.Len()
	if len(payload) > remaining {
		_, _ = b.buffer.Write(payload[:remaining])
		return len(payload), nil
	}

	_, _ = b.buffer.Write(payload)
	return len(payload), nil
}

func (b *cappedBuffer) truncated() bool {
	return b.buffer.Len() >= b.max
}

// ScriptOptions describes one external check command.
// Params: Args passed to the command; Env extra environment; Timeout per run;
// Format json|prometheus; Prefix and Counters as for HTTP sources.
// Returns: script collector options.
type ScriptOptions struct {
	Args     []string
	Env      map[string]string
	Timeout  time.Duration
	Format   string
	Prefix   string
	Counters []string
}

// ScriptCollector runs a local check command and records the numeric
// readings it prints on stdout.
// Params: collector name, command path, and options.
// Returns: SCRIPT collector instance.
type ScriptCollector struct {
	name     string
	path     string
	args     []string
	env      []string
	timeout  time.Duration
	format   string
	prefix   string
	counters match.Patterns
	labels   Labels
	now      func() time.Time
}

// NewScriptCollector creates a SCRIPT collector.
// Params: name logical collector name; path command path; options run and parse settings; labels static attributes.
// Returns: configured SCRIPT collector.
func NewScriptCollector(name, path string, options ScriptOptions, labels Labels) *ScriptCollector {
	format := strings.ToLower(strings.TrimSpace(options.Format))
	if format == "" {
		format = HTTPFormatJSON
	}

	return &ScriptCollector{
		name:     strings.TrimSpace(name),
		path:     strings.TrimSpace(path),
		args:     options.Args,
		env:      mergeEnvironment(options.Env),
		timeout:  options.Timeout,
		format:   format,
		prefix:   strings.TrimSpace(options.Prefix),
		counters: match.Compile(options.Counters),
		labels:   labels,
		now:      time.Now,
	}
}

// Name returns logical collector name.
func (c *ScriptCollector) Name() string {
	return c.name
}

// Collect runs the command once and records its stdout.
// Params: ctx for cancellation; rec destination store.
// Returns: execution, parse, or first rejected sample error.
func (c *ScriptCollector) Collect(ctx context.Context, rec Recorder) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	command := exec.CommandContext(runCtx, c.path, c.args...)
	command.Env = c.env

	stdout := &cappedBuffer{max: maxScriptStdoutBytes}
	stderr := &cappedBuffer{max: maxScriptStderrBytes}
	command.Stdout = stdout
	command.Stderr = stderr

	if err := command.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("script %q timed out after %s", c.path, c.timeout)
		}

		stderrText := strings.TrimSpace(stderr.buffer.String())
		if stderrText == "" {
			return fmt.Errorf("run script %q: %w", c.path, err)
		}
		return fmt.Errorf("run script %q: %w (stderr: %s)", c.path, err, stderrText)
	}
	if stdout.truncated() {
		return fmt.Errorf("script %q stdout exceeds %d bytes", c.path, maxScriptStdoutBytes)
	}

	set := &recordSet{rec: rec}
	now := c.now()
	payload := bytes.NewReader(stdout.buffer.Bytes())

	var err error
	switch c.format {
	case HTTPFormatPrometheus:
		err = recordPrometheusText(payload, c.prefix, c.labels, now, set)
	default:
		err = recordJSONDocument(payload, c.prefix, c.counters, c.labels, now, set)
	}
	if err != nil {
		return fmt.Errorf("parse script %q stdout: %w", c.path, err)
	}
	if set.n == 0 && set.err == nil {
		return fmt.Errorf("script %q returned no numeric values", c.path)
	}

	return set.err
}

// mergeEnvironment builds command environment with overrides from config.
// Params: overrides key-value map.
// Returns: process environment slice.
func mergeEnvironment(overrides map[string]string) []string {
	out := make([]string, 0, len(os.Environ())+len(overrides))
	out = append(out, os.Environ()...)

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		out = append(out, key+"="+overrides[key])
	}

	return out
}
