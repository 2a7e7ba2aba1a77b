package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"hostagent/internal/config"
)

// LevelPanic is the most severe level; it is logged and never panics.
const LevelPanic = slog.LevelError + 4

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
	ansiGray    = "\x1b[90m"
)

// New builds the agent logger from console/file sink settings.
// Params: cfg validated log section.
// Returns: logger, close function for file sinks, and open error.
func New(cfg config.LogConfig) (*slog.Logger, func(), error) {
	handlers := make([]slog.Handler, 0, 2)
	closers := make([]io.Closer, 0, 1)

	if cfg.Console.Enabled {
		var out io.Writer = os.Stderr
		if cfg.Console.Format == "line" {
			out = &colorLineWriter{dst: os.Stderr}
		}
		handlers = append(handlers, newHandler(out, cfg.Console))
	}

	if cfg.File.Enabled {
		file, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", cfg.File.Path, err)
		}
		closers = append(closers, file)
		handlers = append(handlers, newHandler(file, cfg.File))
	}

	closeFn := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closeFn, nil
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeFn, nil
	}
	return slog.New(fanoutHandler(handlers)), closeFn, nil
}

// ParseLevel maps a config level name to a slog level.
// Params: level one of debug, info, warn, error, panic.
// Returns: slog level and error for unknown names.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "panic":
		return LevelPanic, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level %q", level)
	}
}

func newHandler(out io.Writer, sink config.LogSinkConfig) slog.Handler {
	level, err := ParseLevel(sink.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelName,
	}
	if sink.Format == "json" {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// replaceLevelName renders LevelPanic as PANIC instead of ERROR+4.
func replaceLevelName(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level >= LevelPanic {
		attr.Value = slog.StringValue("PANIC")
	}
	return attr
}

// fanoutHandler dispatches each record to every child handler.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, child := range h {
		if !child.Enabled(ctx, record.Level) {
			continue
		}
		if err := child.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for idx, child := range h {
		out[idx] = child.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for idx, child := range h {
		out[idx] = child.WithGroup(name)
	}
	return out
}

// colorLineWriter paints slog text lines for terminals: the whole line takes
// the level color and attribute values are highlighted by token type.
// Lines without a level attribute pass through unchanged.
type colorLineWriter struct {
	dst io.Writer
}

// Write colors one formatted log line.
// Params: p one line produced by slog.TextHandler.
// Returns: len(p) on success to satisfy handler expectations.
func (w *colorLineWriter) Write(p []byte) (int, error) {
	line := p
	newline := bytes.HasSuffix(line, []byte("\n"))
	if newline {
		line = line[:len(line)-1]
	}

	base := levelColor(line)
	if base == "" {
		if _, err := w.dst.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	var out bytes.Buffer
	out.Grow(len(p) + 64)
	out.WriteString(base)
	highlightValues(&out, line, base)
	out.WriteString(ansiReset)
	if newline {
		out.WriteByte('\n')
	}

	if _, err := w.dst.Write(out.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// levelColor picks the base color from the level=<LEVEL> attribute.
func levelColor(line []byte) string {
	idx := bytes.Index(line, []byte("level="))
	if idx < 0 {
		return ""
	}
	rest := line[idx+len("level="):]
	switch {
	case bytes.HasPrefix(rest, []byte("DEBUG")):
		return ansiGray
	case bytes.HasPrefix(rest, []byte("INFO")):
		return ansiBlue
	case bytes.HasPrefix(rest, []byte("WARN")):
		return ansiMagenta
	case bytes.HasPrefix(rest, []byte("ERROR")), bytes.HasPrefix(rest, []byte("PANIC")):
		return ansiRed
	default:
		return ""
	}
}

// highlightValues copies line into out and wraps attribute values: quoted
// strings green, IP addresses cyan, numbers yellow.
func highlightValues(out *bytes.Buffer, line []byte, base string) {
	for pos := 0; pos < len(line); {
		eq := bytes.IndexByte(line[pos:], '=')
		if eq < 0 {
			out.Write(line[pos:])
			return
		}
		out.Write(line[pos : pos+eq+1])
		pos += eq + 1

		end := valueEnd(line, pos)
		value := line[pos:end]
		if color := tokenColor(value); color != "" {
			out.WriteString(color)
			out.Write(value)
			out.WriteString(ansiReset)
			out.WriteString(base)
		} else {
			out.Write(value)
		}
		pos = end
	}
}

// valueEnd finds the end of a value starting at pos, honoring quotes.
func valueEnd(line []byte, pos int) int {
	if pos < len(line) && line[pos] == '"' {
		for idx := pos + 1; idx < len(line); idx++ {
			switch line[idx] {
			case '\\':
				idx++
			case '"':
				return idx + 1
			}
		}
		return len(line)
	}
	if space := bytes.IndexByte(line[pos:], ' '); space >= 0 {
		return pos + space
	}
	return len(line)
}

func tokenColor(value []byte) string {
	if len(value) == 0 {
		return ""
	}
	if value[0] == '"' {
		return ansiGreen
	}
	text := string(value)
	if net.ParseIP(text) != nil {
		return ansiCyan
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return ansiYellow
	}
	return ""
}
