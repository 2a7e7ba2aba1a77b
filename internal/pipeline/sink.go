package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"hostagent/internal/config"
	"hostagent/internal/samples"
)

// Sink consumes one exported batch of samples.
// Params: context and the batch reported by one worker tick.
// Returns: error if sink cannot process the batch.
type Sink interface {
	Consume(ctx context.Context, batch []samples.Metric) error
}

// LogSink writes exported samples into debug logs.
// Params: logger used for output.
// Returns: debug sink instance.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a debug sink.
// Params: logger instance.
// Returns: sample sink implementation.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Consume logs each sample as compact JSON.
// Params: ctx used for level check; batch exported samples.
// Returns: marshal error when a sample cannot be encoded.
func (s *LogSink) Consume(ctx context.Context, batch []samples.Metric) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}

	for _, metric := range batch {
		payload, err := json.Marshal(metric)
		if err != nil {
			return fmt.Errorf("marshal sample %s: %w", metric.Name, err)
		}
		s.logger.Debug(
			"metric sample",
			slog.String("metric", metric.Name),
			slog.String("payload", string(payload)),
		)
	}

	return nil
}

// LineSink writes one text line per sample:
// <name> <timestamp> <value> [tag ...] [host_name=h] [device_name=d].
type LineSink struct {
	mu  sync.Mutex
	out *bufio.Writer
	dst io.Writer
}

// NewLineSink creates a line sink over dst.
// Params: dst destination writer; the caller owns closing it.
// Returns: line sink instance.
func NewLineSink(dst io.Writer) *LineSink {
	return &LineSink{out: bufio.NewWriter(dst), dst: dst}
}

// Consume writes and flushes one batch.
// Params: ctx unused; batch exported samples.
// Returns: write error.
func (s *LineSink) Consume(_ context.Context, batch []samples.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, metric := range batch {
		if _, err := s.out.WriteString(FormatLine(metric)); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		if err := s.out.WriteByte('\n'); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("flush lines: %w", err)
	}
	return nil
}

// Close closes the destination when it is a closer other than stdout.
func (s *LineSink) Close() error {
	closer, ok := s.dst.(io.Closer)
	if !ok || s.dst == os.Stdout {
		return nil
	}
	return closer.Close()
}

// FormatLine renders one sample in the line protocol.
// Params: metric exported sample.
// Returns: line without trailing newline.
func FormatLine(metric samples.Metric) string {
	var builder strings.Builder
	builder.WriteString(metric.Name)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatInt(metric.Timestamp, 10))
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatFloat(metric.Value, 'f', -1, 64))
	for _, tag := range metric.Attributes.Tags {
		builder.WriteByte(' ')
		builder.WriteString(tag)
	}
	if metric.Attributes.HostName != "" {
		builder.WriteString(" host_name=")
		builder.WriteString(metric.Attributes.HostName)
	}
	if metric.Attributes.DeviceName != "" {
		builder.WriteString(" device_name=")
		builder.WriteString(metric.Attributes.DeviceName)
	}
	return builder.String()
}

// ProtoSink appends samples to a spool file as length-delimited
// google.protobuf.Struct records, one record per sample.
type ProtoSink struct {
	mu      sync.Mutex
	file    *os.File
	out     *bufio.Writer
	logger  *slog.Logger
	skipped int
}

// OpenProtoSink opens (or creates) the spool file in append mode.
// Params: path spool file path; logger reports records that cannot be encoded.
// Returns: proto sink or open error.
func OpenProtoSink(path string, logger *slog.Logger) (*ProtoSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open spool %q: %w", path, err)
	}
	return &ProtoSink{file: file, out: bufio.NewWriter(file), logger: logger}, nil
}

// Consume encodes and appends one batch. A sample that cannot be encoded
// is skipped and counted; the rest of the batch is still written.
// Params: ctx unused; batch exported samples.
// Returns: write error.
func (s *ProtoSink) Consume(_ context.Context, batch []samples.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, metric := range batch {
		record, err := MetricToStruct(metric)
		if err != nil {
			s.skipped++
			if s.logger != nil {
				s.logger.Warn("spool record skipped", slog.String("error", err.Error()))
			}
			continue
		}
		if _, err := protodelim.MarshalTo(s.out, record); err != nil {
			return fmt.Errorf("write spool record: %w", err)
		}
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("flush spool: %w", err)
	}
	return nil
}

// Skipped returns the number of samples that could not be encoded.
func (s *ProtoSink) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Close flushes and closes the spool file.
func (s *ProtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flushErr := s.out.Flush()
	closeErr := s.file.Close()
	return errors.Join(flushErr, closeErr)
}

// MetricToStruct converts one sample to the spool record layout (same
// field names as the JSON form).
// Params: metric exported sample.
// Returns: protobuf Struct or conversion error.
func MetricToStruct(metric samples.Metric) (*structpb.Struct, error) {
	attributes := map[string]any{}
	if len(metric.Attributes.Tags) > 0 {
		tags := make([]any, 0, len(metric.Attributes.Tags))
		for _, tag := range metric.Attributes.Tags {
			tags = append(tags, tag)
		}
		attributes["tags"] = tags
	}
	if metric.Attributes.HostName != "" {
		attributes["host_name"] = metric.Attributes.HostName
	}
	if metric.Attributes.DeviceName != "" {
		attributes["device_name"] = metric.Attributes.DeviceName
	}

	record, err := structpb.NewStruct(map[string]any{
		"name":       metric.Name,
		"timestamp":  metric.Timestamp,
		"value":      metric.Value,
		"attributes": attributes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode sample %s: %w", metric.Name, err)
	}
	return record, nil
}

// MultiSink dispatches one batch to multiple sink implementations.
// Params: sink list.
// Returns: composite sink.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds composite sink from sink list.
// Params: sinks target list.
// Returns: multi sink implementation.
func NewMultiSink(sinks ...Sink) *MultiSink {
	out := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		out = append(out, sink)
	}
	return &MultiSink{sinks: out}
}

// Consume forwards the batch to each child sink.
// Params: ctx consume context; batch exported samples.
// Returns: first error from downstream sinks, if any.
func (s *MultiSink) Consume(ctx context.Context, batch []samples.Metric) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Consume(ctx, batch); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close closes every child sink that holds resources.
// Params: none.
// Returns: joined close errors.
func (s *MultiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		closer, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSinksFromConfig opens every configured [[sink]].
// Params: sinks validated sink sections; logger for log sinks.
// Returns: composite sink or the first open error (already-opened sinks are closed).
func NewSinksFromConfig(sinks []config.SinkConfig, logger *slog.Logger) (*MultiSink, error) {
	opened := make([]Sink, 0, len(sinks))
	cleanup := func() {
		_ = NewMultiSink(opened...).Close()
	}

	for idx, cfg := range sinks {
		switch cfg.Type {
		case config.SinkTypeLog:
			opened = append(opened, NewLogSink(logger))
		case config.SinkTypeLine:
			if cfg.Path == config.StdoutSinkPath {
				opened = append(opened, NewLineSink(os.Stdout))
				continue
			}
			file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				cleanup()
				return nil, fmt.Errorf("open sink[%d] %q: %w", idx, cfg.Path, err)
			}
			opened = append(opened, NewLineSink(file))
		case config.SinkTypeProto:
			sink, err := OpenProtoSink(cfg.Path, logger)
			if err != nil {
				cleanup()
				return nil, fmt.Errorf("open sink[%d]: %w", idx, err)
			}
			opened = append(opened, sink)
		default:
			cleanup()
			return nil, fmt.Errorf("sink[%d]: unsupported type %q", idx, cfg.Type)
		}
	}

	return NewMultiSink(opened...), nil
}
