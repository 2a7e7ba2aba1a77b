package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"hostagent/internal/config"
	"hostagent/internal/samples"
)

func sampleBatch() []samples.Metric {
	return []samples.Metric{
		{
			Name:      "system.disk.reads",
			Timestamp: 1700000010,
			Value:     12.5,
			Attributes: samples.Attributes{
				Tags:       []string{"env:prod", "role:db"},
				HostName:   "web-1",
				DeviceName: "sda",
			},
		},
		{
			Name:      "system.mem.util",
			Timestamp: 1700000010,
			Value:     40,
		},
	}
}

func TestFormatLine(t *testing.T) {
	batch := sampleBatch()

	if got := FormatLine(batch[0]); got != "system.disk.reads 1700000010 12.5 env:prod role:db host_name=web-1 device_name=sda" {
		t.Fatalf("unexpected line: %q", got)
	}
	if got := FormatLine(batch[1]); got != "system.mem.util 1700000010 40" {
		t.Fatalf("unexpected bare line: %q", got)
	}
}

func TestLineSink_Consume(t *testing.T) {
	var out bytes.Buffer
	sink := NewLineSink(&out)

	if err := sink.Consume(context.Background(), sampleBatch()); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected lines: %q", out.String())
	}
	if !strings.HasPrefix(lines[1], "system.mem.util ") {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
}

// TestProtoSink_RoundTrip verifies spool records decode back into the sample layout.
// Params: testing.T for assertions.
// Returns: none.
func TestProtoSink_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.pb")
	sink, err := OpenProtoSink(path, discardLogger())
	if err != nil {
		t.Fatalf("OpenProtoSink() error: %v", err)
	}

	batch := sampleBatch()
	broken := samples.Metric{
		Name:       "system.disk.writes",
		Timestamp:  1700000010,
		Value:      1,
		Attributes: samples.Attributes{Tags: []string{"label:bad\xff"}},
	}
	batch = []samples.Metric{batch[0], broken, batch[1]}
	if err := sink.Consume(context.Background(), batch); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if sink.Skipped() != 1 {
		t.Fatalf("expected one skipped record, got %d", sink.Skipped())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open spool: %v", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var records []*structpb.Struct
	for {
		record := &structpb.Struct{}
		err := protodelim.UnmarshalFrom(reader, record)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read spool record: %v", err)
		}
		records = append(records, record)
	}

	if len(records) != 2 {
		t.Fatalf("unexpected record count: %d", len(records))
	}

	first := records[0].AsMap()
	if first["name"] != "system.disk.reads" || first["value"] != 12.5 {
		t.Fatalf("unexpected first record: %v", first)
	}
	if first["timestamp"] != float64(1700000010) {
		t.Fatalf("unexpected timestamp: %v", first["timestamp"])
	}
	attributes, ok := first["attributes"].(map[string]any)
	if !ok || attributes["device_name"] != "sda" {
		t.Fatalf("unexpected attributes: %v", first["attributes"])
	}

	second := records[1].AsMap()
	if attrs, _ := second["attributes"].(map[string]any); len(attrs) != 0 {
		t.Fatalf("expected empty attributes, got %v", attrs)
	}
}

type failingSink struct {
	calls int
}

func (s *failingSink) Consume(context.Context, []samples.Metric) error {
	s.calls++
	return errors.New("unavailable")
}

func TestMultiSink_ContinuesAfterFailure(t *testing.T) {
	failing := &failingSink{}
	capture := &captureSink{}
	sink := NewMultiSink(failing, nil, capture)

	err := sink.Consume(context.Background(), sampleBatch())
	if err == nil || err.Error() != "unavailable" {
		t.Fatalf("expected first sink error, got %v", err)
	}
	if failing.calls != 1 || len(capture.snapshot()) != 1 {
		t.Fatalf("expected every sink to receive the batch")
	}
}

func TestNewSinksFromConfig(t *testing.T) {
	dir := t.TempDir()
	linePath := filepath.Join(dir, "samples.log")

	sink, err := NewSinksFromConfig([]config.SinkConfig{
		{Type: config.SinkTypeLog},
		{Type: config.SinkTypeLine, Path: linePath},
		{Type: config.SinkTypeProto, Path: filepath.Join(dir, "samples.pb")},
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewSinksFromConfig() error: %v", err)
	}
	if len(sink.sinks) != 3 {
		t.Fatalf("unexpected sink count: %d", len(sink.sinks))
	}

	if err := sink.Consume(context.Background(), sampleBatch()); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	raw, err := os.ReadFile(linePath)
	if err != nil {
		t.Fatalf("read line sink: %v", err)
	}
	if !strings.Contains(string(raw), "system.mem.util 1700000010 40\n") {
		t.Fatalf("unexpected line sink output: %q", raw)
	}

	_, err = NewSinksFromConfig([]config.SinkConfig{
		{Type: config.SinkTypeProto, Path: filepath.Join(dir, "missing", "samples.pb")},
	}, discardLogger())
	if err == nil {
		t.Fatalf("expected open error for missing directory")
	}
}
