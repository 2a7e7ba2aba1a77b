package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hostagent/internal/config"
)

// TestLoad_ExpandsEnvAndAppliesDefaults verifies env expansion and defaulting.
// Params: testing.T for assertions.
// Returns: none.
func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_PREFIX", "prod")
	t.Setenv("TEST_TEAM", "team:infra")

	path := writeConfig(t, `
[global]
prefix = "${TEST_PREFIX}"
tags = ["${TEST_TEAM}"]
host = ""

[[metrics.cpu]]
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Global.Prefix != "prod" {
		t.Fatalf("unexpected prefix: %q", cfg.Global.Prefix)
	}
	if len(cfg.Global.Tags) != 1 || cfg.Global.Tags[0] != "team:infra" {
		t.Fatalf("unexpected tags: %v", cfg.Global.Tags)
	}
	if cfg.Global.Host == "" {
		t.Fatalf("expected host default")
	}
	if !cfg.Log.Console.Enabled {
		t.Fatalf("expected console logging to be enabled by default")
	}
	if got := cfg.Agent.Interval.Duration; got != 15*time.Second {
		t.Fatalf("unexpected default interval: %v", got)
	}
	if len(cfg.Sink) != 1 || cfg.Sink[0].Type != config.SinkTypeLog {
		t.Fatalf("unexpected default sinks: %+v", cfg.Sink)
	}
}

// TestLoad_ConfigDirMergesTomlFiles verifies config directory loading and file-order merge.
// Params: testing.T for assertions.
// Returns: none.
func TestLoad_ConfigDirMergesTomlFiles(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"00-global.toml": `
[global]
host = "web-1"
`,
		"20-cpu-z.toml": `
[[metrics.cpu]]
name = "cpu-z"
`,
		"11-cpu-a.toml": `
[[metrics.cpu]]
name = "cpu-a"
per_core = true
`,
	})

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load config dir: %v", err)
	}

	if cfg.Global.Host != "web-1" {
		t.Fatalf("unexpected host: %q", cfg.Global.Host)
	}
	if len(cfg.Metrics.CPU) != 2 {
		t.Fatalf("unexpected cpu workers count: %d", len(cfg.Metrics.CPU))
	}
	if cfg.Metrics.CPU[0].Name != "cpu-a" || cfg.Metrics.CPU[1].Name != "cpu-z" {
		t.Fatalf("unexpected cpu worker order: [%q,%q]", cfg.Metrics.CPU[0].Name, cfg.Metrics.CPU[1].Name)
	}
	if !cfg.Metrics.CPU[0].PerCore {
		t.Fatalf("expected per_core on cpu-a")
	}
}

// TestLoad_ConfigDirRejectsWithoutToml verifies config dir validation on directories without toml files.
// Params: testing.T for assertions.
// Returns: none.
func TestLoad_ConfigDirRejectsWithoutToml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a config"), 0o644); err != nil {
		t.Fatalf("write non-toml file: %v", err)
	}

	_, err := config.Load(dir)
	if err == nil {
		t.Fatalf("expected error for config dir without *.toml")
	}
	if !strings.Contains(err.Error(), "no *.toml files") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_ParsesSinkSections(t *testing.T) {
	path := writeConfig(t, `
[[sink]]
type = "LINE"

[[sink]]
type = "proto"
path = "/var/spool/hostagent/samples.pb"

[[sink]]
type = "line"
path = "/var/log/hostagent/samples.log"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.Sink) != 3 {
		t.Fatalf("unexpected sinks count: %d", len(cfg.Sink))
	}
	if cfg.Sink[0].Type != config.SinkTypeLine || cfg.Sink[0].Path != config.StdoutSinkPath {
		t.Fatalf("unexpected stdout sink: %+v", cfg.Sink[0])
	}
	if cfg.Sink[1].Type != config.SinkTypeProto {
		t.Fatalf("unexpected proto sink: %+v", cfg.Sink[1])
	}
}

func TestLoad_RejectsInvalidSinks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown type",
			body: "[[sink]]\ntype = \"kafka\"\n",
			want: "sink[0].type",
		},
		{
			name: "proto without path",
			body: "[[sink]]\ntype = \"proto\"\n",
			want: "sink[0].path",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_RejectsInvalidTagsAndMasks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "blank global tag",
			body: "[global]\ntags = [\"env:prod\", \" \"]\n",
			want: "global.tags[1]",
		},
		{
			name: "blank agent filter",
			body: "[agent]\nfilter = [\"\"]\n",
			want: "agent.filter[0]",
		},
		{
			name: "interval below one second",
			body: "[agent]\ninterval = \"100ms\"\n",
			want: "agent.interval",
		},
		{
			name: "negative worker interval",
			body: "[[metrics.disk]]\ninterval = \"-5s\"\n",
			want: "metrics.disk[0].interval",
		},
		{
			name: "blank process name",
			body: "[[metrics.process]]\nnames = [\"nginx\", \"\"]\n",
			want: "metrics.process[0].names[1]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestLoad_ParsesHTTPSections verifies http scrape sections and their defaults.
// Params: testing.T for assertions.
// Returns: none.
func TestLoad_ParsesHTTPSections(t *testing.T) {
	path := writeConfig(t, `
[[metrics.http.rabbitmq]]
url = "http://127.0.0.1:15672/api/overview"
prefix = "rabbitmq"
counters = ["message_stats.*"]
interval = "30s"

[[metrics.http.node]]
url = "http://127.0.0.1:9100/metrics"
format = "Prometheus"
timeout = "2s"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	rabbit := cfg.Metrics.HTTP["rabbitmq"]
	if len(rabbit) != 1 {
		t.Fatalf("unexpected rabbitmq workers: %+v", rabbit)
	}
	if rabbit[0].Format != "json" || rabbit[0].Timeout.Duration != 5*time.Second {
		t.Fatalf("unexpected rabbitmq defaults: %+v", rabbit[0])
	}
	if rabbit[0].Interval.Duration != 30*time.Second {
		t.Fatalf("unexpected rabbitmq interval: %v", rabbit[0].Interval.Duration)
	}

	node := cfg.Metrics.HTTP["node"]
	if len(node) != 1 || node[0].Format != "prometheus" || node[0].Timeout.Duration != 2*time.Second {
		t.Fatalf("unexpected node worker: %+v", node)
	}

	if got := config.SortedNames(cfg.Metrics.HTTP); len(got) != 2 || got[0] != "node" {
		t.Fatalf("unexpected sorted names: %v", got)
	}
}

func TestLoad_RejectsInvalidHTTPSections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing url",
			body: "[[metrics.http.api]]\nprefix = \"api\"\n",
			want: "metrics.http.api[0].url",
		},
		{
			name: "unknown format",
			body: "[[metrics.http.api]]\nurl = \"http://127.0.0.1/\"\nformat = \"xml\"\n",
			want: "metrics.http.api[0].format",
		},
		{
			name: "negative timeout",
			body: "[[metrics.http.api]]\nurl = \"http://127.0.0.1/\"\ntimeout = \"-1s\"\n",
			want: "metrics.http.api[0].timeout",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_ParsesPortSections(t *testing.T) {
	path := writeConfig(t, `
[[metrics.port]]
ports = [22, 443]
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	port := cfg.Metrics.Port[0]
	if port.Host != "127.0.0.1" || port.Timeout.Duration != time.Second {
		t.Fatalf("unexpected port defaults: %+v", port)
	}

	_, err = config.Load(writeConfig(t, "[[metrics.port]]\nports = [70000]\n"))
	if err == nil || !strings.Contains(err.Error(), "metrics.port[0].ports[0]") {
		t.Fatalf("expected out-of-range port error, got %v", err)
	}
}

func TestLoad_ParsesScriptAndKernelSections(t *testing.T) {
	path := writeConfig(t, `
[[metrics.kernel]]
interval = "5s"

[[metrics.script.pgcheck]]
path = "/usr/local/bin/pgcheck"
args = ["--json"]
counters = ["queries.*"]

[metrics.script.pgcheck.env]
PGHOST = "127.0.0.1"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.Metrics.Kernel) != 1 || cfg.Metrics.Kernel[0].Interval.Duration != 5*time.Second {
		t.Fatalf("unexpected kernel workers: %+v", cfg.Metrics.Kernel)
	}

	script := cfg.Metrics.Script["pgcheck"]
	if len(script) != 1 {
		t.Fatalf("unexpected script workers: %+v", script)
	}
	if script[0].Format != "json" || script[0].Timeout.Duration != 10*time.Second {
		t.Fatalf("unexpected script defaults: %+v", script[0])
	}
	if script[0].Env["PGHOST"] != "127.0.0.1" || len(script[0].Args) != 1 {
		t.Fatalf("unexpected script command fields: %+v", script[0])
	}

	_, err = config.Load(writeConfig(t, "[[metrics.script.check]]\nformat = \"json\"\n"))
	if err == nil || !strings.Contains(err.Error(), "metrics.script.check[0].path") {
		t.Fatalf("expected missing path error, got %v", err)
	}
}

// TestLoad_ParsesDebugConfig verifies debug listener defaults and handler toggles.
// Params: testing.T for assertions.
// Returns: none.
func TestLoad_ParsesDebugConfig(t *testing.T) {
	path := writeConfig(t, `
[debug]
enabled = true
pprof = false
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Debug.Listen != "127.0.0.1:6060" {
		t.Fatalf("unexpected debug listen default: %q", cfg.Debug.Listen)
	}
	if cfg.Debug.PprofEnabled() {
		t.Fatalf("expected pprof to be disabled")
	}
	if !cfg.Debug.MetricsEnabled() {
		t.Fatalf("expected metrics handler to default on")
	}
}

func TestLoad_RejectsInvalidDebugConfig(t *testing.T) {
	path := writeConfig(t, `
[debug]
enabled = true
listen = "localhost"
`)

	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected invalid debug.listen error")
	}

	path = writeConfig(t, `
[debug]
enabled = true
pprof = false
metrics = false
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected error when debug listener has no handlers")
	}
}

func TestLoad_RejectsInvalidLogSinks(t *testing.T) {
	path := writeConfig(t, `
[log.file]
enabled = true
`)
	if _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "log.file.path") {
		t.Fatalf("expected log.file.path error, got %v", err)
	}

	path = writeConfig(t, `
[log.console]
level = "trace"
`)
	if _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "log.console.level") {
		t.Fatalf("expected log.console.level error, got %v", err)
	}
}

// writeConfig creates a temp config file with provided body.
// Params: t test handle; body TOML content.
// Returns: absolute file path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

// writeConfigDir creates a temp config directory populated with provided files.
// Params: t test handle; files map[name]body.
// Returns: absolute directory path.
func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write config file %q: %v", name, err)
		}
	}

	return dir
}

func TestConfig_WorkerCounts(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{
		CPU:  []config.MetricWorkerConfig{{}, {PerCore: true}},
		Port: []config.PortWorkerConfig{{Host: "127.0.0.1", Ports: []int{22}}},
		HTTP: map[string][]config.HTTPWorkerConfig{
			"rabbitmq": {{URL: "http://127.0.0.1:15672/api/overview"}},
			"unused":   nil,
		},
		Script: map[string][]config.ScriptWorkerConfig{"pgcheck": {{Path: "/bin/true"}}},
	}}

	got := cfg.WorkerCounts()
	want := map[string]int{"cpu": 2, "port": 1, "http.rabbitmq": 1, "script.pgcheck": 1}
	if len(got) != len(want) {
		t.Fatalf("unexpected sections: %v", got)
	}
	for section, n := range want {
		if got[section] != n {
			t.Fatalf("unexpected count for %s: %d (all %v)", section, got[section], got)
		}
	}
}
