package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel       = "info"
	defaultLogFormat      = "line"
	defaultInterval       = 15 * time.Second
	defaultHTTPTimeout    = 5 * time.Second
	defaultScriptTimeout  = 10 * time.Second
	defaultPortTimeout    = time.Second
	defaultPortHost       = "127.0.0.1"
	defaultDebugListen    = "127.0.0.1:6060"
	defaultHTTPFormat     = "json"
	defaultSinkType       = SinkTypeLog
	minCollectInterval    = time.Second
	maxPortNumber         = 65535
	tagNulCharacter       = "\x00"
	httpSectionPathRoot   = "metrics.http"
	scriptSectionPathRoot = "metrics.script"
)

// Supported [[sink]] types.
const (
	SinkTypeLog   = "log"
	SinkTypeLine  = "line"
	SinkTypeProto = "proto"

	// StdoutSinkPath selects standard output for a line sink.
	StdoutSinkPath = "-"
)

// Duration wraps time.Duration for TOML parsing.
// Params: text duration string (e.g. "5s", "1m").
// Returns: parse error on invalid duration.
type Duration struct {
	time.Duration
}

// UnmarshalText parses TOML duration values.
// Params: text is raw duration bytes from TOML.
// Returns: error when value is not a valid Go duration.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root agent configuration.
// Params: TOML document sections.
// Returns: validated runtime configuration.
type Config struct {
	Global  GlobalConfig  `toml:"global"`
	Log     LogConfig     `toml:"log"`
	Debug   DebugConfig   `toml:"debug"`
	Agent   AgentConfig   `toml:"agent"`
	Sink    []SinkConfig  `toml:"sink"`
	Metrics MetricsConfig `toml:"metrics"`
}

// GlobalConfig contains attributes shared by every reported sample.
// Params: host name, metric name prefix, and static tags.
// Returns: global settings for all collectors.
type GlobalConfig struct {
	Host   string   `toml:"host"`
	Prefix string   `toml:"prefix"`
	Tags   []string `toml:"tags"`
}

// LogConfig contains console/file logging configuration.
// Params: console and file sink options.
// Returns: logger sink settings.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink options from TOML.
// Returns: sink setup.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// DebugConfig defines the optional debug HTTP listener.
// Params: enabled flag, listen address, and which handlers to mount.
// Returns: debug listener settings.
type DebugConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
	Pprof   *bool  `toml:"pprof"`
	Metrics *bool  `toml:"metrics"`
}

// PprofEnabled reports whether /debug/pprof handlers are mounted.
func (d DebugConfig) PprofEnabled() bool {
	return d.Pprof == nil || *d.Pprof
}

// MetricsEnabled reports whether the agent self-metrics handler is mounted.
func (d DebugConfig) MetricsEnabled() bool {
	return d.Metrics == nil || *d.Metrics
}

// AgentConfig holds collection defaults shared by every worker.
// Params: default interval and metric name keep/drop wildcards.
// Returns: agent defaults.
type AgentConfig struct {
	Interval Duration `toml:"interval"`
	Filter   []string `toml:"filter"`
	Drop     []string `toml:"drop"`
}

// SinkConfig defines one destination for reported samples.
// Params: type log|line|proto and optional path ("-" or empty is stdout for line).
// Returns: one sink runtime config.
type SinkConfig struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	Path string `toml:"path"`
}

// MetricsConfig lists collector instances by kind.
// Params: per-kind worker definitions.
// Returns: collector definitions.
type MetricsConfig struct {
	CPU     []MetricWorkerConfig            `toml:"cpu"`
	RAM     []MetricWorkerConfig            `toml:"ram"`
	SWAP    []MetricWorkerConfig            `toml:"swap"`
	DISK    []MetricWorkerConfig            `toml:"disk"`
	NET     []MetricWorkerConfig            `toml:"net"`
	FS      []MetricWorkerConfig            `toml:"fs"`
	Kernel  []MetricWorkerConfig            `toml:"kernel"`
	Process []ProcessWorkerConfig           `toml:"process"`
	Port    []PortWorkerConfig              `toml:"port"`
	HTTP    map[string][]HTTPWorkerConfig   `toml:"http"`
	Script  map[string][]ScriptWorkerConfig `toml:"script"`
}

// WorkerCounts reports how many collector instances each section declares.
// HTTP and script kinds are keyed as "http.<kind>" and "script.<kind>".
// Sections without instances are omitted.
func (c *Config) WorkerCounts() map[string]int {
	counts := map[string]int{}
	add := func(section string, n int) {
		if n > 0 {
			counts[section] = n
		}
	}

	m := c.Metrics
	add("cpu", len(m.CPU))
	add("ram", len(m.RAM))
	add("swap", len(m.SWAP))
	add("disk", len(m.DISK))
	add("net", len(m.NET))
	add("fs", len(m.FS))
	add("kernel", len(m.Kernel))
	add("process", len(m.Process))
	add("port", len(m.Port))
	for kind, workers := range m.HTTP {
		add("http."+kind, len(workers))
	}
	for kind, workers := range m.Script {
		add("script."+kind, len(workers))
	}
	return counts
}

// MetricWorkerConfig defines one built-in collector instance.
// Params: optional name, interval override, metric name filters, and cpu per-core flag.
// Returns: one worker runtime config.
type MetricWorkerConfig struct {
	Name     string   `toml:"name"`
	Interval Duration `toml:"interval"`
	Filter   []string `toml:"filter"`
	Drop     []string `toml:"drop"`
	PerCore  bool     `toml:"per_core"`
}

// ProcessWorkerConfig defines one process collector instance.
// Params: schedule/filter options and process name wildcards to aggregate.
// Returns: process worker runtime config.
type ProcessWorkerConfig struct {
	Name     string   `toml:"name"`
	Interval Duration `toml:"interval"`
	Filter   []string `toml:"filter"`
	Drop     []string `toml:"drop"`
	Names    []string `toml:"names"`
}

// PortWorkerConfig defines one TCP port check instance.
// Params: schedule/filter options, host, ports, and dial timeout.
// Returns: port worker runtime config.
type PortWorkerConfig struct {
	Name     string   `toml:"name"`
	Interval Duration `toml:"interval"`
	Filter   []string `toml:"filter"`
	Drop     []string `toml:"drop"`
	Host     string   `toml:"host"`
	Ports    []int    `toml:"ports"`
	Timeout  Duration `toml:"timeout"`
}

// HTTPWorkerConfig defines one HTTP scrape instance.
// Params: schedule/filter options and HTTP GET settings.
// Returns: http worker runtime config.
type HTTPWorkerConfig struct {
	Name     string   `toml:"name"`
	Interval Duration `toml:"interval"`
	Filter   []string `toml:"filter"`
	Drop     []string `toml:"drop"`
	URL      string   `toml:"url"`
	Format   string   `toml:"format"`
	Prefix   string   `toml:"prefix"`
	Counters []string `toml:"counters"`
	Timeout  Duration `toml:"timeout"`
}

// ScriptWorkerConfig defines one external check command instance.
// Params: schedule/filter options, command path/args, env overrides, and output parsing.
// Returns: script worker runtime config.
type ScriptWorkerConfig struct {
	Name     string            `toml:"name"`
	Interval Duration          `toml:"interval"`
	Filter   []string          `toml:"filter"`
	Drop     []string          `toml:"drop"`
	Path     string            `toml:"path"`
	Args     []string          `toml:"args"`
	Env      map[string]string `toml:"env"`
	Format   string            `toml:"format"`
	Prefix   string            `toml:"prefix"`
	Counters []string          `toml:"counters"`
	Timeout  Duration          `toml:"timeout"`
}

// Load reads, expands, validates, and returns config from path.
// Params: path to TOML config file or directory with *.toml files.
// Returns: validated config pointer or error.
func Load(path string) (*Config, error) {
	raw, err := readConfigSource(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode TOML %q: %w", path, err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigSource reads one TOML file or concatenates *.toml files from directory.
// Params: path to config file or directory.
// Returns: raw TOML bytes or error.
func readConfigSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}

	if !info.IsDir() {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", path, readErr)
		}
		return raw, nil
	}

	return readConfigDir(path)
}

// readConfigDir concatenates config snippets from one directory.
// Params: path to directory that contains *.toml files.
// Returns: concatenated TOML content or error.
func readConfigDir(path string) ([]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("read config dir %q: no *.toml files", path)
	}

	var builder strings.Builder
	for _, name := range files {
		filePath := filepath.Join(path, name)
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", filePath, readErr)
		}
		builder.Write(raw)
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	return []byte(builder.String()), nil
}

// applyDefaults fills defaults for optional configuration fields.
// Params: receiver config pointer.
// Returns: error if defaulting needs host lookup and it fails.
func (c *Config) applyDefaults() error {
	c.Log.Console.Level = lowerOrDefault(c.Log.Console.Level, defaultLogLevel)
	c.Log.Console.Format = lowerOrDefault(c.Log.Console.Format, defaultLogFormat)
	c.Log.File.Level = lowerOrDefault(c.Log.File.Level, defaultLogLevel)
	c.Log.File.Format = lowerOrDefault(c.Log.File.Format, "json")

	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		c.Log.Console.Enabled = true
	}

	if strings.TrimSpace(c.Global.Host) == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve hostname: %w", err)
		}
		c.Global.Host = host
	}
	c.Global.Host = strings.TrimSpace(c.Global.Host)
	c.Global.Prefix = strings.TrimSpace(c.Global.Prefix)

	if c.Agent.Interval.Duration == 0 {
		c.Agent.Interval.Duration = defaultInterval
	}
	if c.Debug.Enabled && strings.TrimSpace(c.Debug.Listen) == "" {
		c.Debug.Listen = defaultDebugListen
	}

	if len(c.Sink) == 0 {
		c.Sink = []SinkConfig{{Type: defaultSinkType}}
	}
	for idx := range c.Sink {
		c.Sink[idx].Type = lowerOrDefault(c.Sink[idx].Type, defaultSinkType)
		c.Sink[idx].Path = strings.TrimSpace(c.Sink[idx].Path)
		if c.Sink[idx].Type == SinkTypeLine && c.Sink[idx].Path == "" {
			c.Sink[idx].Path = StdoutSinkPath
		}
	}

	for idx := range c.Metrics.Port {
		if strings.TrimSpace(c.Metrics.Port[idx].Host) == "" {
			c.Metrics.Port[idx].Host = defaultPortHost
		}
		if c.Metrics.Port[idx].Timeout.Duration == 0 {
			c.Metrics.Port[idx].Timeout.Duration = defaultPortTimeout
		}
	}

	applyNamedWorkerDefaults(c.Metrics.HTTP, applyHTTPWorkerDefaults)
	applyNamedWorkerDefaults(c.Metrics.Script, applyScriptWorkerDefaults)

	return nil
}

// validate checks config consistency and required fields.
// Params: receiver config pointer.
// Returns: validation error for invalid or incomplete config.
func (c *Config) validate() error {
	if c.Global.Host == "" {
		return fmt.Errorf("global.host resolved to empty value")
	}
	if err := validateTagsField("global.tags", c.Global.Tags); err != nil {
		return err
	}

	if err := validateSink("log.console", c.Log.Console, false); err != nil {
		return err
	}
	if err := validateSink("log.file", c.Log.File, true); err != nil {
		return err
	}
	if err := validateDebugConfig("debug", c.Debug); err != nil {
		return err
	}

	if err := validateIntervalField("agent.interval", c.Agent.Interval.Duration, true); err != nil {
		return err
	}
	if err := validateMasksField("agent", c.Agent.Filter, c.Agent.Drop); err != nil {
		return err
	}

	for idx, sink := range c.Sink {
		path := fmt.Sprintf("sink[%d]", idx)
		switch sink.Type {
		case SinkTypeLog, SinkTypeLine:
		case SinkTypeProto:
			if sink.Path == "" {
				return fmt.Errorf("%s.path is required for proto sink", path)
			}
		default:
			return fmt.Errorf("%s.type must be one of: log, line, proto", path)
		}
	}

	builtIn := []struct {
		path    string
		workers []MetricWorkerConfig
	}{
		{path: "metrics.cpu", workers: c.Metrics.CPU},
		{path: "metrics.ram", workers: c.Metrics.RAM},
		{path: "metrics.swap", workers: c.Metrics.SWAP},
		{path: "metrics.disk", workers: c.Metrics.DISK},
		{path: "metrics.net", workers: c.Metrics.NET},
		{path: "metrics.fs", workers: c.Metrics.FS},
		{path: "metrics.kernel", workers: c.Metrics.Kernel},
	}
	for _, group := range builtIn {
		if err := validateMetricWorkers(group.path, group.workers); err != nil {
			return err
		}
	}
	if err := validateProcessWorkers("metrics.process", c.Metrics.Process); err != nil {
		return err
	}
	if err := validatePortWorkers("metrics.port", c.Metrics.Port); err != nil {
		return err
	}
	if err := validateHTTPWorkers(httpSectionPathRoot, c.Metrics.HTTP); err != nil {
		return err
	}
	if err := validateScriptWorkers(scriptSectionPathRoot, c.Metrics.Script); err != nil {
		return err
	}

	return nil
}

// validateSink validates one logging sink configuration.
// Params: name is sink path for errors; sink is sink config; requirePath means path required when enabled.
// Returns: validation error or nil.
func validateSink(name string, sink LogSinkConfig, requirePath bool) error {
	if sink.Enabled && requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when sink is enabled", name)
	}

	if err := validateLogLevel(sink.Level); err != nil {
		return fmt.Errorf("%s.level: %w", name, err)
	}
	if err := validateLogFormat(sink.Format); err != nil {
		return fmt.Errorf("%s.format: %w", name, err)
	}

	return nil
}

// validateLogLevel validates known log levels.
// Params: level is lower-case level name.
// Returns: error when level is unsupported.
func validateLogLevel(level string) error {
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "info", "warn", "error", "panic", "debug":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", level)
	}
}

// validateLogFormat validates supported sink formats.
// Params: format is lower-case format name.
// Returns: error when format is unsupported.
func validateLogFormat(format string) error {
	switch strings.TrimSpace(strings.ToLower(format)) {
	case "line", "json":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", format)
	}
}

// validateDebugConfig validates optional debug endpoint settings.
// Params: path is config path prefix; cfg debug section.
// Returns: validation error for invalid listen endpoint.
func validateDebugConfig(path string, cfg DebugConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("%s.listen cannot be empty when enabled", path)
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("%s.listen must be host:port: %w", path, err)
	}
	if !cfg.PprofEnabled() && !cfg.MetricsEnabled() {
		return fmt.Errorf("%s requires pprof or metrics when enabled", path)
	}
	return nil
}

// validateIntervalField validates one collection interval.
// Params: fieldPath full config field path; value interval; required rejects zero.
// Returns: validation error or nil.
func validateIntervalField(fieldPath string, value time.Duration, required bool) error {
	if value < 0 {
		return fmt.Errorf("%s must be >= 0", fieldPath)
	}
	if value == 0 {
		if required {
			return fmt.Errorf("%s must be > 0", fieldPath)
		}
		return nil
	}
	if value < minCollectInterval {
		return fmt.Errorf("%s must be >= %s", fieldPath, minCollectInterval)
	}
	return nil
}

// validateMasksField rejects blank metric name wildcards.
// Params: path config path; filter keep masks; drop drop masks.
// Returns: validation error or nil.
func validateMasksField(path string, filter, drop []string) error {
	for idx, mask := range filter {
		if strings.TrimSpace(mask) == "" {
			return fmt.Errorf("%s.filter[%d] cannot be empty", path, idx)
		}
	}
	for idx, mask := range drop {
		if strings.TrimSpace(mask) == "" {
			return fmt.Errorf("%s.drop[%d] cannot be empty", path, idx)
		}
	}
	return nil
}

// validateTagsField rejects tags the sample store would refuse.
// Params: fieldPath config path; tags tag list.
// Returns: validation error or nil.
func validateTagsField(fieldPath string, tags []string) error {
	for idx, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%s[%d] cannot be empty", fieldPath, idx)
		}
		if strings.Contains(tag, tagNulCharacter) {
			return fmt.Errorf("%s[%d] contains NUL character", fieldPath, idx)
		}
	}
	return nil
}

// validateWorkerCommon validates interval and filter fields shared by all workers.
// Params: workerPath worker config path; interval override; filter/drop masks.
// Returns: validation error or nil.
func validateWorkerCommon(workerPath string, interval time.Duration, filter, drop []string) error {
	if err := validateIntervalField(workerPath+".interval", interval, false); err != nil {
		return err
	}
	return validateMasksField(workerPath, filter, drop)
}

// validateMetricWorkers validates worker sections for one built-in collector type.
// Params: path is config path; workers are per-instance definitions.
// Returns: validation error for invalid values.
func validateMetricWorkers(path string, workers []MetricWorkerConfig) error {
	for idx, worker := range workers {
		workerPath := fmt.Sprintf("%s[%d]", path, idx)
		if err := validateWorkerCommon(workerPath, worker.Interval.Duration, worker.Filter, worker.Drop); err != nil {
			return err
		}
	}
	return nil
}

// validateProcessWorkers validates process worker sections.
// Params: path is config path; workers are process worker definitions.
// Returns: validation error for invalid values.
func validateProcessWorkers(path string, workers []ProcessWorkerConfig) error {
	for idx, worker := range workers {
		workerPath := fmt.Sprintf("%s[%d]", path, idx)
		if err := validateWorkerCommon(workerPath, worker.Interval.Duration, worker.Filter, worker.Drop); err != nil {
			return err
		}
		for nameIdx, name := range worker.Names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("%s.names[%d] cannot be empty", workerPath, nameIdx)
			}
		}
	}
	return nil
}

// validatePortWorkers validates port check sections.
// Params: path is config path; workers are port worker definitions.
// Returns: validation error for invalid values.
func validatePortWorkers(path string, workers []PortWorkerConfig) error {
	for idx, worker := range workers {
		workerPath := fmt.Sprintf("%s[%d]", path, idx)
		if err := validateWorkerCommon(workerPath, worker.Interval.Duration, worker.Filter, worker.Drop); err != nil {
			return err
		}
		if len(worker.Ports) == 0 {
			return fmt.Errorf("%s.ports must contain at least one port", workerPath)
		}
		for portIdx, port := range worker.Ports {
			if port <= 0 || port > maxPortNumber {
				return fmt.Errorf("%s.ports[%d] must be in 1..%d", workerPath, portIdx, maxPortNumber)
			}
		}
		if worker.Timeout.Duration <= 0 {
			return fmt.Errorf("%s.timeout must be > 0", workerPath)
		}
	}
	return nil
}

// validateHTTPWorkers validates HTTP scrape sections and request fields.
// Params: path is config path; workers are definitions grouped by source name.
// Returns: validation error for invalid values.
func validateHTTPWorkers(path string, workers map[string][]HTTPWorkerConfig) error {
	names := SortedNames(workers)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s contains empty source name", path)
		}
		for idx, worker := range workers[name] {
			workerPath := fmt.Sprintf("%s.%s[%d]", path, name, idx)
			if err := validateWorkerCommon(workerPath, worker.Interval.Duration, worker.Filter, worker.Drop); err != nil {
				return err
			}
			if worker.Timeout.Duration <= 0 {
				return fmt.Errorf("%s.timeout must be > 0", workerPath)
			}
			if strings.TrimSpace(worker.URL) == "" {
				return fmt.Errorf("%s.url is required", workerPath)
			}
			if err := validateOutputFields(workerPath, worker.Format, worker.Counters); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateScriptWorkers validates script sections and command fields.
// Params: path is config path; workers are definitions grouped by source name.
// Returns: validation error for invalid values.
func validateScriptWorkers(path string, workers map[string][]ScriptWorkerConfig) error {
	for _, name := range SortedNames(workers) {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s contains empty source name", path)
		}
		for idx, worker := range workers[name] {
			workerPath := fmt.Sprintf("%s.%s[%d]", path, name, idx)
			if err := validateWorkerCommon(workerPath, worker.Interval.Duration, worker.Filter, worker.Drop); err != nil {
				return err
			}
			if worker.Timeout.Duration <= 0 {
				return fmt.Errorf("%s.timeout must be > 0", workerPath)
			}
			if strings.TrimSpace(worker.Path) == "" {
				return fmt.Errorf("%s.path is required", workerPath)
			}
			for key := range worker.Env {
				if strings.TrimSpace(key) == "" || strings.Contains(key, "=") {
					return fmt.Errorf("%s.env contains invalid key %q", workerPath, key)
				}
			}
			if err := validateOutputFields(workerPath, worker.Format, worker.Counters); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateOutputFields checks the parse format and counter masks shared by http and script sections.
func validateOutputFields(workerPath, format string, counters []string) error {
	switch format {
	case "json", "prometheus":
	default:
		return fmt.Errorf("%s.format must be one of: json, prometheus", workerPath)
	}
	for counterIdx, mask := range counters {
		if strings.TrimSpace(mask) == "" {
			return fmt.Errorf("%s.counters[%d] cannot be empty", workerPath, counterIdx)
		}
	}
	return nil
}

// applyNamedWorkerDefaults applies per-worker defaults across all named groups.
// Params: workers map grouped by source name; apply callback for one worker config pointer.
// Returns: none.
func applyNamedWorkerDefaults[T any](workers map[string][]T, apply func(*T)) {
	for name := range workers {
		definitions := workers[name]
		for idx := range definitions {
			apply(&definitions[idx])
		}
		workers[name] = definitions
	}
}

// applyHTTPWorkerDefaults applies defaults shared by http workers.
// Params: worker http worker config pointer.
// Returns: none.
func applyHTTPWorkerDefaults(worker *HTTPWorkerConfig) {
	if worker.Timeout.Duration == 0 {
		worker.Timeout.Duration = defaultHTTPTimeout
	}
	worker.Format = lowerOrDefault(worker.Format, defaultHTTPFormat)
}

// applyScriptWorkerDefaults applies defaults shared by script workers.
// Params: worker script worker config pointer.
// Returns: none.
func applyScriptWorkerDefaults(worker *ScriptWorkerConfig) {
	if worker.Timeout.Duration == 0 {
		worker.Timeout.Duration = defaultScriptTimeout
	}
	worker.Format = lowerOrDefault(worker.Format, defaultHTTPFormat)
}

// SortedNames returns lexicographically sorted names from map keys.
// Params: definitions map keyed by source name.
// Returns: sorted name list.
func SortedNames[T any](definitions map[string][]T) []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lowerOrDefault returns a trimmed lower-case value or default fallback.
// Params: value to normalize; fallback value when empty.
// Returns: normalized value.
func lowerOrDefault(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	return normalized
}
