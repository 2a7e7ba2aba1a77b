package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hostagent/internal/match"
)

const (
	// HTTPFormatJSON flattens a JSON document into dotted metric names.
	HTTPFormatJSON = "json"
	// HTTPFormatPrometheus parses Prometheus text exposition.
	HTTPFormatPrometheus = "prometheus"

	// maxHTTPBodyBytes bounds one scraped response.
	maxHTTPBodyBytes = 16 << 20
)

// HTTPClientOptions describes how one HTTP source is scraped and named.
// Params: Format json|prometheus; Prefix prepended to every name; Counters
// wildcards selecting JSON leaves that are cumulative; Timeout per request.
// Returns: collector options.
type HTTPClientOptions struct {
	Format   string
	Prefix   string
	Counters []string
	Timeout  time.Duration
}

// HTTPClientCollector scrapes a third-party service endpoint over HTTP GET
// (RabbitMQ/Mongo-style JSON status pages or Prometheus exporters).
// Params: collector name, URL, and options.
// Returns: HTTP collector instance.
type HTTPClientCollector struct {
	name     string
	url      string
	client   *http.Client
	format   string
	prefix   string
	counters match.Patterns
	labels   Labels
	now      func() time.Time
}

// NewHTTPClientCollector creates an HTTP collector.
// Params: name logical collector name; url GET endpoint; options parsing/naming; labels static attributes.
// Returns: configured HTTP collector.
func NewHTTPClientCollector(name, url string, options HTTPClientOptions, labels Labels) *HTTPClientCollector {
	format := strings.ToLower(strings.TrimSpace(options.Format))
	if format == "" {
		format = HTTPFormatJSON
	}

	return &HTTPClientCollector{
		name:     strings.TrimSpace(name),
		url:      strings.TrimSpace(url),
		client:   &http.Client{Timeout: options.Timeout},
		format:   format,
		prefix:   strings.TrimSpace(options.Prefix),
		counters: match.Compile(options.Counters),
		labels:   labels,
		now:      time.Now,
	}
}

// Name returns logical collector name.
func (c *HTTPClientCollector) Name() string {
	return c.name
}

// Collect fetches the endpoint and records every numeric reading.
// Params: ctx for cancellation; rec destination store.
// Returns: HTTP, parse, or first rejected sample error.
func (c *HTTPClientCollector) Collect(ctx context.Context, rec Recorder) error {
	if c.url == "" {
		return fmt.Errorf("url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		bodyText := strings.TrimSpace(string(body))
		if bodyText == "" {
			return fmt.Errorf("GET %s: unexpected status %s", c.url, resp.Status)
		}
		return fmt.Errorf("GET %s: unexpected status %s: %s", c.url, resp.Status, bodyText)
	}

	body := io.LimitReader(resp.Body, maxHTTPBodyBytes)
	set := &recordSet{rec: rec}
	now := c.now()

	switch c.format {
	case HTTPFormatPrometheus:
		err = recordPrometheusText(body, c.prefix, c.labels, now, set)
	default:
		err = recordJSONDocument(body, c.prefix, c.counters, c.labels, now, set)
	}
	if err != nil {
		return fmt.Errorf("parse %s response: %w", c.format, err)
	}
	if set.n == 0 && set.err == nil {
		return fmt.Errorf("GET %s: no numeric values in response", c.url)
	}

	return set.err
}
