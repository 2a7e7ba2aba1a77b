package metrics

import (
	"fmt"
	"io"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"hostagent/internal/samples"
)

// recordPrometheusText parses Prometheus text exposition and records each
// series. COUNTER families become counters, GAUGE/UNTYPED become gauges, and
// SUMMARY/HISTOGRAM contribute <name>.sum and <name>.count counters. Labels
// become name:value tags.
// Params: r exposition payload; prefix name prefix; labels/now sample attributes; set destination.
// Returns: parse error.
func recordPrometheusText(r io.Reader, prefix string, labels Labels, now time.Time, set *recordSet) error {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return fmt.Errorf("parse exposition: %w", err)
	}

	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, familyName := range names {
		family := families[familyName]
		name := samples.Normalize(familyName, prefix)

		for _, metric := range family.GetMetric() {
			at := now
			if ms := metric.GetTimestampMs(); ms > 0 {
				at = time.UnixMilli(ms)
			}
			attrs := labels.attrs(at, "", labelTags(metric.GetLabel())...)

			switch family.GetType() {
			case dto.MetricType_COUNTER:
				set.counter(name, metric.GetCounter().GetValue(), attrs)
			case dto.MetricType_GAUGE:
				set.gauge(name, metric.GetGauge().GetValue(), attrs)
			case dto.MetricType_UNTYPED:
				set.gauge(name, metric.GetUntyped().GetValue(), attrs)
			case dto.MetricType_SUMMARY:
				set.counter(name+".sum", metric.GetSummary().GetSampleSum(), attrs)
				set.counter(name+".count", metric.GetSummary().GetSampleCount(), attrs)
			case dto.MetricType_HISTOGRAM:
				set.counter(name+".sum", metric.GetHistogram().GetSampleSum(), attrs)
				set.counter(name+".count", metric.GetHistogram().GetSampleCount(), attrs)
			}
		}
	}
	return nil
}

func labelTags(pairs []*dto.LabelPair) []string {
	if len(pairs) == 0 {
		return nil
	}
	tags := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair.GetValue() == "" {
			continue
		}
		tags = append(tags, pair.GetName()+":"+pair.GetValue())
	}
	return tags
}
