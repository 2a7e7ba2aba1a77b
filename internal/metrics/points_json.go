package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"hostagent/internal/match"
	"hostagent/internal/samples"
)

// recordJSONDocument flattens a JSON document into dotted names and records
// each numeric or boolean leaf. Leaves whose normalized name (without prefix)
// matches counters are counters; the rest are gauges.
// Params: r JSON payload; prefix name prefix; counters wildcard masks; labels/now sample attributes; set destination.
// Returns: decode error.
func recordJSONDocument(
	r io.Reader,
	prefix string,
	counters match.Patterns,
	labels Labels,
	now time.Time,
	set *recordSet,
) error {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var document any
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	attrs := labels.attrs(now, "")
	flattenJSON("", document, func(path string, value any) {
		name := samples.Normalize(path, "")
		if name == "" {
			return
		}
		full := samples.Normalize(name, prefix)
		if counters.MatchAny(name) {
			set.counter(full, value, attrs)
			return
		}
		set.gauge(full, value, attrs)
	})
	return nil
}

// flattenJSON walks objects and arrays depth-first in key order and emits
// numeric leaves; booleans become 0/1 and strings/nulls are skipped.
func flattenJSON(path string, node any, emit func(path string, value any)) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flattenJSON(joinPath(path, key), v[key], emit)
		}
	case []any:
		for idx, item := range v {
			flattenJSON(joinPath(path, strconv.Itoa(idx)), item, emit)
		}
	case json.Number:
		emit(path, v)
	case bool:
		if v {
			emit(path, 1)
		} else {
			emit(path, 0)
		}
	}
}

func joinPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}
