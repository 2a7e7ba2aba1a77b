package match

import "testing"

func TestWildcardMatch(t *testing.T) {
	cases := []struct {
		pattern string
		value   string
		want    bool
	}{
		{pattern: "*", value: "anything", want: true},
		{pattern: "system.cpu.*", value: "system.cpu.user", want: true},
		{pattern: "system.cpu.*", value: "system.mem.used", want: false},
		{pattern: "*.bytes_*", value: "system.net.bytes_sent", want: true},
		{pattern: "*_total", value: "http_requests_total", want: true},
		{pattern: "*_total", value: "http_requests", want: false},
		{pattern: "ab*ba", value: "aba", want: false},
		{pattern: "ab*ba", value: "abba", want: true},
		{pattern: "exact", value: "exact", want: true},
		{pattern: "exact", value: "exactly", want: false},
		{pattern: "exact", value: "exactexact", want: false},
		{pattern: "exact", value: "inexact", want: false},
		{pattern: "system.cpu.guest", value: "system.cpu.guest", want: true},
		{pattern: "java", value: "javaw", want: false},
		{pattern: "a*", value: "a", want: true},
		{pattern: "*a", value: "a", want: true},
		{pattern: "a*b*c", value: "abc", want: true},
		{pattern: "a*b*c", value: "acb", want: false},
	}

	for _, tc := range cases {
		compiled, ok := CompileWildcard(tc.pattern)
		if !ok {
			t.Fatalf("CompileWildcard(%q) failed", tc.pattern)
		}
		if got := compiled.Match(tc.value); got != tc.want {
			t.Fatalf("%q.Match(%q)=%v want %v", tc.pattern, tc.value, got, tc.want)
		}
	}

	if _, ok := CompileWildcard("  "); ok {
		t.Fatalf("expected blank pattern to be rejected")
	}
}

// TestFilter_KeepAndDrop verifies keep masks apply before drop masks.
// Params: testing.T for assertions.
// Returns: none.
func TestFilter_KeepAndDrop(t *testing.T) {
	filter := NewFilter([]string{"system.net.*"}, []string{"*.drops_*", ""})

	if !filter.Allow("system.net.bytes_sent") {
		t.Fatalf("expected bytes_sent to pass")
	}
	if filter.Allow("system.net.drops_in") {
		t.Fatalf("expected drops_in to be dropped")
	}
	if filter.Allow("system.cpu.user") {
		t.Fatalf("expected cpu metric to fail keep mask")
	}

	exact := NewFilter(nil, []string{"system.cpu.guest"})
	if exact.Allow("system.cpu.guest") {
		t.Fatalf("expected exact drop mask to drop its name")
	}
	if !exact.Allow("system.cpu.guest_nice") {
		t.Fatalf("expected exact drop mask to keep longer names")
	}

	if !(Filter{}).Allow("anything") {
		t.Fatalf("expected empty filter to allow everything")
	}
}
