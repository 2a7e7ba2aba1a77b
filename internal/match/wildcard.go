package match

import "strings"

// WildcardPattern is a compiled '*' wildcard matcher.
// Params: internal split parts and anchor flags.
// Returns: reusable matcher for many Match calls.
type WildcardPattern struct {
	parts         []string
	anchoredStart bool
	anchoredEnd   bool
	matchAll      bool
}

// CompileWildcard compiles pattern into reusable wildcard matcher.
// Params: pattern may contain '*' wildcards.
// Returns: compiled matcher and false when pattern is empty.
func CompileWildcard(pattern string) (WildcardPattern, bool) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return WildcardPattern{}, false
	}
	if p == "*" {
		return WildcardPattern{matchAll: true}, true
	}

	return WildcardPattern{
		parts:         strings.Split(p, "*"),
		anchoredStart: !strings.HasPrefix(p, "*"),
		anchoredEnd:   !strings.HasSuffix(p, "*"),
	}, true
}

// Match evaluates compiled wildcard pattern against value.
// Params: value is compared text.
// Returns: true on pattern match.
func (p WildcardPattern) Match(value string) bool {
	if p.matchAll {
		return true
	}
	if len(p.parts) == 0 {
		return false
	}
	if len(p.parts) == 1 {
		return value == p.parts[0]
	}

	cursor := 0
	partIndex := 0

	if p.anchoredStart {
		startPart := p.parts[0]
		if !strings.HasPrefix(value, startPart) {
			return false
		}
		cursor = len(startPart)
		partIndex = 1
	}

	lastIndex := len(p.parts) - 1
	loopLimit := len(p.parts)
	if p.anchoredEnd {
		loopLimit = lastIndex
	}

	for ; partIndex < loopLimit; partIndex++ {
		segment := p.parts[partIndex]
		if segment == "" {
			continue
		}
		offset := strings.Index(value[cursor:], segment)
		if offset < 0 {
			return false
		}
		cursor += offset + len(segment)
	}

	if p.anchoredEnd {
		// The tail must not overlap text already consumed by earlier parts.
		endPart := p.parts[lastIndex]
		return len(value)-cursor >= len(endPart) && strings.HasSuffix(value, endPart)
	}

	return true
}

// Patterns is a compiled list of wildcard patterns.
type Patterns []WildcardPattern

// Compile compiles every non-blank pattern.
// Params: patterns wildcard strings; blank entries are skipped.
// Returns: compiled list (nil when nothing compiled).
func Compile(patterns []string) Patterns {
	var compiled Patterns
	for _, pattern := range patterns {
		parsed, ok := CompileWildcard(pattern)
		if !ok {
			continue
		}
		compiled = append(compiled, parsed)
	}
	return compiled
}

// MatchAny reports whether any pattern matches value.
func (p Patterns) MatchAny(value string) bool {
	for _, pattern := range p {
		if pattern.Match(value) {
			return true
		}
	}
	return false
}

// Filter applies keep/drop wildcard masks to names.
// Params: keep masks (empty keeps everything) and drop masks (applied after keep).
// Returns: reusable name filter.
type Filter struct {
	keep Patterns
	drop Patterns
}

// NewFilter compiles keep/drop masks.
func NewFilter(keep, drop []string) Filter {
	return Filter{keep: Compile(keep), drop: Compile(drop)}
}

// Allow reports whether name passes the keep masks and no drop mask.
// Params: name compared text.
// Returns: true when name should be kept.
func (f Filter) Allow(name string) bool {
	if len(f.keep) > 0 && !f.keep.MatchAny(name) {
		return false
	}
	return !f.drop.MatchAny(name)
}
