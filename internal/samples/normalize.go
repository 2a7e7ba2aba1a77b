package samples

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize turns a raw metric name into a dotted identifier.
// Characters from ",+*-/()[]{}" and whitespace become '_', '_' runs collapse,
// leading/trailing '_' are stripped, and "._" / "_." collapse to ".".
// Params: raw metric name; prefix is prepended with '.' when not empty.
// Returns: normalized metric name.
func Normalize(raw, prefix string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastUnderscore := false
	for idx := 0; idx < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[idx:])
		chunk := raw[idx : idx+size]
		idx += size

		// Invalid UTF-8 bytes are copied as-is rather than replaced with U+FFFD.
		if r != utf8.RuneError || size != 1 {
			if isNameSeparator(r) {
				chunk = "_"
			}
		}
		if chunk == "_" {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteString(chunk)
	}

	name := strings.Trim(b.String(), "_")
	name = strings.ReplaceAll(name, "._", ".")
	name = strings.ReplaceAll(name, "_.", ".")

	if prefix != "" {
		return prefix + "." + name
	}
	return name
}

// NormalizeDevice canonicalizes a device name for use as a key dimension.
// Params: raw device name.
// Returns: trimmed lower-case name with spaces replaced by '_'.
func NormalizeDevice(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func isNameSeparator(r rune) bool {
	switch r {
	case ',', '+', '*', '-', '/', '(', ')', '[', ']', '{', '}':
		return true
	}
	return unicode.IsSpace(r)
}
