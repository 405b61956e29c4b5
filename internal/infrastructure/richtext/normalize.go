// Package richtext turns legacy HTML fragments into plain text.
package richtext

import (
	"regexp"
	"strings"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	// Unicode separators such as NBSP and em space count as whitespace, as does the BOM.
	whitespacePattern = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
)

// entities are decoded in order; &amp; goes first so that double-encoded
// entities are unwrapped one level per pass.
var entities = []struct{ from, to string }{
	{"&amp;", "&"},
	{"&nbsp;", " "},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#039;", "'"},
}

// Normalize strips markup from raw and returns plain text. Absent input,
// and input that reduces to nothing, yields absent.
func Normalize(raw *string) *string {
	if raw == nil {
		return nil
	}
	text := NormalizeString(*raw)
	if text == "" {
		return nil
	}
	return &text
}

// NormalizeString is Normalize for non-optional values.
//
// A single pass can expose new markup (an encoded "&lt;b&gt;" decodes into a
// tag), so passes repeat until the text is stable. Every pass that changes
// the text either shortens it or only swaps whitespace characters for spaces,
// so the loop terminates.
func NormalizeString(raw string) string {
	text := raw
	for {
		next := normalizePass(text)
		if next == text {
			return next
		}
		text = next
	}
}

func normalizePass(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	for _, e := range entities {
		s = strings.ReplaceAll(s, e.from, e.to)
	}
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " ")
}
