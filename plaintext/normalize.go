// Package plaintext renders release trains as markup-free text documents.
// The same functions back the on-demand responder and the static
// generator, so both produce byte-identical output.
package plaintext

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Only these six references are decoded, in this order. Each one is
// replaced across the whole string before the next is applied, so
// "&amp;lt;" ends up as "<".
var entities = [...][2]string{
	{"&nbsp;", " "},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
}

// Normalize turns a change entry into plain text. Tags are stripped before
// entities are decoded, so an encoded "&lt;b&gt;" survives as the literal
// text "<b>" instead of being removed as markup.
func Normalize(raw string) string {
	s := tagPattern.ReplaceAllString(raw, "")
	s = DecodeEntities(s)
	return strings.TrimSpace(s)
}

// DecodeEntities decodes the fixed set of named character references.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	for _, e := range entities {
		s = strings.ReplaceAll(s, e[0], e[1])
	}
	return s
}
