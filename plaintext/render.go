package plaintext

import (
	"sort"
	"strings"

	"github.com/webframp/otalog/catalog"
)

// Banner frames the date line of every release block.
const Banner = "=================="

// DateStyle selects how the date line of a release block is written. It is
// fixed per deployment.
type DateStyle string

const (
	DatePlain    DateStyle = "plain"
	DateIndented DateStyle = "indented"
)

// DateIndent prefixes the date line under DateIndented.
const DateIndent = "    "

// ParseDateStyle maps a config value to a DateStyle. Unknown values report
// false.
func ParseDateStyle(s string) (DateStyle, bool) {
	switch DateStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", DatePlain:
		return DatePlain, true
	case DateIndented:
		return DateIndented, true
	}
	return "", false
}

// Renderer formats release trains. The zero value renders plain date lines.
type Renderer struct {
	DateStyle DateStyle
}

// Render formats releases newest first. It returns false when there is
// nothing to render. The argument is never modified.
func (r Renderer) Render(releases []catalog.Release) (string, bool) {
	if len(releases) == 0 {
		return "", false
	}
	sorted := SortReleases(releases)
	blocks := make([]string, len(sorted))
	for i, rel := range sorted {
		blocks[i] = r.block(rel)
	}
	return strings.Join(blocks, "\n\n"), true
}

func (r Renderer) block(rel catalog.Release) string {
	lines := make([]string, len(rel.Changes))
	for i, c := range rel.Changes {
		lines[i] = Normalize(c)
	}
	var b strings.Builder
	b.WriteString(Banner)
	b.WriteByte('\n')
	b.WriteString(r.dateLine(rel.Date))
	b.WriteByte('\n')
	b.WriteString(Banner)
	b.WriteByte('\n')
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func (r Renderer) dateLine(date string) string {
	if r.DateStyle == DateIndented {
		return DateIndent + date
	}
	return date
}

// Render formats releases with plain date lines.
func Render(releases []catalog.Release) (string, bool) {
	return Renderer{}.Render(releases)
}

// SortReleases returns a copy of releases ordered by date, newest first.
// Releases with unparsable dates follow every dated release; ties keep
// their input order.
func SortReleases(releases []catalog.Release) []catalog.Release {
	type keyed struct {
		rel   catalog.Release
		unix  int64
		nanos int
		valid bool
	}
	items := make([]keyed, len(releases))
	for i, rel := range releases {
		t, ok := catalog.ParseDate(rel.Date)
		items[i] = keyed{rel: rel, unix: t.Unix(), nanos: t.Nanosecond(), valid: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.valid != b.valid {
			return a.valid
		}
		if !a.valid {
			return false
		}
		if a.unix != b.unix {
			return a.unix > b.unix
		}
		return a.nanos > b.nanos
	})
	out := make([]catalog.Release, len(items))
	for i, it := range items {
		out[i] = it.rel
	}
	return out
}
