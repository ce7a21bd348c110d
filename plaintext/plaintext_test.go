package plaintext

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/webframp/otalog/catalog"
)

// assertText fails with a unified diff when got differs from want.
func assertText(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("text mismatch:\n%s", diff)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"nbsp and br", "Fixed&nbsp;bug<br>", "Fixed bug"},
		{"plain", "Added feature", "Added feature"},
		{"trim", "  padded \n", "padded"},
		{"tags with attributes", `<a href="https://x">link</a> text`, "link text"},
		{"all entities", "&amp; &lt; &gt; &quot; &#39;", `& < > " '`},
		{"encoded tag survives", "use &lt;b&gt; for bold", "use <b> for bold"},
		{"encoded script survives", "&lt;script&gt;alert(1)&lt;/script&gt;", "<script>alert(1)</script>"},
		{"sequential decode", "&amp;lt;", "<"},
		{"unknown entity kept", "&copy; 2024", "&copy; 2024"},
		{"unclosed tag kept", "a < b", "a < b"},
		{"nbsp trimmed", "&nbsp;x&nbsp;", "x"},
		{"empty", "", ""},
		{"only markup", "<p></p>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Fixed&nbsp;bug<br>", "<b>Bold</b> change", "  spaced  ", "plain"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestRender_Example(t *testing.T) {
	releases := []catalog.Release{
		{Date: "2024-01-02", Changes: []string{"Fixed&nbsp;bug<br>", "Added feature"}},
	}
	got, ok := Render(releases)
	if !ok {
		t.Fatal("expected document")
	}
	assertText(t, got, "==================\n2024-01-02\n==================\nFixed bug\nAdded feature")
}

func TestRender_Empty(t *testing.T) {
	if _, ok := Render(nil); ok {
		t.Error("nil releases should render nothing")
	}
	if _, ok := Render([]catalog.Release{}); ok {
		t.Error("empty releases should render nothing")
	}
}

func TestRender_OrderAndSeparator(t *testing.T) {
	releases := []catalog.Release{
		{Date: "2024-01-02", Changes: []string{"middle"}},
		{Date: "2023-12-01", Changes: []string{"oldest"}},
		{Date: "2024-03-15", Changes: []string{"newest"}},
	}
	got, _ := Render(releases)
	want := "==================\n2024-03-15\n==================\nnewest\n\n" +
		"==================\n2024-01-02\n==================\nmiddle\n\n" +
		"==================\n2023-12-01\n==================\noldest"
	assertText(t, got, want)

	if releases[0].Date != "2024-01-02" || releases[2].Date != "2024-03-15" {
		t.Error("Render must not reorder its input")
	}
}

func TestRender_Deterministic(t *testing.T) {
	releases := []catalog.Release{
		{Date: "2024-01-02", Changes: []string{"a"}},
		{Date: "2024-01-03", Changes: []string{"b"}},
	}
	first, _ := Render(releases)
	for i := 0; i < 5; i++ {
		if got, _ := Render(releases); got != first {
			t.Fatalf("render %d differs", i)
		}
	}
}

func TestRender_MissingChanges(t *testing.T) {
	got, ok := Render([]catalog.Release{{Date: "2024-01-02"}})
	if !ok {
		t.Fatal("release without changes still renders")
	}
	assertText(t, got, "==================\n2024-01-02\n==================\n")
}

func TestRender_Indented(t *testing.T) {
	r := Renderer{DateStyle: DateIndented}
	got, ok := r.Render([]catalog.Release{
		{Date: "2024-01-02", Changes: []string{"Fixed&nbsp;bug<br>", "Added feature"}},
		{Date: "2024-03-01", Changes: []string{"<b>newest</b>"}},
	})
	if !ok {
		t.Fatal("expected output")
	}
	want := "==================\n    2024-03-01\n==================\nnewest" +
		"\n\n" +
		"==================\n    2024-01-02\n==================\nFixed bug\nAdded feature"
	assertText(t, got, want)
}

func TestBanner(t *testing.T) {
	if Banner != strings.Repeat("=", 18) {
		t.Errorf("Banner = %q, want 18 '='", Banner)
	}
}

func TestSortReleases_StableTies(t *testing.T) {
	releases := []catalog.Release{
		{Date: "2024-01-02", Changes: []string{"first"}},
		{Date: "2024-01-02", Changes: []string{"second"}},
		{Date: "2024-01-05", Changes: []string{"newest"}},
		{Date: "2024-01-02", Changes: []string{"third"}},
	}
	sorted := SortReleases(releases)
	want := []string{"newest", "first", "second", "third"}
	for i, w := range want {
		if sorted[i].Changes[0] != w {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted[i].Changes[0], w)
		}
	}
}

func TestSortReleases_InvalidDatesLast(t *testing.T) {
	releases := []catalog.Release{
		{Date: "garbage", Changes: []string{"bad1"}},
		{Date: "2023-01-01", Changes: []string{"old"}},
		{Date: "", Changes: []string{"bad2"}},
		{Date: "2024-06-01T12:00:00Z", Changes: []string{"new"}},
	}
	sorted := SortReleases(releases)
	want := []string{"new", "old", "bad1", "bad2"}
	for i, w := range want {
		if sorted[i].Changes[0] != w {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted[i].Changes[0], w)
		}
	}
}

func TestSortReleases_TimeOfDay(t *testing.T) {
	releases := []catalog.Release{
		{Date: "2024-01-02T08:00:00Z", Changes: []string{"morning"}},
		{Date: "2024-01-02T20:00:00Z", Changes: []string{"evening"}},
	}
	sorted := SortReleases(releases)
	if sorted[0].Changes[0] != "evening" {
		t.Errorf("later time of day should come first, got %q", sorted[0].Changes[0])
	}
}

func TestParseDateStyle(t *testing.T) {
	tests := []struct {
		in     string
		want   DateStyle
		wantOK bool
	}{
		{"", DatePlain, true},
		{"plain", DatePlain, true},
		{"Indented", DateIndented, true},
		{"suffixed", "", false},
		{"fancy", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDateStyle(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseDateStyle(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDocument(t *testing.T) {
	store, err := catalog.New([]catalog.Device{
		{Codename: "nabu", Name: "Pad", Systems: []catalog.System{
			{Name: "AviumUI", Versions: []catalog.Version{
				{Version: "avium-16", Releases: []catalog.Release{{Date: "2024-01-02", Changes: []string{"x"}}}},
				{Version: "avium-15", Releases: []catalog.Release{{Date: "2023-01-02", Changes: []string{"y"}}}},
			}},
		}},
		{Codename: "empty", Name: "Empty", Systems: []catalog.System{
			{Name: "AviumUI", Versions: []catalog.Version{{Version: "avium-16"}}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var r Renderer
	if got, ok := r.Document(store, "nabu", AviumTarget); !ok || got != "==================\n2024-01-02\n==================\nx" {
		t.Errorf("Document(nabu) = %q, %v", got, ok)
	}
	if _, ok := r.Document(store, "empty", AviumTarget); ok {
		t.Error("version without releases should not render")
	}
	if _, ok := r.Document(store, "doesnotexist", AviumTarget); ok {
		t.Error("unknown device should not render")
	}
}
