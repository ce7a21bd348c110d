package srv

import (
	"html/template"

	"github.com/webframp/otalog/catalog"
	"github.com/webframp/otalog/plaintext"
)

// ReleaseView is one release as shown on the rich changelog page.
type ReleaseView struct {
	Date    string
	Version string
	// Change entries are authored HTML from the catalog repository.
	Changes []template.HTML
}

// releasesToViews orders releases the same way the plain-text renderer does.
func releasesToViews(releases []catalog.Release) []ReleaseView {
	sorted := plaintext.SortReleases(releases)
	views := make([]ReleaseView, len(sorted))
	for i, r := range sorted {
		changes := make([]template.HTML, len(r.Changes))
		for j, c := range r.Changes {
			changes[j] = template.HTML(c)
		}
		views[i] = ReleaseView{
			Date:    r.Date,
			Version: r.Version,
			Changes: changes,
		}
	}
	return views
}

// DeviceSummary is the list representation of a device in the JSON API.
type DeviceSummary struct {
	Codename string   `json:"codename"`
	Name     string   `json:"name"`
	Systems  []string `json:"systems"`
}

func devicesToSummaries(devices []catalog.Device) []DeviceSummary {
	out := make([]DeviceSummary, len(devices))
	for i, d := range devices {
		systems := make([]string, len(d.Systems))
		for j, s := range d.Systems {
			systems[j] = s.Name
		}
		out[i] = DeviceSummary{Codename: d.Codename, Name: d.Name, Systems: systems}
	}
	return out
}

// ChangelogResponse is the JSON form of the changelog page.
type ChangelogResponse struct {
	Codename string            `json:"codename"`
	System   string            `json:"system"`
	Version  string            `json:"version"`
	Label    string            `json:"label"`
	Releases []catalog.Release `json:"releases"`
}
