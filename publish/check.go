package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/webframp/otalog/catalog"
	"github.com/webframp/otalog/plaintext"
)

// Drift describes one artifact whose published content differs from a
// fresh render.
type Drift struct {
	Codename string
	Key      string
	// Diff is a unified diff from the published to the rendered document.
	Diff string
	// Missing is set when nothing is published at Key.
	Missing bool
	// Stale is set when an artifact is published for a device that no
	// longer renders anything.
	Stale bool
}

// Check renders every device and compares the result with what sink holds.
func Check(ctx context.Context, store *catalog.Store, r plaintext.Renderer, target plaintext.Target, sink Sink) ([]Drift, error) {
	var drifts []Drift
	for _, d := range store.Devices() {
		if err := ctx.Err(); err != nil {
			return drifts, err
		}
		key := ArtifactKey(d.Codename, target)
		doc, ok := r.Document(store, d.Codename, target)

		published, err := sink.Get(ctx, key)
		missing := errors.Is(err, ErrNotFound)
		if err != nil && !missing {
			return drifts, err
		}

		switch {
		case !ok && missing:
		case !ok:
			drifts = append(drifts, Drift{Codename: d.Codename, Key: key, Stale: true})
		case missing:
			drifts = append(drifts, Drift{Codename: d.Codename, Key: key, Missing: true})
		case string(published) != doc:
			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(published)),
				B:        difflib.SplitLines(doc),
				FromFile: "published/" + key,
				ToFile:   "rendered/" + key,
				Context:  2,
			})
			if err != nil {
				return drifts, fmt.Errorf("diff %s: %w", key, err)
			}
			drifts = append(drifts, Drift{Codename: d.Codename, Key: key, Diff: diff})
		}
	}
	return drifts, nil
}
