package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/webframp/otalog/catalog"
	"github.com/webframp/otalog/db"
	"github.com/webframp/otalog/plaintext"
)

// ContentType is stored with every artifact.
const ContentType = "text/plain; charset=utf-8"

// ArtifactKey returns the location of a device's plain-text artifact.
func ArtifactKey(codename string, target plaintext.Target) string {
	return "plain/device/" + url.PathEscape(codename) + "/" + target.System + "/" + target.Version + "/index.txt"
}

// Outcome describes what a run did for one device.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeEmpty     Outcome = "empty"
	// OutcomeRemoved marks an artifact deleted because its device no longer
	// renders anything or left the catalog.
	OutcomeRemoved Outcome = "removed"
)

// Artifact is the per-device result of a run.
type Artifact struct {
	Codename string
	Key      string
	Digest   string
	Size     int
	Outcome  Outcome
}

// Result summarizes a generation run. Artifacts hold one entry per catalog
// device in codename order, followed by removed artifacts of devices that
// left the catalog.
type Result struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Artifacts []Artifact
}

// Count returns the number of artifacts with outcome o.
func (r Result) Count(o Outcome) int {
	n := 0
	for _, a := range r.Artifacts {
		if a.Outcome == o {
			n++
		}
	}
	return n
}

// Ledger remembers published digests per sink location between runs.
type Ledger interface {
	StartRun(ctx context.Context, runID string) error
	FinishRun(ctx context.Context, runID string, totals db.RunTotals) error
	Digest(ctx context.Context, sink, key string) (string, bool, error)
	RecordArtifact(ctx context.Context, a db.Artifact) error
	ForgetArtifact(ctx context.Context, sink, key string) error
	Artifacts(ctx context.Context, sink string) ([]db.Artifact, error)
}

// Generator renders every device in Store and writes the documents to Sink.
type Generator struct {
	Store    *catalog.Store
	Renderer plaintext.Renderer
	Target   plaintext.Target
	Sink     Sink
	Ledger   Ledger // optional
	Metrics  *Metrics
	Workers  int
	// Force writes every artifact regardless of the ledger.
	Force bool
}

// Run renders all devices in parallel and writes the non-empty documents.
// Devices without renderable content produce no artifact, and one left
// over from an earlier run is deleted.
func (g *Generator) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString(), Started: time.Now()}
	logger := slog.With("run_id", res.RunID)

	if g.Ledger != nil {
		if err := g.Ledger.StartRun(ctx, res.RunID); err != nil {
			return res, err
		}
	}

	devices := g.Store.Devices()
	res.Artifacts = make([]Artifact, len(devices))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1))
	for i, d := range devices {
		eg.Go(func() error {
			a, err := g.publishDevice(egCtx, d.Codename)
			if err != nil {
				return err
			}
			res.Artifacts[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return res, err
	}

	if g.Ledger != nil {
		orphans, err := g.pruneOrphans(ctx)
		if err != nil {
			return res, err
		}
		res.Artifacts = append(res.Artifacts, orphans...)
		if err := g.record(ctx, res); err != nil {
			return res, err
		}
	}

	res.Finished = time.Now()
	logger.Info("generation finished",
		"sink", g.Sink.Driver(),
		"location", g.Sink.Location(),
		"written", res.Count(OutcomeWritten),
		"unchanged", res.Count(OutcomeUnchanged),
		"empty", res.Count(OutcomeEmpty),
		"removed", res.Count(OutcomeRemoved),
		"duration", res.Finished.Sub(res.Started),
	)
	return res, nil
}

func (g *Generator) publishDevice(ctx context.Context, codename string) (Artifact, error) {
	a := Artifact{Codename: codename, Key: ArtifactKey(codename, g.Target)}
	doc, ok := g.Renderer.Document(g.Store, codename, g.Target)
	if !ok {
		removed, err := g.removeIfPresent(ctx, a.Key)
		if err != nil {
			return a, fmt.Errorf("remove %s: %w", codename, err)
		}
		a.Outcome = OutcomeEmpty
		if removed {
			a.Outcome = OutcomeRemoved
			slog.Info("removed stale artifact", "codename", codename, "key", a.Key)
		}
		g.Metrics.observe(a.Outcome)
		return a, nil
	}
	a.Digest = plaintext.Digest(doc)
	a.Size = len(doc)

	if g.Ledger != nil && !g.Force {
		unchanged, err := g.unchanged(ctx, a)
		if err != nil {
			return a, err
		}
		if unchanged {
			a.Outcome = OutcomeUnchanged
			g.Metrics.observe(a.Outcome)
			return a, nil
		}
	}

	if err := g.Sink.Put(ctx, a.Key, []byte(doc), ContentType); err != nil {
		return a, fmt.Errorf("publish %s: %w", codename, err)
	}
	a.Outcome = OutcomeWritten
	g.Metrics.observe(a.Outcome)
	return a, nil
}

// unchanged reports whether the ledger holds a's digest for this sink and
// the artifact is still present there.
func (g *Generator) unchanged(ctx context.Context, a Artifact) (bool, error) {
	prev, found, err := g.Ledger.Digest(ctx, g.Sink.Location(), a.Key)
	if err != nil || !found || prev != a.Digest {
		return false, err
	}
	exists, err := g.Sink.Exists(ctx, a.Key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", a.Key, err)
	}
	if !exists {
		slog.Warn("recorded artifact missing from sink; rewriting", "key", a.Key)
	}
	return exists, nil
}

func (g *Generator) removeIfPresent(ctx context.Context, key string) (bool, error) {
	exists, err := g.Sink.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	return true, g.Sink.Delete(ctx, key)
}

// pruneOrphans deletes artifacts the ledger recorded for devices that are
// no longer in the catalog.
func (g *Generator) pruneOrphans(ctx context.Context) ([]Artifact, error) {
	recorded, err := g.Ledger.Artifacts(ctx, g.Sink.Location())
	if err != nil {
		return nil, err
	}
	var orphans []Artifact
	for _, r := range recorded {
		if _, ok := g.Store.Device(r.Codename); ok {
			continue
		}
		if err := g.Sink.Delete(ctx, r.Key); err != nil {
			return orphans, fmt.Errorf("remove %s: %w", r.Codename, err)
		}
		a := Artifact{Codename: r.Codename, Key: r.Key, Outcome: OutcomeRemoved}
		g.Metrics.observe(a.Outcome)
		slog.Info("removed artifact of retired device", "codename", r.Codename, "key", r.Key)
		orphans = append(orphans, a)
	}
	return orphans, nil
}

// record writes the run's artifacts and totals to the ledger.
func (g *Generator) record(ctx context.Context, res Result) error {
	loc := g.Sink.Location()
	for _, a := range res.Artifacts {
		var err error
		switch a.Outcome {
		case OutcomeWritten:
			err = g.Ledger.RecordArtifact(ctx, db.Artifact{
				Sink:     loc,
				Key:      a.Key,
				Codename: a.Codename,
				Digest:   a.Digest,
				Size:     int64(a.Size),
				RunID:    res.RunID,
			})
		case OutcomeEmpty, OutcomeRemoved:
			err = g.Ledger.ForgetArtifact(ctx, loc, a.Key)
		}
		if err != nil {
			return err
		}
	}
	return g.Ledger.FinishRun(ctx, res.RunID, db.RunTotals{
		Written:   res.Count(OutcomeWritten),
		Unchanged: res.Count(OutcomeUnchanged),
		Empty:     res.Count(OutcomeEmpty),
		Removed:   res.Count(OutcomeRemoved),
	})
}
