package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/webframp/otalog/db/dbgen"
)

// Artifact is the last published state of one artifact key in one sink.
type Artifact struct {
	Sink        string
	Key         string
	Codename    string
	Digest      string
	Size        int64
	RunID       string
	PublishedAt time.Time
}

// RunTotals are the counters recorded when a run finishes.
type RunTotals struct {
	Written   int
	Unchanged int
	Empty     int
	Removed   int
}

// Ledger records which artifact digests have been published to which sink
// so later runs can skip unchanged uploads.
type Ledger struct {
	db  *sql.DB
	q   *dbgen.Queries
	now func() time.Time
}

// OpenLedger opens (creating if needed) the ledger at path and migrates it.
func OpenLedger(path string) (*Ledger, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db, q: dbgen.New(db), now: time.Now}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun inserts a run row.
func (l *Ledger) StartRun(ctx context.Context, runID string) error {
	err := l.q.StartRun(ctx, dbgen.StartRunParams{ID: runID, StartedAt: l.now().UTC()})
	if err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stamps the run with its totals.
func (l *Ledger) FinishRun(ctx context.Context, runID string, totals RunTotals) error {
	n, err := l.q.FinishRun(ctx, dbgen.FinishRunParams{
		FinishedAt: sql.NullTime{Time: l.now().UTC(), Valid: true},
		Written:    int64(totals.Written),
		Unchanged:  int64(totals.Unchanged),
		Empty:      int64(totals.Empty),
		Removed:    int64(totals.Removed),
		ID:         runID,
	})
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: run not started", runID)
	}
	return nil
}

// Run returns the recorded totals of a run and whether it has finished.
func (l *Ledger) Run(ctx context.Context, runID string) (RunTotals, bool, error) {
	r, err := l.q.GetRun(ctx, runID)
	if err != nil {
		return RunTotals{}, false, fmt.Errorf("get run %s: %w", runID, err)
	}
	totals := RunTotals{
		Written:   int(r.Written),
		Unchanged: int(r.Unchanged),
		Empty:     int(r.Empty),
		Removed:   int(r.Removed),
	}
	return totals, r.FinishedAt.Valid, nil
}

// Digest returns the last digest published to sink under key.
func (l *Ledger) Digest(ctx context.Context, sink, key string) (string, bool, error) {
	digest, err := l.q.GetArtifactDigest(ctx, dbgen.GetArtifactDigestParams{Sink: sink, Key: key})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("lookup digest %s: %w", key, err)
	}
	return digest, true, nil
}

// RecordArtifact upserts the published state of an artifact.
func (l *Ledger) RecordArtifact(ctx context.Context, a Artifact) error {
	if a.PublishedAt.IsZero() {
		a.PublishedAt = l.now()
	}
	err := l.q.UpsertArtifact(ctx, dbgen.UpsertArtifactParams{
		Sink:        a.Sink,
		Key:         a.Key,
		Codename:    a.Codename,
		Digest:      a.Digest,
		Size:        a.Size,
		RunID:       a.RunID,
		PublishedAt: a.PublishedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("record artifact %s: %w", a.Key, err)
	}
	return nil
}

// ForgetArtifact drops the row for key in sink. Missing rows are not an
// error.
func (l *Ledger) ForgetArtifact(ctx context.Context, sink, key string) error {
	if err := l.q.DeleteArtifact(ctx, dbgen.DeleteArtifactParams{Sink: sink, Key: key}); err != nil {
		return fmt.Errorf("forget artifact %s: %w", key, err)
	}
	return nil
}

// Artifacts lists the artifacts recorded for sink ordered by key.
func (l *Ledger) Artifacts(ctx context.Context, sink string) ([]Artifact, error) {
	rows, err := l.q.ListArtifacts(ctx, sink)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	out := make([]Artifact, len(rows))
	for i, r := range rows {
		out[i] = Artifact(r)
	}
	return out, nil
}
