// Package publish pre-materializes plain-text changelogs for every device
// in the catalog.
package publish

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Sink.Get for keys that were never written.
var ErrNotFound = errors.New("artifact not found")

// Sink stores rendered artifacts under slash-separated keys.
type Sink interface {
	Driver() string
	// Location identifies where the sink writes, such as a directory or
	// bucket. Ledger rows are scoped to it.
	Location() string
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// SinkConfig selects and configures a Sink.
type SinkConfig struct {
	Driver      string // fs, s3 or memory
	Dir         string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// OpenSink constructs the configured sink.
func OpenSink(ctx context.Context, cfg SinkConfig) (Sink, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFSSink(cfg.Dir)
	case "memory":
		return NewMemorySink(), nil
	case "s3":
		return NewS3Sink(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	}
	return nil, fmt.Errorf("unknown sink driver %q", cfg.Driver)
}
