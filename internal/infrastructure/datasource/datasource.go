// Package datasource abstracts where dataset artifacts come from.  The
// loader asks a Source for named artifacts (the orthogroup table, the
// species metadata, the tree) and never cares whether they live on a local
// filesystem or in an object store.
package datasource

import (
	"context"
	"io"
)

// Source fetches dataset artifacts by name.
type Source interface {
	// Fetch opens the named artifact for reading.  The caller owns the
	// returned reader and must close it.
	Fetch(ctx context.Context, artifact string) (io.ReadCloser, error)

	// Healthy verifies the backing store is reachable.
	Healthy(ctx context.Context) error

	// Describe returns a short human-readable location, e.g. "fs:./data".
	Describe() string
}
