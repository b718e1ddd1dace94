package client

import (
	"context"

	"github.com/orthoatlas/orthoatlas/pkg/types/ortho"
)

// DatasetClient inspects and administers the dataset snapshot.
type DatasetClient struct {
	client *Client
}

// Stats returns the active snapshot's counters.
func (d *DatasetClient) Stats(ctx context.Context) (*ortho.DatasetStats, error) {
	var stats ortho.DatasetStats
	if err := d.client.get(ctx, "/api/v1/dataset/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Reload replaces the snapshot from the configured source.  Requires an
// API key (see WithAPIKey); the server answers 403 when reloads are
// disabled and 401 on a bad key.
func (d *DatasetClient) Reload(ctx context.Context) (*ortho.DatasetStats, error) {
	var stats ortho.DatasetStats
	if err := d.client.post(ctx, "/api/v1/dataset/reload", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
