package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/orthoatlas/orthoatlas/pkg/types/ortho"
)

// SpeciesClient reads species metadata.
type SpeciesClient struct {
	client *Client
}

// List returns every species column of the dataset in table order.
func (s *SpeciesClient) List(ctx context.Context) ([]ortho.SpeciesInfo, error) {
	var infos []ortho.SpeciesInfo
	if err := s.client.get(ctx, "/api/v1/species", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Get resolves one species code.  Resolution is total: unknown codes come
// back with a synthesized placeholder name and Fallback set.
func (s *SpeciesClient) Get(ctx context.Context, code string) (*ortho.SpeciesInfo, error) {
	if code == "" {
		return nil, fmt.Errorf("orthoatlas: species code required")
	}
	var info ortho.SpeciesInfo
	if err := s.client.get(ctx, "/api/v1/species/"+url.PathEscape(code), &info); err != nil {
		return nil, err
	}
	return &info, nil
}
