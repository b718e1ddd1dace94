package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/orthoatlas/orthoatlas/pkg/types/ortho"
)

// TreeClient queries the phylogenetic tree.
type TreeClient struct {
	client *Client
}

// Search runs a tree query of the given kind (ortho.KindGene,
// ortho.KindSpecies, ortho.KindClade or ortho.KindCommonAncestor).
// limit 0 returns every match.
func (t *TreeClient) Search(ctx context.Context, kind, query string, limit int) ([]ortho.SearchResult, error) {
	if kind == "" {
		return nil, fmt.Errorf("orthoatlas: search kind required")
	}
	params := url.Values{}
	params.Set("kind", kind)
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var results []ortho.SearchResult
	if err := t.client.get(ctx, "/api/v1/tree/search?"+params.Encode(), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// CommonAncestor finds the last common ancestor clade of the named
// species.  Fewer than two resolvable names yield an empty list.
func (t *TreeClient) CommonAncestor(ctx context.Context, species []string) ([]ortho.SearchResult, error) {
	if len(species) == 0 {
		return nil, fmt.Errorf("orthoatlas: species list required")
	}
	body := map[string][]string{"species": species}

	var results []ortho.SearchResult
	if err := t.client.post(ctx, "/api/v1/tree/ancestor", body, &results); err != nil {
		return nil, err
	}
	return results, nil
}
