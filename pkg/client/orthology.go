package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/orthoatlas/orthoatlas/pkg/types/ortho"
)

// OrthologyClient resolves genes to orthogroups and orthologues.
type OrthologyClient struct {
	client *Client
}

// SearchOrthologues reports every orthologue of geneID across species.
// A gene outside every orthogroup yields Success=false, not an error.
func (o *OrthologyClient) SearchOrthologues(ctx context.Context, geneID string) (*ortho.OrthologueReport, error) {
	if geneID == "" {
		return nil, fmt.Errorf("orthoatlas: gene ID required")
	}
	var report ortho.OrthologueReport
	path := "/api/v1/orthologues/" + url.PathEscape(geneID)
	if err := o.client.get(ctx, path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GeneOrthogroup locates the orthogroup containing geneID.
func (o *OrthologyClient) GeneOrthogroup(ctx context.Context, geneID string) (*ortho.GeneLookup, error) {
	if geneID == "" {
		return nil, fmt.Errorf("orthoatlas: gene ID required")
	}
	var lookup ortho.GeneLookup
	path := "/api/v1/genes/" + url.PathEscape(geneID) + "/orthogroup"
	if err := o.client.get(ctx, path, &lookup); err != nil {
		return nil, err
	}
	return &lookup, nil
}

// OrthogroupGenes lists an orthogroup's genes per species.
func (o *OrthologyClient) OrthogroupGenes(ctx context.Context, orthogroupID string) (*ortho.OrthogroupGenes, error) {
	if orthogroupID == "" {
		return nil, fmt.Errorf("orthoatlas: orthogroup ID required")
	}
	var genes ortho.OrthogroupGenes
	path := "/api/v1/orthogroups/" + url.PathEscape(orthogroupID) + "/genes"
	if err := o.client.get(ctx, path, &genes); err != nil {
		return nil, err
	}
	return &genes, nil
}

// OrthogroupTree returns the species tree annotated for one orthogroup.
func (o *OrthologyClient) OrthogroupTree(ctx context.Context, orthogroupID string) (*ortho.OrthogroupTree, error) {
	if orthogroupID == "" {
		return nil, fmt.Errorf("orthoatlas: orthogroup ID required")
	}
	var tree ortho.OrthogroupTree
	path := "/api/v1/orthogroups/" + url.PathEscape(orthogroupID) + "/tree"
	if err := o.client.get(ctx, path, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}
