// Package treesearch provides the application-level service for structural
// queries over the bound phylogenetic tree: gene placement, species and
// clade search, and lowest-common-ancestor resolution. All operations are
// read-only snapshot queries; only a failed dataset load surfaces as an
// error, every other miss is an empty result list.
package treesearch

import (
	"context"
	"strings"
	"time"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/domain/phylotree"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/prometheus"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// Kind selects a search strategy.
type Kind string

const (
	KindGene           Kind = "gene"
	KindSpecies        Kind = "species"
	KindClade          Kind = "clade"
	KindCommonAncestor Kind = "common_ancestor"
)

// ParseKind validates a search kind received from the outside.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindGene:
		return KindGene, nil
	case KindSpecies:
		return KindSpecies, nil
	case KindClade:
		return KindClade, nil
	case KindCommonAncestor:
		return KindCommonAncestor, nil
	default:
		return "", errors.Newf(errors.ErrCodeBadRequest, "unknown search kind %q", s)
	}
}

// Node types reported in search results.
const (
	NodeTypeLeaf     = "leaf"
	NodeTypeInternal = "internal"
)

// cladeMemberLimit caps the member list on clade matches. SpeciesCount still
// reports the true descendant count.
const cladeMemberLimit = 10

// SearchResult describes one matched tree node.
type SearchResult struct {
	NodeName       string   `json:"node_name"`
	NodeType       string   `json:"node_type"`
	DistanceToRoot float64  `json:"distance_to_root"`
	Support        *float64 `json:"support_value,omitempty"`
	SpeciesCount   int      `json:"species_count"`
	GeneCount      int      `json:"gene_count"`
	CladeMembers   []string `json:"clade_members"`
}

// Service defines the tree search operations.
type Service interface {
	// Search dispatches on kind. For KindCommonAncestor the query is a
	// comma-separated list of species names.
	Search(ctx context.Context, kind Kind, query string, maxResults int) ([]SearchResult, error)

	SearchByGene(ctx context.Context, geneID string, maxResults int) ([]SearchResult, error)
	SearchBySpecies(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	SearchByClade(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	FindCommonAncestor(ctx context.Context, speciesNames []string) ([]SearchResult, error)
}

const (
	outcomeHit   = "hit"
	outcomeMiss  = "miss"
	outcomeError = "error"
)

// serviceImpl implements Service on top of the dataset snapshot.
type serviceImpl struct {
	data    *dataset.Service
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// ServiceOption configures the service.
type ServiceOption func(*serviceImpl)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ServiceOption {
	return func(s *serviceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches application metrics.
func WithMetrics(m *prometheus.AppMetrics) ServiceOption {
	return func(s *serviceImpl) { s.metrics = m }
}

// NewService creates the tree search service.
func NewService(data *dataset.Service, opts ...ServiceOption) Service {
	s := &serviceImpl{
		data:   data,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("treesearch")
	return s
}

func (s *serviceImpl) Search(ctx context.Context, kind Kind, query string, maxResults int) ([]SearchResult, error) {
	switch kind {
	case KindGene:
		return s.SearchByGene(ctx, query, maxResults)
	case KindSpecies:
		return s.SearchBySpecies(ctx, query, maxResults)
	case KindClade:
		return s.SearchByClade(ctx, query, maxResults)
	case KindCommonAncestor:
		return s.FindCommonAncestor(ctx, SplitNames(query))
	default:
		return nil, errors.Newf(errors.ErrCodeBadRequest, "unknown search kind %q", kind)
	}
}

// SplitNames splits a comma-separated species-name list, dropping empty
// entries.
func SplitNames(query string) []string {
	parts := strings.Split(query, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// SearchByGene places a gene on the tree: one leaf result per species that
// has genes in the gene's orthogroup, with GeneCount scoped to that
// orthogroup and CladeMembers holding the species' member genes.
func (s *serviceImpl) SearchByGene(ctx context.Context, geneID string, maxResults int) ([]SearchResult, error) {
	start := time.Now()
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		return nil, s.fail(KindGene, start, err)
	}

	results := make([]SearchResult, 0)
	geneID = strings.TrimSpace(geneID)
	if geneID == "" {
		return s.finish(KindGene, start, results), nil
	}

	lookup := snap.Table.FindOrthogroup(geneID)
	if lookup.ViaScan {
		prometheus.RecordIndexFallback(s.metrics, lookup.Found)
	}
	if !lookup.Found {
		s.logger.Debug("gene not in any orthogroup", logging.String("gene", geneID))
		return s.finish(KindGene, start, results), nil
	}

	genes := snap.Table.GenesFor(lookup.OrthogroupID)
	for _, code := range snap.Table.PresentSpecies(lookup.OrthogroupID) {
		leaf, ok := snap.Tree.LeafByCode(code)
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			NodeName:       snap.Tree.DisplayName(leaf),
			NodeType:       NodeTypeLeaf,
			DistanceToRoot: snap.Tree.DistanceToRoot(leaf),
			Support:        supportOf(leaf),
			SpeciesCount:   1,
			GeneCount:      len(genes[code]),
			CladeMembers:   append([]string(nil), genes[code]...),
		})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return s.finish(KindGene, start, results), nil
}

// SearchBySpecies matches the query case-insensitively against each leaf's
// species code and resolved full name. Results follow pre-order encounter
// order; the empty query matches every leaf.
func (s *serviceImpl) SearchBySpecies(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	start := time.Now()
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		return nil, s.fail(KindSpecies, start, err)
	}

	results := make([]SearchResult, 0)
	q := strings.ToLower(strings.TrimSpace(query))
	for _, leaf := range snap.Tree.Leaves() {
		ann, _ := snap.Annotation(leaf)
		if !strings.Contains(strings.ToLower(leaf.Name), q) &&
			!strings.Contains(strings.ToLower(ann.Identity.Name), q) {
			continue
		}
		results = append(results, SearchResult{
			NodeName:       snap.Tree.DisplayName(leaf),
			NodeType:       NodeTypeLeaf,
			DistanceToRoot: snap.Tree.DistanceToRoot(leaf),
			Support:        supportOf(leaf),
			SpeciesCount:   1,
			GeneCount:      ann.GeneTotal,
			CladeMembers:   []string{ann.Identity.Name},
		})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return s.finish(KindSpecies, start, results), nil
}

// SearchByClade matches the query against the space-joined resolved names of
// each internal node's descendant leaves. Member lists are truncated to
// cladeMemberLimit entries.
func (s *serviceImpl) SearchByClade(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	start := time.Now()
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		return nil, s.fail(KindClade, start, err)
	}

	results := make([]SearchResult, 0)
	q := strings.ToLower(strings.TrimSpace(query))
	for _, node := range snap.Tree.Nodes() {
		if node.IsLeaf() {
			continue
		}
		members, geneSum := cladeProfile(snap, node)
		if !strings.Contains(strings.ToLower(strings.Join(members, " ")), q) {
			continue
		}
		speciesCount := len(members)
		if len(members) > cladeMemberLimit {
			members = members[:cladeMemberLimit]
		}
		results = append(results, SearchResult{
			NodeName:       snap.Tree.DisplayName(node),
			NodeType:       NodeTypeInternal,
			DistanceToRoot: snap.Tree.DistanceToRoot(node),
			Support:        supportOf(node),
			SpeciesCount:   speciesCount,
			GeneCount:      geneSum,
			CladeMembers:   members,
		})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return s.finish(KindClade, start, results), nil
}

// FindCommonAncestor resolves each name to the first leaf whose resolved
// full name contains it case-insensitively, then reports the lowest common
// ancestor of the resolved set. Fewer than two distinct resolved leaves is a
// miss, not an error.
func (s *serviceImpl) FindCommonAncestor(ctx context.Context, speciesNames []string) ([]SearchResult, error) {
	start := time.Now()
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		return nil, s.fail(KindCommonAncestor, start, err)
	}

	results := make([]SearchResult, 0)
	seen := make(map[*phylotree.Node]struct{})
	leaves := make([]*phylotree.Node, 0, len(speciesNames))
	for _, name := range speciesNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		leaf := s.resolveLeaf(snap, name)
		if leaf == nil {
			s.logger.Debug("species name did not resolve to a leaf", logging.String("name", name))
			continue
		}
		if _, dup := seen[leaf]; dup {
			continue
		}
		seen[leaf] = struct{}{}
		leaves = append(leaves, leaf)
	}
	if len(leaves) < 2 {
		return s.finish(KindCommonAncestor, start, results), nil
	}

	anc := snap.Tree.CommonAncestor(leaves...)
	if anc == nil {
		return s.finish(KindCommonAncestor, start, results), nil
	}
	members, geneSum := cladeProfile(snap, anc)
	nodeType := NodeTypeInternal
	if anc.IsLeaf() {
		nodeType = NodeTypeLeaf
	}
	results = append(results, SearchResult{
		NodeName:       snap.Tree.DisplayName(anc),
		NodeType:       nodeType,
		DistanceToRoot: snap.Tree.DistanceToRoot(anc),
		Support:        supportOf(anc),
		SpeciesCount:   len(members),
		GeneCount:      geneSum,
		CladeMembers:   members,
	})
	return s.finish(KindCommonAncestor, start, results), nil
}

// resolveLeaf maps a species name to a tree leaf. An exact species-code
// match wins outright so a bare code like "Os" never lands on whichever
// resolved name happens to contain those letters; otherwise the first leaf
// in pre-order whose resolved full name contains the query is taken.
func (s *serviceImpl) resolveLeaf(snap *dataset.Snapshot, name string) *phylotree.Node {
	if leaf, ok := snap.Tree.LeafByCode(name); ok {
		return leaf
	}
	for _, leaf := range snap.Tree.Leaves() {
		if strings.EqualFold(leaf.Name, name) {
			return leaf
		}
	}
	q := strings.ToLower(name)
	for _, leaf := range snap.Tree.Leaves() {
		ann, _ := snap.Annotation(leaf)
		if strings.Contains(strings.ToLower(ann.Identity.Name), q) {
			return leaf
		}
	}
	return nil
}

// cladeProfile collects the resolved names and summed genome-wide gene
// counts of a node's descendant leaves.
func cladeProfile(snap *dataset.Snapshot, n *phylotree.Node) ([]string, int) {
	leaves := snap.Tree.LeavesUnder(n)
	names := make([]string, 0, len(leaves))
	geneSum := 0
	for _, leaf := range leaves {
		ann, _ := snap.Annotation(leaf)
		names = append(names, ann.Identity.Name)
		geneSum += ann.GeneTotal
	}
	return names, geneSum
}

func supportOf(n *phylotree.Node) *float64 {
	if !n.HasSupport {
		return nil
	}
	v := n.Support
	return &v
}

func (s *serviceImpl) finish(kind Kind, start time.Time, results []SearchResult) []SearchResult {
	outcome := outcomeMiss
	if len(results) > 0 {
		outcome = outcomeHit
	}
	prometheus.RecordQuery(s.metrics, string(kind), outcome, time.Since(start), len(results))
	return results
}

func (s *serviceImpl) fail(kind Kind, start time.Time, err error) error {
	prometheus.RecordQuery(s.metrics, string(kind), outcomeError, time.Since(start), 0)
	return err
}
