// Package orthology provides the application-level orthologue query
// orchestrator: it composes the orthogroup table, the species resolver and
// the bound tree into complete cross-species reports for a single gene or
// orthogroup. A gene that is in no orthogroup is a structured miss, never an
// error.
package orthology

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/prometheus"
)

// Orthologue is one related gene in the query gene's orthogroup.
type Orthologue struct {
	SpeciesCode string `json:"species_code"`
	SpeciesName string `json:"species_name"`
	GeneID      string `json:"gene_id"`
}

// SpeciesCount reports how many orthologues one species contributes. Every
// species column appears, zeros included, so callers can render absence as
// well as presence.
type SpeciesCount struct {
	SpeciesCode string `json:"species_code"`
	SpeciesName string `json:"species_name"`
	Count       int    `json:"count"`
}

// Result is the full orthologue report for one query gene. The query gene
// itself is excluded from both the orthologue list and the per-species
// counts.
type Result struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message,omitempty"`
	GeneID       string         `json:"gene_id"`
	OrthogroupID string         `json:"orthogroup_id,omitempty"`
	Orthologues  []Orthologue   `json:"orthologues"`
	Counts       []SpeciesCount `json:"species_counts"`
	Newick       string         `json:"newick,omitempty"`
}

// LookupResult answers "which orthogroup contains this gene".
type LookupResult struct {
	GeneID       string `json:"gene_id"`
	Found        bool   `json:"found"`
	OrthogroupID string `json:"orthogroup_id,omitempty"`
}

// GenesResult carries an orthogroup's per-species gene lists with resolved
// display names. Unknown orthogroups yield empty maps.
type GenesResult struct {
	OrthogroupID string              `json:"orthogroup_id"`
	Genes        map[string][]string `json:"genes"`
	SpeciesNames map[string]string   `json:"species_names"`
}

// TreeResult pairs the raw tree with the species present in an orthogroup,
// for callers that render the tree with presence highlights.
type TreeResult struct {
	OrthogroupID string   `json:"orthogroup_id"`
	Newick       string   `json:"newick"`
	Species      []string `json:"species"`
}

// Service defines the orthologue query operations.
type Service interface {
	SearchOrthologues(ctx context.Context, geneID string) (*Result, error)
	FindGeneOrthogroup(ctx context.Context, geneID string) (*LookupResult, error)
	OrthogroupGenes(ctx context.Context, orthogroupID string) (*GenesResult, error)
	OrthogroupTree(ctx context.Context, orthogroupID string) (*TreeResult, error)
}

const kindOrthologues = "orthologues"

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

// NewService creates the orthology service.
func NewService(data *dataset.Service, opts ...ServiceOption) Service {
	s := &serviceImpl{
		data:   data,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("orthology")
	return s
}

// SearchOrthologues reports every orthologue of the given gene across all
// species columns, including species with zero hits, plus the raw tree for
// downstream rendering.
func (s *serviceImpl) SearchOrthologues(ctx context.Context, geneID string) (*Result, error) {
	start := time.Now()
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		prometheus.RecordQuery(s.metrics, kindOrthologues, outcomeError, time.Since(start), 0)
		return nil, err
	}

	geneID = strings.TrimSpace(geneID)
	lookup := snap.Table.FindOrthogroup(geneID)
	if lookup.ViaScan {
		prometheus.RecordIndexFallback(s.metrics, lookup.Found)
	}
	if !lookup.Found {
		s.logger.Debug("orthologue query missed", logging.String("gene", geneID))
		prometheus.RecordQuery(s.metrics, kindOrthologues, outcomeMiss, time.Since(start), 0)
		return &Result{
			Success:     false,
			Message:     fmt.Sprintf("gene %s not found in any orthogroup", geneID),
			GeneID:      geneID,
			Orthologues: []Orthologue{},
			Counts:      []SpeciesCount{},
		}, nil
	}

	genes := snap.Table.GenesFor(lookup.OrthogroupID)
	codes := snap.AllSpeciesCodes()
	orthologues := make([]Orthologue, 0)
	counts := make([]SpeciesCount, 0, len(codes))
	for _, code := range codes {
		name := snap.Species.ResolveName(code)
		count := 0
		for _, g := range genes[code] {
			if g == geneID {
				continue
			}
			orthologues = append(orthologues, Orthologue{
				SpeciesCode: code,
				SpeciesName: name,
				GeneID:      g,
			})
			count++
		}
		counts = append(counts, SpeciesCount{
			SpeciesCode: code,
			SpeciesName: name,
			Count:       count,
		})
	}

	prometheus.RecordQuery(s.metrics, kindOrthologues, outcomeHit, time.Since(start), len(orthologues))
	return &Result{
		Success:      true,
		GeneID:       geneID,
		OrthogroupID: lookup.OrthogroupID,
		Orthologues:  orthologues,
		Counts:       counts,
		Newick:       snap.RawNewick,
	}, nil
}

// FindGeneOrthogroup resolves a gene to its orthogroup ID. A miss is a
// structured result, not an error.
func (s *serviceImpl) FindGeneOrthogroup(ctx context.Context, geneID string) (*LookupResult, error) {
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	geneID = strings.TrimSpace(geneID)
	lookup := snap.Table.FindOrthogroup(geneID)
	if lookup.ViaScan {
		prometheus.RecordIndexFallback(s.metrics, lookup.Found)
	}
	return &LookupResult{
		GeneID:       geneID,
		Found:        lookup.Found,
		OrthogroupID: lookup.OrthogroupID,
	}, nil
}

// OrthogroupGenes returns the per-species gene lists of an orthogroup with
// resolved species names. Unknown IDs yield empty maps.
func (s *serviceImpl) OrthogroupGenes(ctx context.Context, orthogroupID string) (*GenesResult, error) {
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	orthogroupID = strings.TrimSpace(orthogroupID)
	genes := snap.Table.GenesFor(orthogroupID)
	names := make(map[string]string, len(genes))
	for code := range genes {
		names[code] = snap.Species.ResolveName(code)
	}
	return &GenesResult{
		OrthogroupID: orthogroupID,
		Genes:        genes,
		SpeciesNames: names,
	}, nil
}

// OrthogroupTree returns the raw tree plus the species contributing at least
// one gene to the orthogroup, in species column order.
func (s *serviceImpl) OrthogroupTree(ctx context.Context, orthogroupID string) (*TreeResult, error) {
	snap, err := s.data.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	orthogroupID = strings.TrimSpace(orthogroupID)
	species := snap.Table.PresentSpecies(orthogroupID)
	if species == nil {
		species = []string{}
	}
	return &TreeResult{
		OrthogroupID: orthogroupID,
		Newick:       snap.RawNewick,
		Species:      species,
	}, nil
}
