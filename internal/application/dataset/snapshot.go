// Package dataset loads the three dataset artifacts (orthogroup table, species
// metadata, phylogenetic tree), binds them into an immutable snapshot, and
// serves that snapshot to the query services.  Loading happens once on first
// use; afterwards only an explicit Reload replaces the active snapshot.
package dataset

import (
	"time"

	"github.com/orthoatlas/orthoatlas/internal/domain/orthogroup"
	"github.com/orthoatlas/orthoatlas/internal/domain/phylotree"
	"github.com/orthoatlas/orthoatlas/internal/domain/species"
)

// LeafAnnotation carries the display data bound to one tree leaf: the resolved
// species identity and the genome-wide gene count from the orthogroup table.
// Annotations live beside the tree rather than on its nodes, so the parsed
// tree itself stays untouched.
type LeafAnnotation struct {
	Identity  species.Identity `json:"identity"`
	GeneTotal int              `json:"gene_total"`
}

// Snapshot is one fully bound dataset.  All fields are immutable after the
// load completes (the gene index self-heals internally but stays consistent),
// so a snapshot may be shared freely across requests.
type Snapshot struct {
	// Version identifies this load; a fresh UUID per (re)load.
	Version string

	// Source describes where the artifacts came from, e.g. "fs:./data".
	Source string

	// LoadedAt is the UTC completion time of the load.
	LoadedAt time.Time

	// Degraded is true when the tree artifact was unusable and the fallback
	// topology is being served in its place.
	Degraded bool

	Table   *orthogroup.Table
	Species *species.Mapping
	Tree    *phylotree.Tree

	// RawNewick is the tree source exactly as served, either the artifact
	// content or FallbackNewick when degraded.
	RawNewick string

	annotations map[*phylotree.Node]LeafAnnotation
	synthesized []species.Identity
}

// Annotation returns the binding for a tree leaf.  Internal nodes and nodes
// from other trees return false.
func (s *Snapshot) Annotation(n *phylotree.Node) (LeafAnnotation, bool) {
	a, ok := s.annotations[n]
	return a, ok
}

// Synthesized returns the species identities whose names were synthesized at
// bind time because the metadata did not cover them, in code order.
func (s *Snapshot) Synthesized() []species.Identity {
	out := make([]species.Identity, len(s.synthesized))
	copy(out, s.synthesized)
	return out
}

// AllSpeciesCodes returns every species column code in table order, including
// species that contribute no genes to a given orthogroup.
func (s *Snapshot) AllSpeciesCodes() []string {
	return s.Table.SpeciesCodes()
}

// SpeciesInfo is the per-species view served by the species endpoints: the
// resolved identity joined with table totals and tree presence.
type SpeciesInfo struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Fallback  bool   `json:"fallback"`
	GeneTotal int    `json:"gene_total"`
	InTree    bool   `json:"in_tree"`
}

// SpeciesInfos lists every species column in table order.
func (s *Snapshot) SpeciesInfos() []SpeciesInfo {
	codes := s.Table.SpeciesCodes()
	out := make([]SpeciesInfo, 0, len(codes))
	for _, code := range codes {
		out = append(out, s.SpeciesInfoFor(code))
	}
	return out
}

// SpeciesInfoFor resolves one code.  Resolution is total, so codes outside
// the dataset still get a synthesized name, with zero counts.
func (s *Snapshot) SpeciesInfoFor(code string) SpeciesInfo {
	id := s.Species.Resolve(code)
	_, inTree := s.Tree.LeafByCode(code)
	return SpeciesInfo{
		Code:      id.Code,
		Name:      id.Name,
		Fallback:  id.Fallback,
		GeneTotal: s.Table.GeneCountForSpecies(code),
		InTree:    inTree,
	}
}

// Stats summarises the active snapshot for the stats endpoint and the CLI.
type Stats struct {
	Version             string    `json:"version"`
	Source              string    `json:"source"`
	LoadedAt            time.Time `json:"loaded_at"`
	Degraded            bool      `json:"degraded"`
	Orthogroups         int       `json:"orthogroups"`
	SpeciesColumns      int       `json:"species_columns"`
	CuratedSpecies      int       `json:"curated_species"`
	SynthesizedNames    int       `json:"synthesized_names"`
	GeneMentions        int       `json:"gene_mentions"`
	IndexSize           int       `json:"index_size"`
	IndexConflicts      int       `json:"index_conflicts"`
	SkippedTableRows    int       `json:"skipped_table_rows"`
	SkippedSpeciesLines int       `json:"skipped_species_lines"`
	TreeLeaves          int       `json:"tree_leaves"`
	TreeNodes           int       `json:"tree_nodes"`
}

// Stats derives the summary for this snapshot.
func (s *Snapshot) Stats() Stats {
	tableStats := s.Table.Stats()
	return Stats{
		Version:             s.Version,
		Source:              s.Source,
		LoadedAt:            s.LoadedAt,
		Degraded:            s.Degraded,
		Orthogroups:         s.Table.Len(),
		SpeciesColumns:      tableStats.Species,
		CuratedSpecies:      s.Species.Len(),
		SynthesizedNames:    s.Species.EnhancedLen(),
		GeneMentions:        tableStats.GeneMentions,
		IndexSize:           s.Table.IndexSize(),
		IndexConflicts:      tableStats.IndexConflicts,
		SkippedTableRows:    tableStats.SkippedRows,
		SkippedSpeciesLines: s.Species.Stats().SkippedLines,
		TreeLeaves:          s.Tree.LeafCount(),
		TreeNodes:           s.Tree.NodeCount(),
	}
}
