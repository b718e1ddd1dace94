// Package ortho defines the public wire types of the OrthoAtlas API.
// The SDK in pkg/client and external consumers share these; field tags
// match the server's JSON exactly.
package ortho

import "time"

// Search kinds accepted by the tree search endpoint.
const (
	KindGene           = "gene"
	KindSpecies        = "species"
	KindClade          = "clade"
	KindCommonAncestor = "common_ancestor"
)

// Node types reported in search results.
const (
	NodeTypeLeaf     = "leaf"
	NodeTypeInternal = "internal"
)

// SearchResult is one placement on the phylogenetic tree.
type SearchResult struct {
	NodeName       string   `json:"node_name"`
	NodeType       string   `json:"node_type"`
	DistanceToRoot float64  `json:"distance_to_root"`
	Support        *float64 `json:"support_value,omitempty"`
	SpeciesCount   int      `json:"species_count"`
	GeneCount      int      `json:"gene_count"`
	CladeMembers   []string `json:"clade_members"`
}

// Orthologue is a single related gene in another species.
type Orthologue struct {
	SpeciesCode string `json:"species_code"`
	SpeciesName string `json:"species_name"`
	GeneID      string `json:"gene_id"`
}

// SpeciesCount reports how many orthologues a species contributes.
type SpeciesCount struct {
	SpeciesCode string `json:"species_code"`
	SpeciesName string `json:"species_name"`
	Count       int    `json:"count"`
}

// OrthologueReport is the full answer to an orthologue search.  Success is
// false when the gene belongs to no orthogroup; Message then explains the
// miss and the lists are empty.
type OrthologueReport struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message,omitempty"`
	GeneID       string         `json:"gene_id"`
	OrthogroupID string         `json:"orthogroup_id,omitempty"`
	Orthologues  []Orthologue   `json:"orthologues"`
	Counts       []SpeciesCount `json:"species_counts"`
	Newick       string         `json:"newick,omitempty"`
}

// GeneLookup locates a gene's orthogroup.
type GeneLookup struct {
	GeneID       string `json:"gene_id"`
	Found        bool   `json:"found"`
	OrthogroupID string `json:"orthogroup_id,omitempty"`
}

// OrthogroupGenes lists an orthogroup's members keyed by species code.
type OrthogroupGenes struct {
	OrthogroupID string              `json:"orthogroup_id"`
	Genes        map[string][]string `json:"genes"`
	SpeciesNames map[string]string   `json:"species_names"`
}

// OrthogroupTree pairs an orthogroup with the species tree it spans.
type OrthogroupTree struct {
	OrthogroupID string   `json:"orthogroup_id"`
	Newick       string   `json:"newick"`
	Species      []string `json:"species"`
}

// SpeciesInfo describes one species column of the dataset.
type SpeciesInfo struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Fallback  bool   `json:"fallback"`
	GeneTotal int    `json:"gene_total"`
	InTree    bool   `json:"in_tree"`
}

// DatasetStats summarizes the active dataset snapshot.
type DatasetStats struct {
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
