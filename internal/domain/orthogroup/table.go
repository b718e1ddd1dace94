// Package orthogroup implements the orthogroup bounded context: the parsed
// orthogroup table, the gene→orthogroup index with its linear-scan fallback,
// and the lookup operations the search and orthology services are built on.
// All operations are total over well-typed input; a gene that is not present
// anywhere yields a structured miss, never an error.
package orthogroup

import (
	"sync"
)

// ─────────────────────────────────────────────────────────────────────────────
// Row — one orthogroup
// ─────────────────────────────────────────────────────────────────────────────

// Row is a single orthogroup: an identifier plus the member genes grouped by
// species code.  Rows are immutable after parsing.
type Row struct {
	// ID is the orthogroup identifier from the first table column.
	ID string `json:"id"`

	// Genes maps species code to the gene identifiers that species contributes
	// to the orthogroup.  Species with an empty table cell are absent from the
	// map; use Table.SpeciesCodes for the full column set.
	Genes map[string][]string `json:"genes"`
}

// GeneCount returns the total number of gene mentions in the row across all
// species.
func (r Row) GeneCount() int {
	n := 0
	for _, genes := range r.Genes {
		n += len(genes)
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Conflict — duplicate gene mention across orthogroups
// ─────────────────────────────────────────────────────────────────────────────

// Conflict records a gene identifier that appeared in more than one orthogroup
// during table parsing.  Resolution is deterministic: the later row (file
// order) wins and PreviousID records the mapping that was displaced.
type Conflict struct {
	Gene       string `json:"gene"`
	PreviousID string `json:"previous_id"`
	RowID      string `json:"row_id"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Stats — parse and index statistics
// ─────────────────────────────────────────────────────────────────────────────

// Stats summarises the outcome of parsing and indexing an orthogroup table.
type Stats struct {
	// Rows is the number of well-formed rows kept.
	Rows int `json:"rows"`

	// SkippedRows counts rows dropped for a column-count mismatch.
	SkippedRows int `json:"skipped_rows"`

	// Species is the number of species columns in the header.
	Species int `json:"species"`

	// GeneMentions is the total number of gene occurrences across all kept
	// rows, counting duplicates.
	GeneMentions int `json:"gene_mentions"`

	// IndexConflicts is the number of gene identifiers that appeared in more
	// than one orthogroup.
	IndexConflicts int `json:"index_conflicts"`
}

// ─────────────────────────────────────────────────────────────────────────────
// GeneIndex — gene → orthogroup lookup with self-healing inserts
// ─────────────────────────────────────────────────────────────────────────────

// GeneIndex maps gene identifiers to the orthogroup that contains them.  The
// index is built once at parse time but remains internally synchronised: a
// linear-scan fallback hit inserts the discovered mapping back into the index
// so subsequent lookups for the same gene are O(1).
type GeneIndex struct {
	mu     sync.RWMutex
	byGene map[string]string
}

func newGeneIndex(size int) *GeneIndex {
	return &GeneIndex{byGene: make(map[string]string, size)}
}

// Get returns the orthogroup ID recorded for gene, if any.
func (i *GeneIndex) Get(gene string) (string, bool) {
	i.mu.RLock()
	id, ok := i.byGene[gene]
	i.mu.RUnlock()
	return id, ok
}

// put records a mapping, displacing any earlier value.
func (i *GeneIndex) put(gene, orthogroupID string) {
	i.mu.Lock()
	i.byGene[gene] = orthogroupID
	i.mu.Unlock()
}

// Len returns the number of indexed genes.
func (i *GeneIndex) Len() int {
	i.mu.RLock()
	n := len(i.byGene)
	i.mu.RUnlock()
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Table — the parsed orthogroup table
// ─────────────────────────────────────────────────────────────────────────────

// Table is the fully parsed orthogroup table.  Apart from the self-healing
// gene index it is immutable after construction and safe for unsynchronised
// concurrent reads.
type Table struct {
	rows       []Row
	byID       map[string]int
	species    []string
	geneTotals map[string]int
	index      *GeneIndex
	conflicts  []Conflict
	stats      Stats
}

// Len returns the number of orthogroup rows.
func (t *Table) Len() int { return len(t.rows) }

// SpeciesCodes returns the species column codes in file order.
func (t *Table) SpeciesCodes() []string {
	out := make([]string, len(t.species))
	copy(out, t.species)
	return out
}

// Row returns the orthogroup with the given ID.
func (t *Table) Row(id string) (Row, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return Row{}, false
	}
	return t.rows[idx], true
}

// GenesFor returns the per-species gene map for the given orthogroup, or an
// empty map when the ID is unknown.  The returned map is a copy; callers may
// mutate it freely.
func (t *Table) GenesFor(id string) map[string][]string {
	row, ok := t.Row(id)
	if !ok {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(row.Genes))
	for code, genes := range row.Genes {
		cp := make([]string, len(genes))
		copy(cp, genes)
		out[code] = cp
	}
	return out
}

// PresentSpecies returns, in column order, the species codes that contribute
// at least one gene to the given orthogroup.
func (t *Table) PresentSpecies(id string) []string {
	row, ok := t.Row(id)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(row.Genes))
	for _, code := range t.species {
		if len(row.Genes[code]) > 0 {
			out = append(out, code)
		}
	}
	return out
}

// GeneCountForSpecies returns the genome-wide gene count for a species code,
// i.e. the total number of genes the species contributes across all
// orthogroups.  Unknown codes return zero.
func (t *Table) GeneCountForSpecies(code string) int {
	return t.geneTotals[code]
}

// Stats returns the parse and index statistics recorded at build time.
func (t *Table) Stats() Stats { return t.stats }

// Conflicts returns the duplicate-gene conflicts detected while building the
// index, in detection order.
func (t *Table) Conflicts() []Conflict {
	out := make([]Conflict, len(t.conflicts))
	copy(out, t.conflicts)
	return out
}

// IndexSize returns the current number of indexed genes, including any
// mappings added by the self-healing fallback.
func (t *Table) IndexSize() int { return t.index.Len() }

// ─────────────────────────────────────────────────────────────────────────────
// Gene lookup
// ─────────────────────────────────────────────────────────────────────────────

// LookupResult reports the outcome of a gene → orthogroup lookup.
type LookupResult struct {
	// OrthogroupID is the containing orthogroup, empty on a miss.
	OrthogroupID string

	// Found is false when the gene occurs nowhere in the table.
	Found bool

	// ViaScan is true when the index missed and the mapping was recovered by
	// the linear fallback scan.  Callers surface this through logs and metrics
	// since a scan is orders of magnitude slower than an index hit.
	ViaScan bool
}

// FindOrthogroup locates the orthogroup containing the given gene.  The O(1)
// index is consulted first; on a miss every row and cell is scanned.  A scan
// hit is inserted back into the index so the next lookup is O(1) again.  A
// total miss returns a structured result, never an error.
func (t *Table) FindOrthogroup(gene string) LookupResult {
	if gene == "" {
		return LookupResult{}
	}
	if id, ok := t.index.Get(gene); ok {
		return LookupResult{OrthogroupID: id, Found: true}
	}

	// Fallback: exhaustive scan in file order.  Covers genes missed by index
	// construction, at linear cost.
	for _, row := range t.rows {
		for _, genes := range row.Genes {
			for _, g := range genes {
				if g == gene {
					t.index.put(gene, row.ID)
					return LookupResult{OrthogroupID: row.ID, Found: true, ViaScan: true}
				}
			}
		}
	}
	return LookupResult{}
}

// GenesInOrthogroupForSpecies returns the genes a single species contributes
// to an orthogroup.  Unknown IDs or codes return an empty slice.
func (t *Table) GenesInOrthogroupForSpecies(id, code string) []string {
	row, ok := t.Row(id)
	if !ok {
		return nil
	}
	genes := row.Genes[code]
	out := make([]string, len(genes))
	copy(out, genes)
	return out
}
