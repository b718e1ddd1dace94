package orthogroup

import (
	"bufio"
	"io"
	"strings"

	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Parser options
// ─────────────────────────────────────────────────────────────────────────────

// maxLineBytes bounds a single table line.  Orthogroup rows carry long
// comma-separated gene lists, so the default bufio limit is far too small.
const maxLineBytes = 4 * 1024 * 1024

type parserOptions struct {
	delimiter string
}

// Option configures ParseTable.
type Option func(*parserOptions)

// WithDelimiter overrides the column delimiter.  The default is a tab.
func WithDelimiter(d string) Option {
	return func(o *parserOptions) {
		if d != "" {
			o.delimiter = d
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ParseTable
// ─────────────────────────────────────────────────────────────────────────────

// ParseTable reads a delimited orthogroup table and builds the Table plus its
// gene index.  The first non-blank line is the header: the leading column is
// the orthogroup identifier, the remaining columns are species codes.  Cells
// hold comma-separated gene identifiers; an empty cell means the species has
// no members in that orthogroup.
//
// Malformed data rows (wrong column count) are skipped and counted, never
// fatal.  A gene identifier that appears in more than one orthogroup is
// recorded as a Conflict and resolved deterministically: the later row wins.
//
// Errors are returned only for structural problems with the header (missing,
// or without species columns) and for reader failures.
func ParseTable(r io.Reader, opts ...Option) (*Table, error) {
	o := parserOptions{delimiter: "\t"}
	for _, opt := range opts {
		opt(&o)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	// Header.
	var species []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, o.delimiter)
		if len(fields) < 2 {
			return nil, errors.New(errors.ErrCodeTableParseFailed,
				"orthogroup table header has no species columns")
		}
		seen := make(map[string]bool, len(fields)-1)
		for _, f := range fields[1:] {
			code := strings.TrimSpace(f)
			if code == "" {
				return nil, errors.New(errors.ErrCodeTableParseFailed,
					"orthogroup table header contains an empty species column")
			}
			if seen[code] {
				return nil, errors.Newf(errors.ErrCodeTableParseFailed,
					"orthogroup table header repeats species column %q", code)
			}
			seen[code] = true
			species = append(species, code)
		}
		break
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "reading orthogroup table")
	}
	if species == nil {
		return nil, errors.New(errors.ErrCodeTableParseFailed, "orthogroup table is missing its header")
	}

	t := &Table{
		byID:       make(map[string]int),
		species:    species,
		geneTotals: make(map[string]int, len(species)),
		index:      newGeneIndex(1024),
	}
	t.stats.Species = len(species)

	wantFields := len(species) + 1
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, o.delimiter)
		if len(fields) != wantFields {
			t.stats.SkippedRows++
			continue
		}

		id := strings.TrimSpace(fields[0])
		if id == "" {
			t.stats.SkippedRows++
			continue
		}
		if _, dup := t.byID[id]; dup {
			// A repeated orthogroup ID would leave the index and the row list
			// pointing at different rows; treat the repeat as malformed.
			t.stats.SkippedRows++
			continue
		}

		row := Row{ID: id, Genes: make(map[string][]string)}
		for col, code := range species {
			cell := strings.TrimSpace(fields[col+1])
			if cell == "" {
				continue
			}
			genes := splitGenes(cell)
			if len(genes) == 0 {
				continue
			}
			row.Genes[code] = genes
			t.geneTotals[code] += len(genes)
			t.stats.GeneMentions += len(genes)

			for _, g := range genes {
				if prev, ok := t.index.Get(g); ok && prev != id {
					t.conflicts = append(t.conflicts, Conflict{Gene: g, PreviousID: prev, RowID: id})
					t.stats.IndexConflicts++
				}
				t.index.put(g, id)
			}
		}

		t.byID[id] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "reading orthogroup table")
	}

	t.stats.Rows = len(t.rows)
	return t, nil
}

// splitGenes splits a cell into trimmed, non-empty gene identifiers.
func splitGenes(cell string) []string {
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		g := strings.TrimSpace(p)
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
