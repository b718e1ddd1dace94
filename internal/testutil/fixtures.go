// Package testutil holds helpers shared by tests across the repo: canned
// dataset artifacts and an in-memory recording logger.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Canonical dataset fixtures shared across packages.  The table deliberately
// contains one malformed row (wrong column count), an empty cell per species,
// and the code "Osj" that is absent from the species mapping, so tests can
// exercise skip counting, zero-count species, and fallback name synthesis.
const (
	// SampleOrthogroupTSV is a minimal orthogroup table with four species
	// columns (At, Os, Zm, Osj) and four valid rows.
	SampleOrthogroupTSV = "Orthogroup\tAt\tOs\tZm\tOsj\n" +
		"OG0000001\tAT1G01010,AT1G01020\tLOC_Os01g01010\tGRMZM2G174784\t\n" +
		"OG0000002\tAT1G01030\t\tGRMZM2G174785,GRMZM2G174786\tOsj01G0001\n" +
		"OG0000003\t\tLOC_Os01g01020\t\t\n" +
		"badrow\tonly-two-cols\n" +
		"OG0000004\tAT1G01040\tLOC_Os01g01030\tGRMZM2G174787\tOsj01G0002\n"

	// SampleSpeciesTSV maps three of the four table codes; "Osj" is missing on
	// purpose and must be synthesised as "Oryza sativa (variant Osj)".
	SampleSpeciesTSV = "# OrthoAtlas reference species mapping\n" +
		"# scientific name\tcode\n" +
		"Arabidopsis thaliana\tAt\n" +
		"Oryza sativa\tOs\n" +
		"Zea mays\tZm\n"

	// SampleTreeNewick holds all four table codes as leaves with support
	// values on both internal clades.
	SampleTreeNewick = "((At:1.0,(Os:0.5,Osj:0.5)0.99:0.5)0.9:0.25,Zm:1.75);"

	// MalformedTreeNewick fails to parse (unbalanced parentheses) and is used
	// to drive the degraded fallback path.
	MalformedTreeNewick = "((At:1.0,Os"
)

// Default artifact names as configured by config.Defaults.
const (
	TableArtifact   = "orthogroups.tsv"
	SpeciesArtifact = "species.tsv"
	TreeArtifact    = "tree.nwk"
)

// WriteDataset writes the canonical fixture artifacts into dir and returns dir.
// Pass a t.TempDir() result; files are cleaned up with the test.
func WriteDataset(t *testing.T, dir string) string {
	t.Helper()
	writeFile(t, filepath.Join(dir, TableArtifact), SampleOrthogroupTSV)
	writeFile(t, filepath.Join(dir, SpeciesArtifact), SampleSpeciesTSV)
	writeFile(t, filepath.Join(dir, TreeArtifact), SampleTreeNewick)
	return dir
}

// WriteDatasetWithTree writes the canonical table and mapping but substitutes
// the given tree text, letting tests drive the degraded fallback path.
func WriteDatasetWithTree(t *testing.T, dir, newick string) string {
	t.Helper()
	writeFile(t, filepath.Join(dir, TableArtifact), SampleOrthogroupTSV)
	writeFile(t, filepath.Join(dir, SpeciesArtifact), SampleSpeciesTSV)
	writeFile(t, filepath.Join(dir, TreeArtifact), newick)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}
