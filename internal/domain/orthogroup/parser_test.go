package orthogroup_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoatlas/orthoatlas/internal/domain/orthogroup"
	"github.com/orthoatlas/orthoatlas/internal/testutil"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

func parseSample(t *testing.T) *orthogroup.Table {
	t.Helper()
	table, err := orthogroup.ParseTable(strings.NewReader(testutil.SampleOrthogroupTSV))
	require.NoError(t, err)
	return table
}

// ─────────────────────────────────────────────────────────────────────────────
// Header handling
// ─────────────────────────────────────────────────────────────────────────────

func TestParseTable_HeaderDefinesSpeciesColumns(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	assert.Equal(t, []string{"At", "Os", "Zm", "Osj"}, table.SpeciesCodes())
}

func TestParseTable_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := orthogroup.ParseTable(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTableParseFailed))
}

func TestParseTable_HeaderWithoutSpecies(t *testing.T) {
	t.Parallel()

	_, err := orthogroup.ParseTable(strings.NewReader("Orthogroup\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTableParseFailed))
}

func TestParseTable_DuplicateSpeciesColumn(t *testing.T) {
	t.Parallel()

	_, err := orthogroup.ParseTable(strings.NewReader("Orthogroup\tAt\tAt\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTableParseFailed))
}

func TestParseTable_LeadingBlankLinesBeforeHeader(t *testing.T) {
	t.Parallel()

	input := "\n\nOrthogroup\tAt\tOs\nOG1\tAT1G01010\tLOC_Os01g01010\n"
	table, err := orthogroup.ParseTable(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

// ─────────────────────────────────────────────────────────────────────────────
// Row handling
// ─────────────────────────────────────────────────────────────────────────────

func TestParseTable_SkipsMalformedRows(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	stats := table.Stats()

	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 1, stats.SkippedRows, "the two-column row must be skipped, not fatal")
	assert.Equal(t, 4, stats.Species)
}

func TestParseTable_EmptyCellsMeanAbsentSpecies(t *testing.T) {
	t.Parallel()

	table := parseSample(t)

	row, ok := table.Row("OG0000003")
	require.True(t, ok)
	assert.Empty(t, row.Genes["At"])
	assert.Equal(t, []string{"LOC_Os01g01020"}, row.Genes["Os"])
	assert.Equal(t, []string{"Os"}, table.PresentSpecies("OG0000003"))
}

func TestParseTable_SplitsCommaSeparatedCells(t *testing.T) {
	t.Parallel()

	table := parseSample(t)

	row, ok := table.Row("OG0000001")
	require.True(t, ok)
	assert.Equal(t, []string{"AT1G01010", "AT1G01020"}, row.Genes["At"])
}

func TestParseTable_TrimsWhitespaceInCells(t *testing.T) {
	t.Parallel()

	input := "Orthogroup\tAt\nOG1\t AT1G01010 , AT1G01020 ,\n"
	table, err := orthogroup.ParseTable(strings.NewReader(input))
	require.NoError(t, err)

	row, ok := table.Row("OG1")
	require.True(t, ok)
	assert.Equal(t, []string{"AT1G01010", "AT1G01020"}, row.Genes["At"])
}

func TestParseTable_CRLFLineEndings(t *testing.T) {
	t.Parallel()

	input := "Orthogroup\tAt\r\nOG1\tAT1G01010\r\n"
	table, err := orthogroup.ParseTable(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	res := table.FindOrthogroup("AT1G01010")
	assert.True(t, res.Found)
	assert.Equal(t, "OG1", res.OrthogroupID)
}

func TestParseTable_DuplicateRowIDSkipped(t *testing.T) {
	t.Parallel()

	input := "Orthogroup\tAt\nOG1\tAT1G01010\nOG1\tAT1G09999\n"
	table, err := orthogroup.ParseTable(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Stats().SkippedRows)
	assert.False(t, table.FindOrthogroup("AT1G09999").Found)
}

func TestParseTable_CustomDelimiter(t *testing.T) {
	t.Parallel()

	input := "Orthogroup,At,Os\nOG1,AT1G01010,LOC_Os01g01010\n"
	table, err := orthogroup.ParseTable(strings.NewReader(input), orthogroup.WithDelimiter(","))
	require.NoError(t, err)

	// With a comma delimiter multi-gene cells are not expressible, but single
	// gene cells parse cleanly.
	assert.Equal(t, []string{"At", "Os"}, table.SpeciesCodes())
	assert.True(t, table.FindOrthogroup("LOC_Os01g01010").Found)
}

func TestParseTable_EmptyTableIsNotAnError(t *testing.T) {
	t.Parallel()

	table, err := orthogroup.ParseTable(strings.NewReader("Orthogroup\tAt\tOs\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

// ─────────────────────────────────────────────────────────────────────────────
// Gene index and conflicts
// ─────────────────────────────────────────────────────────────────────────────

func TestParseTable_GeneMentionStats(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	assert.Equal(t, 13, table.Stats().GeneMentions)
	assert.Equal(t, 13, table.IndexSize())
	assert.Equal(t, 0, table.Stats().IndexConflicts)
}

func TestParseTable_ConflictLastRowWins(t *testing.T) {
	t.Parallel()

	input := "Orthogroup\tAt\tOs\n" +
		"OG1\tAT1G01010\tLOC_Os01g01010\n" +
		"OG2\tAT1G01010\t\n"
	table, err := orthogroup.ParseTable(strings.NewReader(input))
	require.NoError(t, err)

	conflicts := table.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "AT1G01010", conflicts[0].Gene)
	assert.Equal(t, "OG1", conflicts[0].PreviousID)
	assert.Equal(t, "OG2", conflicts[0].RowID)
	assert.Equal(t, 1, table.Stats().IndexConflicts)

	res := table.FindOrthogroup("AT1G01010")
	assert.True(t, res.Found)
	assert.Equal(t, "OG2", res.OrthogroupID, "later row wins deterministically")
}

// ─────────────────────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────────────────────

func TestTable_GenesForUnknownIDReturnsEmptyMap(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	genes := table.GenesFor("OG9999999")
	require.NotNil(t, genes)
	assert.Empty(t, genes)
}

func TestTable_GenesForReturnsCopy(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	genes := table.GenesFor("OG0000001")
	require.NotEmpty(t, genes["At"])
	genes["At"][0] = "mutated"

	again := table.GenesFor("OG0000001")
	assert.Equal(t, "AT1G01010", again["At"][0], "internal state must be isolated from callers")
}

func TestTable_GeneCountForSpecies(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	assert.Equal(t, 4, table.GeneCountForSpecies("At"))
	assert.Equal(t, 3, table.GeneCountForSpecies("Os"))
	assert.Equal(t, 4, table.GeneCountForSpecies("Zm"))
	assert.Equal(t, 2, table.GeneCountForSpecies("Osj"))
	assert.Equal(t, 0, table.GeneCountForSpecies("Xx"))
}

func TestTable_FindOrthogroupTotalOnMiss(t *testing.T) {
	t.Parallel()

	table := parseSample(t)

	res := table.FindOrthogroup("NO_SUCH_GENE")
	assert.False(t, res.Found)
	assert.Empty(t, res.OrthogroupID)

	res = table.FindOrthogroup("")
	assert.False(t, res.Found)
}

func TestTable_PresentSpeciesKeepsColumnOrder(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	assert.Equal(t, []string{"At", "Zm", "Osj"}, table.PresentSpecies("OG0000002"))
	assert.Nil(t, table.PresentSpecies("OG9999999"))
}

func TestTable_RowGeneCount(t *testing.T) {
	t.Parallel()

	table := parseSample(t)
	row, ok := table.Row("OG0000002")
	require.True(t, ok)
	assert.Equal(t, 4, row.GeneCount())
}
