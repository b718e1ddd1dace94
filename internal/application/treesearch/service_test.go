package treesearch_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/application/treesearch"
	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

const searchTable = "Orthogroup\tAt\tAl\tOs\tBd\n" +
	"OG0001\tAT1G01010,AT1G01020\tAL1G10101\tOs01g0100100\t\n" +
	"OG0002\tAT1G02030\t\tOs02g0200200,Os02g0200300\tBradi1g00200\n" +
	"OG0003\t\tAL3G30303\t\t\n"

const searchSpecies = "Arabidopsis thaliana\tAt\n" +
	"Arabidopsis lyrata\tAl\n" +
	"Oryza sativa\tOs\n" +
	"Brachypodium distachyon\tBd\n"

const searchTree = "((At:1.0,Al:1.0)90:0.5,(Os:1.0,Bd:1.0)85:0.5);"

type fakeSource struct {
	objects map[string]string
}

func (f *fakeSource) Fetch(_ context.Context, artifact string) (io.ReadCloser, error) {
	content, ok := f.objects[artifact]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeArtifactNotFound, "artifact %q not found", artifact)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeSource) Healthy(_ context.Context) error { return nil }

func (f *fakeSource) Describe() string { return "fake:memory" }

func newService(t *testing.T, table, speciesTable, tree string) treesearch.Service {
	t.Helper()
	src := &fakeSource{objects: map[string]string{
		"orthogroups.tsv": table,
		"species.tsv":     speciesTable,
		"tree.nwk":        tree,
	}}
	data := dataset.NewService(src, config.DatasetConfig{
		TableArtifact:   "orthogroups.tsv",
		SpeciesArtifact: "species.tsv",
		TreeArtifact:    "tree.nwk",
		Delimiter:       "\t",
		LoadTimeout:     time.Minute,
	})
	return treesearch.NewService(data)
}

func defaultService(t *testing.T) treesearch.Service {
	t.Helper()
	return newService(t, searchTable, searchSpecies, searchTree)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    treesearch.Kind
		wantErr bool
	}{
		{input: "gene", want: treesearch.KindGene},
		{input: "species", want: treesearch.KindSpecies},
		{input: " Clade ", want: treesearch.KindClade},
		{input: "COMMON_ANCESTOR", want: treesearch.KindCommonAncestor},
		{input: "bogus", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		kind, err := treesearch.ParseKind(tt.input)
		if tt.wantErr {
			require.Error(t, err, tt.input)
			assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, kind)
	}
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, treesearch.SplitNames("a, b c"))
	assert.Equal(t, []string{"x"}, treesearch.SplitNames(",x,,"))
	assert.Empty(t, treesearch.SplitNames(" , "))
}

func TestSearchByGene_PlacesOrthogroupMembers(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByGene(context.Background(), "AT1G01010", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// One leaf per species with genes in OG0001, in species column order.
	// Bd has an empty cell and must not appear.
	assert.Equal(t, "At", results[0].NodeName)
	assert.Equal(t, treesearch.NodeTypeLeaf, results[0].NodeType)
	assert.Equal(t, 2, results[0].GeneCount)
	assert.Equal(t, 1, results[0].SpeciesCount)
	assert.InDelta(t, 1.5, results[0].DistanceToRoot, 1e-9)
	assert.Equal(t, []string{"AT1G01010", "AT1G01020"}, results[0].CladeMembers)

	assert.Equal(t, "Al", results[1].NodeName)
	assert.Equal(t, 1, results[1].GeneCount)
	assert.Equal(t, "Os", results[2].NodeName)
	assert.Equal(t, 1, results[2].GeneCount)
}

func TestSearchByGene_CountScopedToOrthogroup(t *testing.T) {
	svc := defaultService(t)

	// Os has three genes genome-wide but only two in OG0002.
	results, err := svc.SearchByGene(context.Background(), "Bradi1g00200", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Os", results[1].NodeName)
	assert.Equal(t, 2, results[1].GeneCount)
}

func TestSearchByGene_UnknownGene(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByGene(context.Background(), "NOPE123", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchByGene_BlankGene(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByGene(context.Background(), "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchByGene_MaxResults(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByGene(context.Background(), "AT1G01010", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "At", results[0].NodeName)
	assert.Equal(t, "Al", results[1].NodeName)
}

func TestSearchByGene_SpeciesAbsentFromTreeSkipped(t *testing.T) {
	table := "Orthogroup\tAt\tXx\n" +
		"OG0001\tAT1G01010\tXX1G00001\n"
	svc := newService(t, table, searchSpecies, "(At:1.0,Os:1.0);")

	results, err := svc.SearchByGene(context.Background(), "AT1G01010", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "At", results[0].NodeName)
}

func TestSearchBySpecies_MatchesCode(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchBySpecies(context.Background(), "Bd", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Bd", results[0].NodeName)
	assert.Equal(t, treesearch.NodeTypeLeaf, results[0].NodeType)
	assert.Equal(t, 1, results[0].GeneCount)
	assert.Equal(t, []string{"Brachypodium distachyon"}, results[0].CladeMembers)
}

func TestSearchBySpecies_MatchesResolvedName(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchBySpecies(context.Background(), "lyrata", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Al", results[0].NodeName)
	assert.Equal(t, 2, results[0].GeneCount)
}

func TestSearchBySpecies_CaseInsensitivePreorder(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchBySpecies(context.Background(), "ARABIDOPSIS", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "At", results[0].NodeName)
	assert.Equal(t, "Al", results[1].NodeName)
}

func TestSearchBySpecies_EmptyQueryMatchesEveryLeaf(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchBySpecies(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "At", results[0].NodeName)
	assert.Equal(t, "Bd", results[3].NodeName)
}

func TestSearchBySpecies_MaxResults(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchBySpecies(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "At", results[0].NodeName)
	assert.Equal(t, "Al", results[1].NodeName)
}

func TestSearchBySpecies_NoMatch(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchBySpecies(context.Background(), "triticum", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchByClade_MatchesDescendantNames(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByClade(context.Background(), "arabidopsis", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Root matches because its descendant text contains both Arabidopsis
	// names; the nested clade matches on its own.
	root := results[0]
	assert.Equal(t, "clade_0", root.NodeName)
	assert.Equal(t, treesearch.NodeTypeInternal, root.NodeType)
	assert.Equal(t, 4, root.SpeciesCount)
	assert.Equal(t, 9, root.GeneCount)

	inner := results[1]
	assert.Equal(t, "clade_1", inner.NodeName)
	assert.Equal(t, 2, inner.SpeciesCount)
	assert.Equal(t, 5, inner.GeneCount)
	require.NotNil(t, inner.Support)
	assert.InDelta(t, 90.0, *inner.Support, 1e-9)
	assert.Equal(t, []string{"Arabidopsis thaliana", "Arabidopsis lyrata"}, inner.CladeMembers)
}

func TestSearchByClade_GrassClade(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByClade(context.Background(), "oryza", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "clade_4", results[1].NodeName)
	assert.Equal(t, 2, results[1].SpeciesCount)
	assert.Equal(t, 4, results[1].GeneCount)
	assert.Equal(t, []string{"Oryza sativa", "Brachypodium distachyon"}, results[1].CladeMembers)
}

func TestSearchByClade_MaxResults(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByClade(context.Background(), "arabidopsis", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "clade_0", results[0].NodeName)
}

func TestSearchByClade_MembersTruncatedAtTen(t *testing.T) {
	codes := []string{"X01", "X02", "X03", "X04", "X05", "X06", "X07", "X08", "X09", "X10", "X11", "X12"}
	header := "Orthogroup\t" + strings.Join(codes, "\t") + "\n"
	row := "OG0001\t" + strings.Repeat("g\t", len(codes)-1) + "g\n"
	tree := "(" + strings.Join(codes, ":1.0,") + ":1.0);"
	svc := newService(t, header+row, "", tree)

	results, err := svc.SearchByClade(context.Background(), "species", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// species_count keeps the true total even though the member list is
	// capped.
	assert.Equal(t, 12, results[0].SpeciesCount)
	require.Len(t, results[0].CladeMembers, 10)
	assert.Equal(t, "Species X01", results[0].CladeMembers[0])
	assert.Equal(t, "Species X10", results[0].CladeMembers[9])
}

func TestSearchByClade_NoMatch(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.SearchByClade(context.Background(), "zebrafish", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindCommonAncestor_SiblingLeaves(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.FindCommonAncestor(context.Background(), []string{"thaliana", "lyrata"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	anc := results[0]
	assert.Equal(t, "clade_1", anc.NodeName)
	assert.Equal(t, treesearch.NodeTypeInternal, anc.NodeType)
	assert.Equal(t, 2, anc.SpeciesCount)
	assert.Equal(t, 5, anc.GeneCount)
	assert.InDelta(t, 0.5, anc.DistanceToRoot, 1e-9)
	assert.Equal(t, []string{"Arabidopsis thaliana", "Arabidopsis lyrata"}, anc.CladeMembers)
}

func TestFindCommonAncestor_AcrossSubtrees(t *testing.T) {
	svc := defaultService(t)

	results, err := svc.FindCommonAncestor(context.Background(), []string{"thaliana", "sativa"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "clade_0", results[0].NodeName)
	assert.Equal(t, 4, results[0].SpeciesCount)
	assert.Len(t, results[0].CladeMembers, 4)
}

func TestFindCommonAncestor_FewerThanTwoResolved(t *testing.T) {
	svc := defaultService(t)

	// Single name.
	results, err := svc.FindCommonAncestor(context.Background(), []string{"thaliana"})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Two names resolving to the same leaf.
	results, err = svc.FindCommonAncestor(context.Background(), []string{"thaliana", "Arabidopsis"})
	require.NoError(t, err)
	assert.Empty(t, results)

	// One unresolvable name.
	results, err = svc.FindCommonAncestor(context.Background(), []string{"nosuch", "sativa"})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Nothing at all.
	results, err = svc.FindCommonAncestor(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindCommonAncestor_ThreeLeafTree(t *testing.T) {
	speciesTable := "Alpha alpha\tA\nBravo bravo\tB\nCharlie charlie\tC\n"
	table := "Orthogroup\tA\tB\tC\nOG0001\ta1\tb1\tc1\n"
	svc := newService(t, table, speciesTable, "(A:1,(B:1,C:1):1);")

	results, err := svc.FindCommonAncestor(context.Background(), []string{"Bravo", "Charlie"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].SpeciesCount)
	assert.Equal(t, []string{"Bravo bravo", "Charlie charlie"}, results[0].CladeMembers)
	assert.InDelta(t, 1.0, results[0].DistanceToRoot, 1e-9)
}

func TestFindCommonAncestor_BareCodesResolveExactly(t *testing.T) {
	// With no metadata every name is synthesized, and a synthesized name for
	// one code can contain the letters of another ("Arabidopsis sp. (A)"
	// contains "b"). Bare codes must still land on their own leaves.
	table := "Orthogroup\tA\tB\tC\nOG0001\ta1\tb1\tc1\n"
	svc := newService(t, table, "", "(A:1,(B:1,C:1):1);")

	results, err := svc.FindCommonAncestor(context.Background(), []string{"B", "C"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].SpeciesCount)
	assert.Len(t, results[0].CladeMembers, 2)
	assert.InDelta(t, 1.0, results[0].DistanceToRoot, 1e-9)
}

func TestSearch_DispatchesByKind(t *testing.T) {
	svc := defaultService(t)
	ctx := context.Background()

	results, err := svc.Search(ctx, treesearch.KindGene, "AT1G01010", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = svc.Search(ctx, treesearch.KindSpecies, "oryza", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = svc.Search(ctx, treesearch.KindClade, "oryza", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = svc.Search(ctx, treesearch.KindCommonAncestor, "thaliana, sativa", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "clade_0", results[0].NodeName)

	_, err = svc.Search(ctx, treesearch.Kind("bogus"), "x", 0)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}
