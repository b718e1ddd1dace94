package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/application/orthology"
	"github.com/orthoatlas/orthoatlas/internal/application/treesearch"
	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/datasource"
	apihttp "github.com/orthoatlas/orthoatlas/internal/interfaces/http"
	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/handlers"
	"github.com/orthoatlas/orthoatlas/internal/testutil"
)

const testAdminKey = "test-admin-key"

type testAPI struct {
	router http.Handler
	dir    string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := testutil.WriteDataset(t, t.TempDir())

	src := datasource.NewFSSource(dir, nil)
	data := dataset.NewService(src, config.DatasetConfig{
		TableArtifact:   testutil.TableArtifact,
		SpeciesArtifact: testutil.SpeciesArtifact,
		TreeArtifact:    testutil.TreeArtifact,
		Delimiter:       "\t",
		LoadTimeout:     time.Minute,
	})
	search := treesearch.NewService(data)
	ortho := orthology.NewService(data)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Search:      handlers.NewSearchHandler(search, nil),
		Orthology:   handlers.NewOrthologyHandler(ortho, nil),
		Species:     handlers.NewSpeciesHandler(data, nil),
		Dataset:     handlers.NewDatasetHandler(data, nil),
		Health:      newHealthForTest(data),
		AdminAPIKey: testAdminKey,
		Mode:        "test",
	})
	return &testAPI{router: router, dir: dir}
}

func newHealthForTest(data *dataset.Service) *handlers.HealthHandler {
	h := handlers.NewHealthHandler("test", nil, nil)
	h.AddCheck("dataset", func(ctx context.Context) error {
		_, err := data.Ensure(ctx)
		return err
	})
	return h
}

func (a *testAPI) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (a *testAPI) post(t *testing.T, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	a.router.ServeHTTP(w, req)
	return w
}

// decodeData unwraps the {"data": ...} envelope into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "body: %s", w.Body.String())
	require.NotNil(t, envelope.Data, "body: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorInfo {
	t.Helper()
	var envelope handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "body: %s", w.Body.String())
	return envelope.Error
}

func TestRouter_Healthz(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Readyz(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/readyz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dataset":"ok"`)
}

func TestRouter_ReadyzFailsWhenSourceGone(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, os.Remove(filepath.Join(api.dir, testutil.TableArtifact)))

	// The dataset was never loaded, so readiness hits the missing artifact.
	w := api.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unavailable"`)
}

func TestRouter_DatasetStats(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/dataset/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats dataset.Stats
	decodeData(t, w, &stats)
	assert.Equal(t, 4, stats.Orthogroups)
	assert.Equal(t, 4, stats.SpeciesColumns)
	assert.Equal(t, 3, stats.CuratedSpecies)
	assert.Equal(t, 1, stats.SynthesizedNames)
	assert.Equal(t, 1, stats.SkippedTableRows)
	assert.Equal(t, 4, stats.TreeLeaves)
	assert.False(t, stats.Degraded)
}

func TestRouter_SearchOrthologues(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/orthologues/AT1G01010")
	require.Equal(t, http.StatusOK, w.Code)

	var result orthology.Result
	decodeData(t, w, &result)
	require.True(t, result.Success)
	assert.Equal(t, "OG0000001", result.OrthogroupID)
	assert.Len(t, result.Orthologues, 3)
	assert.Len(t, result.Counts, 4)
	assert.NotEmpty(t, result.Newick)

	// The query gene itself is excluded from the report.
	for _, o := range result.Orthologues {
		assert.NotEqual(t, "AT1G01010", o.GeneID)
	}
}

func TestRouter_SearchOrthologuesMissIsStill200(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/orthologues/NOSUCHGENE")
	require.Equal(t, http.StatusOK, w.Code)

	var result orthology.Result
	decodeData(t, w, &result)
	assert.False(t, result.Success)
	assert.Equal(t, "gene NOSUCHGENE not found in any orthogroup", result.Message)
}

func TestRouter_GeneOrthogroup(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/genes/LOC_Os01g01020/orthogroup")
	require.Equal(t, http.StatusOK, w.Code)

	var lookup orthology.LookupResult
	decodeData(t, w, &lookup)
	assert.True(t, lookup.Found)
	assert.Equal(t, "OG0000003", lookup.OrthogroupID)
}

func TestRouter_OrthogroupGenes(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/orthogroups/OG0000002/genes")
	require.Equal(t, http.StatusOK, w.Code)

	var genes orthology.GenesResult
	decodeData(t, w, &genes)
	assert.Equal(t, []string{"GRMZM2G174785", "GRMZM2G174786"}, genes.Genes["Zm"])
	assert.Equal(t, "Oryza sativa (variant Osj)", genes.SpeciesNames["Osj"])
	assert.NotContains(t, genes.Genes, "Os")
}

func TestRouter_OrthogroupTree(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/orthogroups/OG0000001/tree")
	require.Equal(t, http.StatusOK, w.Code)

	var tree orthology.TreeResult
	decodeData(t, w, &tree)
	assert.Equal(t, []string{"At", "Os", "Zm"}, tree.Species)
	assert.Equal(t, testutil.SampleTreeNewick, tree.Newick)
}

func TestRouter_TreeSearchByGene(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/tree/search?kind=gene&q=GRMZM2G174785")
	require.Equal(t, http.StatusOK, w.Code)

	var results []treesearch.SearchResult
	decodeData(t, w, &results)
	require.Len(t, results, 3)
	assert.Equal(t, "At", results[0].NodeName)
	assert.Equal(t, "Zm", results[1].NodeName)
	assert.Equal(t, 2, results[1].GeneCount) // Zm holds two paralogues
}

func TestRouter_TreeSearchBySpecies(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/tree/search?kind=species&q=oryza")
	require.Equal(t, http.StatusOK, w.Code)

	var results []treesearch.SearchResult
	decodeData(t, w, &results)
	require.Len(t, results, 2)
	assert.Equal(t, "Os", results[0].NodeName)
	assert.Equal(t, "Osj", results[1].NodeName)
	assert.Equal(t, []string{"Oryza sativa (variant Osj)"}, results[1].CladeMembers)
}

func TestRouter_TreeSearchByCladeWithLimit(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/tree/search?kind=clade&q=oryza&limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var results []treesearch.SearchResult
	decodeData(t, w, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "internal", results[0].NodeType)
}

func TestRouter_TreeSearchRejectsUnknownKind(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/tree/search?kind=bogus&q=x")
	require.Equal(t, http.StatusBadRequest, w.Code)

	info := decodeError(t, w)
	assert.Equal(t, "COMMON_002", info.Code)
	assert.NotEmpty(t, info.RequestID)
}

func TestRouter_TreeSearchRejectsBadLimit(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/tree/search?kind=species&q=oryza&limit=nan")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid limit")
}

func TestRouter_CommonAncestor(t *testing.T) {
	api := newTestAPI(t)

	w := api.post(t, "/api/v1/tree/ancestor", `{"species":["thaliana","Zea"]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var results []treesearch.SearchResult
	decodeData(t, w, &results)
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].SpeciesCount)
	assert.Len(t, results[0].CladeMembers, 4)
}

func TestRouter_CommonAncestorRejectsBadBody(t *testing.T) {
	api := newTestAPI(t)

	w := api.post(t, "/api/v1/tree/ancestor", `{"nope":true}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "species list")
}

func TestRouter_SpeciesList(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/species")
	require.Equal(t, http.StatusOK, w.Code)

	var infos []dataset.SpeciesInfo
	decodeData(t, w, &infos)
	require.Len(t, infos, 4)
	assert.Equal(t, "At", infos[0].Code)
	assert.Equal(t, "Arabidopsis thaliana", infos[0].Name)
	assert.False(t, infos[0].Fallback)
	assert.Equal(t, "Osj", infos[3].Code)
	assert.True(t, infos[3].Fallback)
}

func TestRouter_SpeciesGetUnknownCodeSynthesizes(t *testing.T) {
	api := newTestAPI(t)

	w := api.get(t, "/api/v1/species/Qq")
	require.Equal(t, http.StatusOK, w.Code)

	var info dataset.SpeciesInfo
	decodeData(t, w, &info)
	assert.Equal(t, "Species Qq", info.Name)
	assert.True(t, info.Fallback)
	assert.False(t, info.InTree)
}

func TestRouter_ReloadRequiresKey(t *testing.T) {
	api := newTestAPI(t)

	w := api.post(t, "/api/v1/dataset/reload", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.post(t, "/api/v1/dataset/reload", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ReloadPicksUpNewData(t *testing.T) {
	api := newTestAPI(t)

	// Prime the snapshot, then grow the table on disk.
	require.Equal(t, http.StatusOK, api.get(t, "/api/v1/dataset/stats").Code)

	table := testutil.SampleOrthogroupTSV + "OG0000005\tAT1G09999\t\t\t\n"
	require.NoError(t, os.WriteFile(filepath.Join(api.dir, testutil.TableArtifact), []byte(table), 0o644))

	w := api.post(t, "/api/v1/dataset/reload", "", map[string]string{"X-API-Key": testAdminKey})
	require.Equal(t, http.StatusOK, w.Code)

	var stats dataset.Stats
	decodeData(t, w, &stats)
	assert.Equal(t, 5, stats.Orthogroups)

	// Subsequent reads see the new snapshot.
	w = api.get(t, "/api/v1/orthologues/AT1G09999")
	var result orthology.Result
	decodeData(t, w, &result)
	assert.True(t, result.Success)
}

func TestRouter_ReloadDisabledWithoutKey(t *testing.T) {
	dir := testutil.WriteDataset(t, t.TempDir())
	data := dataset.NewService(datasource.NewFSSource(dir, nil), config.DatasetConfig{
		TableArtifact:   testutil.TableArtifact,
		SpeciesArtifact: testutil.SpeciesArtifact,
		TreeArtifact:    testutil.TreeArtifact,
		Delimiter:       "\t",
		LoadTimeout:     time.Minute,
	})
	router := apihttp.NewRouter(apihttp.RouterConfig{
		Dataset: handlers.NewDatasetHandler(data, nil),
		Mode:    "test",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset/reload", strings.NewReader(""))
	req.Header.Set("X-API-Key", "anything")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_DegradedDatasetStillServes(t *testing.T) {
	dir := testutil.WriteDatasetWithTree(t, t.TempDir(), testutil.MalformedTreeNewick)
	data := dataset.NewService(datasource.NewFSSource(dir, nil), config.DatasetConfig{
		TableArtifact:   testutil.TableArtifact,
		SpeciesArtifact: testutil.SpeciesArtifact,
		TreeArtifact:    testutil.TreeArtifact,
		Delimiter:       "\t",
		LoadTimeout:     time.Minute,
	})
	router := apihttp.NewRouter(apihttp.RouterConfig{
		Dataset: handlers.NewDatasetHandler(data, nil),
		Mode:    "test",
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/dataset/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dataset.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Degraded)
	assert.Equal(t, 2, envelope.Data.TreeLeaves)
}
