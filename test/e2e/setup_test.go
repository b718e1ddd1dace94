// Package e2e_test exercises the public surface end to end: the complete
// stack (filesystem datasource, dataset service, search services, router)
// runs in-process behind an httptest server, and every call travels through
// the Go SDK so the wire contract is tested from both sides.
package e2e_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/application/orthology"
	"github.com/orthoatlas/orthoatlas/internal/application/treesearch"
	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/datasource"
	apihttp "github.com/orthoatlas/orthoatlas/internal/interfaces/http"
	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/handlers"
	"github.com/orthoatlas/orthoatlas/internal/testutil"
	"github.com/orthoatlas/orthoatlas/pkg/client"
)

const adminKey = "e2e-admin-key"

// stack is one fully wired server instance backed by a throwaway dataset
// directory.  Tests mutate dir and reload to simulate dataset releases.
type stack struct {
	url string
	dir string
}

// startStack assembles the production wiring against fixture artifacts and
// serves it over a real TCP listener.  Everything is torn down with the test.
func startStack(t *testing.T) *stack {
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
	orth := orthology.NewService(data)

	health := handlers.NewHealthHandler("e2e", nil, nil)
	health.AddCheck("datasource", src.Healthy)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Search:      handlers.NewSearchHandler(search, nil),
		Orthology:   handlers.NewOrthologyHandler(orth, nil),
		Species:     handlers.NewSpeciesHandler(data, nil),
		Dataset:     handlers.NewDatasetHandler(data, nil),
		Health:      health,
		AdminAPIKey: adminKey,
		Mode:        "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &stack{url: srv.URL, dir: dir}
}

// sdk builds a client against the stack.  Retries are disabled so failure
// tests return immediately.
func (s *stack) sdk(t *testing.T, opts ...client.Option) *client.Client {
	t.Helper()

	opts = append([]client.Option{
		client.WithTimeout(10 * time.Second),
		client.WithRetryMax(0),
	}, opts...)
	c, err := client.NewClient(s.url, opts...)
	require.NoError(t, err)
	return c
}

// publishTable overwrites the orthogroup table artifact, simulating a new
// dataset release dropped into the served directory.
func (s *stack) publishTable(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(s.dir, testutil.TableArtifact)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// getRaw hits a path with plain net/http, for the probe endpoints the SDK
// does not wrap.
func (s *stack) getRaw(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.url + path)
	require.NoError(t, err)
	return resp
}
