package datasource_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/datasource"
	"github.com/orthoatlas/orthoatlas/internal/testutil"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

func TestFSSourceFetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteDataset(t, dir)
	src := datasource.NewFSSource(dir, nil)

	rc, err := src.Fetch(context.Background(), testutil.TableArtifact)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleOrthogroupTSV, string(data))
}

func TestFSSourceFetchMissing(t *testing.T) {
	t.Parallel()

	src := datasource.NewFSSource(t.TempDir(), nil)

	_, err := src.Fetch(context.Background(), "nope.tsv")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))
	assert.True(t, errors.IsNotFound(err))
}

func TestFSSourceFetchRejectsTraversal(t *testing.T) {
	t.Parallel()

	src := datasource.NewFSSource(t.TempDir(), nil)

	tests := []string{
		"../etc/passwd",
		"..",
		"/etc/passwd",
		"a/../../b",
		"",
	}
	for _, artifact := range tests {
		_, err := src.Fetch(context.Background(), artifact)
		require.Error(t, err, "artifact %q", artifact)
		assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest), "artifact %q: %v", artifact, err)
	}
}

func TestFSSourceFetchDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	src := datasource.NewFSSource(dir, nil)

	_, err := src.Fetch(context.Background(), "sub")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactReadFailed))
}

func TestFSSourceFetchCancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteDataset(t, dir)
	src := datasource.NewFSSource(dir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Fetch(ctx, testutil.TableArtifact)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}

func TestFSSourceHealthy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := datasource.NewFSSource(dir, nil)
	assert.NoError(t, src.Healthy(context.Background()))

	missing := datasource.NewFSSource(filepath.Join(dir, "absent"), nil)
	err := missing.Healthy(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceUnavailable))
}

func TestFSSourceDescribe(t *testing.T) {
	t.Parallel()

	src := datasource.NewFSSource("/srv/data", nil)
	assert.Equal(t, "fs:/srv/data", src.Describe())
}
