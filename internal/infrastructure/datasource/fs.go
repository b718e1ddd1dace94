package datasource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// FSSource serves artifacts from a directory on the local filesystem.
type FSSource struct {
	root   string
	logger logging.Logger
}

// NewFSSource creates a filesystem source rooted at root.
func NewFSSource(root string, log logging.Logger) *FSSource {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FSSource{root: root, logger: log.Named("datasource.fs")}
}

// Fetch opens root/artifact.  Artifact names must stay inside the root
// directory; absolute paths and ".." segments are rejected.
func (s *FSSource) Fetch(ctx context.Context, artifact string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "fetch cancelled")
	}
	if artifact == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "artifact name is empty")
	}

	clean := filepath.Clean(artifact)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, errors.Newf(errors.ErrCodeBadRequest, "artifact name %q escapes the data root", artifact)
	}

	full := filepath.Join(s.root, clean)
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeArtifactNotFound, "artifact %q not found under %s", artifact, s.root)
		}
		return nil, errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "opening artifact "+artifact)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "stat artifact "+artifact)
	}
	if info.IsDir() {
		f.Close()
		return nil, errors.Newf(errors.ErrCodeArtifactReadFailed, "artifact %q is a directory", artifact)
	}

	s.logger.Debug("artifact opened",
		logging.String("artifact", artifact),
		logging.Int64("size_bytes", info.Size()),
	)
	return f, nil
}

// Healthy verifies the root directory exists and is a directory.
func (s *FSSource) Healthy(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeTimeout, "health check cancelled")
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "data root "+s.root)
	}
	if !info.IsDir() {
		return errors.Newf(errors.ErrCodeDataSourceUnavailable, "data root %s is not a directory", s.root)
	}
	return nil
}

// Describe returns "fs:<root>".
func (s *FSSource) Describe() string { return "fs:" + s.root }
