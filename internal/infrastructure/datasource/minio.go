package datasource

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// ObjectAPI is the narrow slice of the MinIO SDK the source needs.  GetObject
// returns an io.ReadCloser rather than *minio.Object so tests can fake it.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// sdkAPI adapts *minio.Client to ObjectAPI.
type sdkAPI struct {
	client *minio.Client
}

func (a sdkAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return a.client.BucketExists(ctx, bucket)
}

func (a sdkAPI) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucket, key, opts)
}

func (a sdkAPI) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.client.GetObject(ctx, bucket, key, opts)
}

// MinIOSource serves artifacts from a bucket in a MinIO / S3-compatible
// object store.
type MinIOSource struct {
	api      ObjectAPI
	endpoint string
	bucket   string
	prefix   string
	logger   logging.Logger
}

// NewMinIOSource connects to the configured endpoint and verifies the bucket
// is reachable before returning.
func NewMinIOSource(cfg config.MinIOConfig, log logging.Logger) (*MinIOSource, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "creating minio client")
	}

	src := &MinIOSource{
		api:      sdkAPI{client: client},
		endpoint: cfg.Endpoint,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		logger:   log.Named("datasource.minio"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := src.Healthy(ctx); err != nil {
		return nil, err
	}

	src.logger.Info("minio source connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL),
	)
	return src, nil
}

// NewMinIOSourceFromAPI builds a source over an existing ObjectAPI.  Used by
// tests and by callers that manage their own client.
func NewMinIOSourceFromAPI(api ObjectAPI, endpoint, bucket, prefix string, log logging.Logger) *MinIOSource {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MinIOSource{
		api:      api,
		endpoint: endpoint,
		bucket:   bucket,
		prefix:   prefix,
		logger:   log.Named("datasource.minio"),
	}
}

// Fetch stats and opens <prefix>/<artifact> from the bucket.
func (s *MinIOSource) Fetch(ctx context.Context, artifact string) (io.ReadCloser, error) {
	if artifact == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "artifact name is empty")
	}
	key := path.Join(s.prefix, artifact)

	// Stat first so a missing object surfaces here instead of on first read.
	if _, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.Newf(errors.ErrCodeArtifactNotFound, "artifact %q not found in bucket %s", key, s.bucket)
		}
		return nil, errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "stat artifact "+key)
	}

	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactReadFailed, "fetching artifact "+key)
	}

	s.logger.Debug("artifact opened",
		logging.String("bucket", s.bucket),
		logging.String("key", key),
	)
	return obj, nil
}

// Healthy verifies the bucket exists and is reachable.
func (s *MinIOSource) Healthy(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "minio endpoint "+s.endpoint)
	}
	if !exists {
		return errors.Newf(errors.ErrCodeDataSourceUnavailable, "bucket %s does not exist", s.bucket)
	}
	return nil
}

// Describe returns "minio:<endpoint>/<bucket>/<prefix>".
func (s *MinIOSource) Describe() string {
	out := "minio:" + s.endpoint + "/" + s.bucket
	if s.prefix != "" {
		out += "/" + s.prefix
	}
	return out
}
