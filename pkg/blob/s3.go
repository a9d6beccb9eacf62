package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veeableful/folder/pkg/circuitbreaker"
	folders3 "github.com/veeableful/folder/pkg/s3"
)

const (
	otelPackageNameS3 = "github.com/veeableful/folder/pkg/blob"

	s3NoSuchKey = "NoSuchKey"
)

//nolint:gochecknoglobals
var s3Tracer trace.Tracer

//nolint:gochecknoinits
func init() {
	s3Tracer = otel.Tracer(otelPackageNameS3)
}

// S3Source fetches artifacts from an S3-compatible bucket at
// {prefix}/{name}/{artifactPath}, for indices published to object storage
// rather than served by a static file server.
type S3Source struct {
	client  *minio.Client
	bucket  string
	prefix  string
	name    string
	breaker *circuitbreaker.CircuitBreaker
}

// NewS3 returns a Source backed by an S3-compatible bucket, validating cfg
// the way pkg/s3.ValidateConfig requires.
func NewS3(cfg folders3.Config, name string) (*S3Source, error) {
	if err := folders3.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	useSSL := folders3.IsHTTPS(cfg.Endpoint)
	endpoint := folders3.GetEndpointWithoutScheme(cfg.Endpoint)

	bucketLookup := minio.BucketLookupAuto
	if cfg.ForcePathStyle {
		bucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       useSSL,
		Region:       cfg.Region,
		BucketLookup: bucketLookup,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: creating MinIO client: %w", err)
	}

	return &S3Source{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		name:    name,
		breaker: circuitbreaker.New(circuitbreaker.DefaultThreshold, circuitbreaker.DefaultTimeout),
	}, nil
}

// Fetch downloads {prefix}/{name}/{artifactPath} from the bucket.
func (s *S3Source) Fetch(ctx context.Context, artifactPath string) ([]byte, error) {
	key := path.Join(s.prefix, s.name, artifactPath)

	ctx, span := s3Tracer.Start(
		ctx,
		"blob.S3Source.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bucket", s.bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	if !s.breaker.AllowRequest() {
		return nil, ErrCircuitOpen
	}

	b, err := s.doFetch(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.breaker.RecordFailure()

		return nil, err
	}

	s.breaker.RecordSuccess()

	return b, err
}

func (s *S3Source) doFetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("blob: getting object %q: %w", key, err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == s3NoSuchKey {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("blob: stat-ing object %q: %w", key, err)
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, fmt.Errorf("blob: reading object %q: %w", key, err)
	}

	return buf.Bytes(), nil
}
