// Package storage reads raw batch files from S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/unify/internal/domain/shared"
	infraconfig "github.com/erp/unify/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Scheme is the URI scheme of object storage paths
const Scheme = "s3://"

// Location addresses one object
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return Scheme + l.Bucket + "/" + l.Key
}

// IsRemote reports whether path addresses object storage
func IsRemote(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// ParseURI splits s3://bucket/key. A bare s3://key falls back to defaultBucket.
func ParseURI(uri, defaultBucket string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, Scheme)
	if !ok {
		return Location{}, fmt.Errorf("not an object storage path: %q", uri)
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found {
		bucket, key = defaultBucket, rest
	}
	if bucket == "" || key == "" {
		return Location{}, fmt.Errorf("object storage path needs a bucket and a key: %q", uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// ObjectInfo is the metadata returned by Stat
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
}

// S3Fetcher opens raw batch objects. Works against AWS S3, MinIO, RustFS and
// other S3-compatible stores.
type S3Fetcher struct {
	client        *s3.Client
	defaultBucket string
	logger        *zap.Logger
}

// Option configures an S3Fetcher
type Option func(*S3Fetcher)

// WithLogger sets the fetcher logger
func WithLogger(logger *zap.Logger) Option {
	return func(f *S3Fetcher) {
		f.logger = logger
	}
}

// NewS3Fetcher builds a client from configuration. Without an access key the
// default AWS credential chain is used.
func NewS3Fetcher(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...Option) (*S3Fetcher, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.AccessKey != "" && cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required with an access key")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	f := &S3Fetcher{
		client:        client,
		defaultBucket: cfg.Bucket,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// DefaultBucket returns the bucket used for s3:// paths without one
func (f *S3Fetcher) DefaultBucket() string {
	return f.defaultBucket
}

// Open returns the object body and its size. A missing object wraps shared.ErrNotFound.
func (f *S3Fetcher) Open(ctx context.Context, uri string) (io.ReadCloser, int64, error) {
	loc, err := ParseURI(uri, f.defaultBucket)
	if err != nil {
		return nil, 0, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, 0, f.wrap(loc, "get", err)
	}
	f.logger.Debug("object opened", zap.String("location", loc.String()), zap.Int64("size", aws.ToInt64(out.ContentLength)))
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// Stat returns object metadata without reading the body
func (f *S3Fetcher) Stat(ctx context.Context, uri string) (*ObjectInfo, error) {
	loc, err := ParseURI(uri, f.defaultBucket)
	if err != nil {
		return nil, err
	}
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, f.wrap(loc, "head", err)
	}
	return &ObjectInfo{
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (f *S3Fetcher) wrap(loc Location, op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", loc, shared.ErrNotFound)
	}
	return fmt.Errorf("failed to %s object %s: %w", op, loc, err)
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return true
	}
	// some S3-compatible services only carry the code in the message
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey")
}
