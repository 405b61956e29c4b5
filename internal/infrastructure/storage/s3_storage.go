// Package storage uploads migration reports to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/infrastructure/config"
)

// DefaultRegion is used when the export settings name no region.
const DefaultRegion = "us-east-1"

// Storage configuration errors
var (
	ErrConfigRequired = errors.New("storage configuration is required")
	ErrBucketRequired = errors.New("storage bucket is required")
	ErrKeyRequired    = errors.New("storage key is required")
)

// S3ObjectStorage puts report objects into one bucket of AWS S3 or an
// S3-compatible store such as MinIO. Keys are placed under a fixed prefix.
type S3ObjectStorage struct {
	client *s3.Client
	bucket string
	prefix string
	log    *zap.Logger
}

// S3ObjectStorageOption configures S3ObjectStorage
type S3ObjectStorageOption func(*S3ObjectStorage)

// WithLogger logs uploads and bucket creation on a "storage" child of zl
func WithLogger(zl *zap.Logger) S3ObjectStorageOption {
	return func(s *S3ObjectStorage) {
		s.log = zl.Named("storage")
	}
}

// NewS3ObjectStorage connects to the bucket named in cfg. Static keys are
// optional; without them the default AWS credential chain applies.
func NewS3ObjectStorage(ctx context.Context, cfg *config.ExportConfig, opts ...S3ObjectStorageOption) (*S3ObjectStorage, error) {
	switch {
	case cfg == nil:
		return nil, ErrConfigRequired
	case cfg.S3Bucket == "":
		return nil, ErrBucketRequired
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &S3ObjectStorage{
		client: client,
		bucket: cfg.S3Bucket,
		prefix: strings.Trim(cfg.S3Prefix, "/"),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newS3Client(ctx context.Context, cfg *config.ExportConfig) (*s3.Client, error) {
	region := cfg.S3Region
	if region == "" {
		region = DefaultRegion
	}
	load := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.S3AccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
		load = append(load, awsconfig.WithCredentialsProvider(static))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	endpoint := cfg.S3Endpoint
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		// Self-hosted stores reject the default CRC trailers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// EnsureBucket creates the bucket when HeadBucket reports it missing.
func (s *S3ObjectStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isMissingBucket(err) {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}

	s.log.Info("Creating report bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func isMissingBucket(err error) bool {
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noSuchBucket)
}

// Upload puts data at the prefixed key and returns that key.
func (s *S3ObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}

	objectKey := s.objectKey(key)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", s.bucket, objectKey, err)
	}

	s.log.Info("Report uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", objectKey),
		zap.Int("bytes", len(data)),
	)
	return objectKey, nil
}

// Bucket returns the target bucket name
func (s *S3ObjectStorage) Bucket() string {
	return s.bucket
}

func (s *S3ObjectStorage) objectKey(key string) string {
	return path.Join(s.prefix, strings.TrimLeft(key, "/"))
}
