package storage

import (
	"bytes"
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
	"github.com/storefront/merchandising/internal/domain/catalog"
	infraconfig "github.com/storefront/merchandising/internal/infrastructure/config"
	"go.uber.org/zap"
)

// s3API is the subset of the S3 client used here
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3MediaUploader implements catalog.MediaUploader on any S3-compatible
// store (AWS S3, MinIO, RustFS).
type S3MediaUploader struct {
	client    s3API
	bucket    string
	keyPrefix string
	baseURL   string
	maxSize   int64
	now       func() time.Time
	logger    *zap.Logger
}

// S3MediaUploaderOption is a functional option for configuring S3MediaUploader
type S3MediaUploaderOption func(*S3MediaUploader)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3MediaUploaderOption {
	return func(u *S3MediaUploader) {
		u.logger = logger
	}
}

// WithMaxSize caps the accepted upload size in bytes
func WithMaxSize(n int64) S3MediaUploaderOption {
	return func(u *S3MediaUploader) {
		u.maxSize = n
	}
}

// NewS3MediaUploader creates an uploader from configuration
func NewS3MediaUploader(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3MediaUploaderOption) (*S3MediaUploader, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	baseURL, err := publicBaseURL(cfg)
	if err != nil {
		return nil, err
	}

	return newS3MediaUploader(client, cfg.Bucket, cfg.KeyPrefix, baseURL, opts...), nil
}

func newS3MediaUploader(client s3API, bucket, keyPrefix, baseURL string, opts ...S3MediaUploaderOption) *S3MediaUploader {
	u := &S3MediaUploader{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// publicBaseURL resolves where uploaded objects are served from
func publicBaseURL(cfg *infraconfig.StorageConfig) (string, error) {
	if cfg.PublicBaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.PublicBaseURL); err != nil {
			return "", fmt.Errorf("invalid storage public base url: %w", err)
		}
		return cfg.PublicBaseURL, nil
	}
	if cfg.Endpoint != "" {
		endpoint := strings.TrimRight(cfg.Endpoint, "/")
		if cfg.UsePathStyle {
			return endpoint + "/" + cfg.Bucket, nil
		}
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("invalid storage endpoint: %w", err)
		}
		u.Host = cfg.Bucket + "." + u.Host
		return u.String(), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region), nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (u *S3MediaUploader) EnsureBucket(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	u.logger.Info("Creating media bucket", zap.String("bucket", u.bucket))
	if _, err := u.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(u.bucket)}); err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores file under a fresh key and returns its public URL.
// The body is buffered so the SDK can sign a seekable payload.
func (u *S3MediaUploader) Upload(ctx context.Context, file catalog.MediaFile, kind catalog.MediaType) (string, error) {
	ext, err := checkMediaFile(file, kind, u.maxSize)
	if err != nil {
		return "", err
	}

	body := file.Body
	if u.maxSize > 0 {
		body = io.LimitReader(body, u.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}
	if u.maxSize > 0 && int64(len(data)) > u.maxSize {
		return "", catalog.NewValidationError("Media file exceeds %d bytes", u.maxSize)
	}

	key := objectKey(u.keyPrefix, kind, ext, u.now())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(normalizeContentType(file.ContentType)),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	u.logger.Debug("Media uploaded",
		zap.String("key", key),
		zap.String("kind", string(kind)),
		zap.Int("bytes", len(data)),
	)
	return u.baseURL + "/" + key, nil
}

var _ catalog.MediaUploader = (*S3MediaUploader)(nil)
