package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
)

// Config holds S3-compatible endpoint settings.
type Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// S3Client implements ObjectStore with the minio-go SDK.
type S3Client struct {
	client *minio.Client
	cfg    Config
}

var _ ObjectStore = (*S3Client)(nil)

// NewS3Client validates cfg and creates a client. Missing settings are
// reported as errs.KindStorageConfig.
func NewS3Client(cfg Config) (*S3Client, error) {
	if cfg.EndpointURL == "" {
		return nil, errs.E(errs.KindStorageConfig, "storage.new",
			wrapError(CodeConfigInvalid, false, fmt.Errorf("endpoint URL is required")))
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errs.E(errs.KindStorageConfig, "storage.new",
			wrapError(CodeAuthInvalid, false, fmt.Errorf("access key and secret key are required")))
	}

	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return nil, errs.E(errs.KindStorageConfig, "storage.new",
			wrapError(CodeConfigInvalid, false, fmt.Errorf("invalid endpoint URL: %w", err)))
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.EndpointURL
	}

	useSSL := cfg.UseSSL
	if u.Scheme == "https" {
		useSSL = true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.E(errs.KindStorageConfig, "storage.new",
			wrapError(CodeConfigInvalid, false, fmt.Errorf("create client: %w", err)))
	}

	return &S3Client{client: client, cfg: cfg}, nil
}

// Ping checks that the endpoint answers with the configured credentials.
func (s *S3Client) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return classifyMinioError(err)
	}
	return nil
}

func (s *S3Client) EnsureBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, fmt.Errorf("bucket name is required"))
	}

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return classifyMinioError(err)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
	if err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return nil
		}
		return classifyMinioError(err)
	}
	return nil
}

func (s *S3Client) Download(ctx context.Context, bucket, key, localPath string) error {
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, fmt.Errorf("bucket is required"))
	}
	if key == "" {
		return wrapError(CodeObjectNotFound, false, fmt.Errorf("object key is required"))
	}

	if err := s.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return classifyMinioError(err)
	}
	return nil
}

func (s *S3Client) Upload(ctx context.Context, localPath, bucket, key string) (string, error) {
	if bucket == "" {
		return "", wrapError(CodeBucketNotFound, false, fmt.Errorf("bucket is required"))
	}
	if key == "" {
		return "", wrapError(CodeWriteFailed, false, fmt.Errorf("object key is required"))
	}

	_, err := s.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return "", classifyMinioError(err)
	}
	return s.ObjectURL(bucket, key), nil
}

// ObjectURL returns the path-style URL of bucket/key.
func (s *S3Client) ObjectURL(bucket, key string) string {
	u := *s.client.EndpointURL()
	u.Path = "/" + path.Join(bucket, key)
	return u.String()
}

func contentType(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}

// classifyMinioError converts minio-go errors to *Error.
func classifyMinioError(err error) *Error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, false, err)
	case "NoSuchKey":
		return wrapError(CodeObjectNotFound, false, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, false, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return wrapError(CodeAuthInvalid, false, err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no such bucket"):
		return wrapError(CodeBucketNotFound, false, err)
	case strings.Contains(errStr, "no such key") || strings.Contains(errStr, "does not exist"):
		return wrapError(CodeObjectNotFound, false, err)
	case strings.Contains(errStr, "access denied") || strings.Contains(errStr, "permission"):
		return wrapError(CodePermissionDenied, false, err)
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return wrapError(CodeTimeout, true, err)
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return wrapError(CodeEndpointUnreachable, true, err)
	}

	return wrapError(CodeWriteFailed, true, err)
}
