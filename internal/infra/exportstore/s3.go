package exportstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver keeps a copy of generated export files so support can replay what
// a tenant downloaded. Archival is best effort and never blocks a download.
type Archiver interface {
	Archive(ctx context.Context, tenant, format string, data []byte) (string, error)
}

// S3Archiver stores export artifacts in an S3-compatible bucket.
type S3Archiver struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewS3Archiver constructs the archiver.
func NewS3Archiver(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*S3Archiver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := strings.HasPrefix(strings.ToLower(endpoint), "https")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Archiver{client: client, bucket: bucket, logger: logger.With("component", "exportstore.s3")}, nil
}

func (s *S3Archiver) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// Archive uploads the export payload and returns the object key.
func (s *S3Archiver) Archive(ctx context.Context, tenant, format string, data []byte) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := fmt.Sprintf("exports/%s/%s-%s.%s",
		tenant, time.Now().UTC().Format("20060102T150405"), uuid.NewString(), format)
	contentType := "text/csv"
	if format == "json" {
		contentType = "application/json"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: len(data) < 5*1024*1024,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("export archived", "tenant", tenant, "key", key, "bytes", len(data))
	return key, nil
}

func sanitizeEndpoint(endpoint string) string {
	trimmed := strings.TrimSpace(endpoint)
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	return strings.TrimRight(trimmed, "/")
}

// NoopArchiver is used when no archive bucket is configured.
type NoopArchiver struct{}

// Archive discards the payload.
func (NoopArchiver) Archive(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

var (
	_ Archiver = (*S3Archiver)(nil)
	_ Archiver = NoopArchiver{}
)
