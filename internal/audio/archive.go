package audio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/streed/study-notes/internal/config"
	"github.com/streed/study-notes/internal/logger"
)

// Archive keeps a copy of raw uploads. Implementations return the object key.
type Archive interface {
	Store(ctx context.Context, upload *Upload) (string, error)
}

// MinIOArchive stores uploads in an S3 compatible bucket.
type MinIOArchive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
	newID  func() string
}

// NewMinIOArchive connects to the configured endpoint and creates the bucket
// when it does not exist yet.
func NewMinIOArchive(ctx context.Context, cfg config.ArchiveConfig) (*MinIOArchive, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is not configured")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Created archive bucket %s", cfg.Bucket)
	}

	return &MinIOArchive{
		client: client,
		bucket: cfg.Bucket,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

func (a *MinIOArchive) Store(ctx context.Context, upload *Upload) (string, error) {
	key := objectKey(a.now(), a.newID(), upload.Extension)

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(upload.Data), int64(len(upload.Data)),
		minio.PutObjectOptions{
			ContentType:  upload.MediaType,
			UserMetadata: map[string]string{"original-filename": upload.Filename},
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.Debug("Archived %d bytes to %s/%s", len(upload.Data), a.bucket, key)
	return key, nil
}

func objectKey(t time.Time, id, ext string) string {
	t = t.UTC()
	return fmt.Sprintf("audio/%04d/%02d/%s%s", t.Year(), int(t.Month()), id, ext)
}
