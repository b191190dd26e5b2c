package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ImageStore keeps unit images in an S3-compatible bucket.
type ImageStore struct {
	client    objectPutter
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewImageStore connects to the bucket described by cfg, creating it when missing.
func NewImageStore(ctx context.Context, cfg config.StorageSettings, logger *zap.Logger) (*ImageStore, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Created image bucket", zap.String("bucket", cfg.Bucket))
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}

	logger.Info("Image storage initialized",
		zap.String("endpoint", endpoint),
		zap.String("bucket", cfg.Bucket),
	)

	return newImageStore(client, cfg.Bucket, publicURL, logger), nil
}

func newImageStore(client objectPutter, bucket, publicURL string, logger *zap.Logger) *ImageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger,
	}
}

// PutImage uploads body under key.
func (s *ImageStore) PutImage(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Debug("Image uploaded",
		zap.String("key", key),
		zap.Int64("size", info.Size),
	)
	return nil
}

// ImageURL returns the public address of key.
func (s *ImageStore) ImageURL(key string) string {
	return s.publicURL + "/" + strings.TrimPrefix(key, "/")
}

var _ port.ImageStore = (*ImageStore)(nil)
