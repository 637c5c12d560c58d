package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"expense_tracker/internal/config"
)

// FileStore is the narrow object-storage surface the task processor and the
// upload endpoints consume.
type FileStore interface {
	Download(ctx context.Context, path string) ([]byte, string, error)
	Upload(ctx context.Context, path string, data []byte, contentType string) error
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

// SetupMinio connects to the object store and ensures the bucket exists.
// Startup fails when the store is unreachable.
func SetupMinio(cfg *config.StorageConfig) *MinioStore {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logrus.Fatalf("Failed to create object storage client: %v", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		logrus.Fatalf("Failed to check storage bucket: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			logrus.Fatalf("Failed to create storage bucket %q: %v", cfg.Bucket, err)
		}
		logrus.Infof("Created storage bucket %q", cfg.Bucket)
	}

	logrus.Info("Object storage connection established successfully")
	return &MinioStore{client: client, bucket: cfg.Bucket}
}

func (s *MinioStore) Download(ctx context.Context, path string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", err
	}

	contentType := ""
	if stat, statErr := obj.Stat(); statErr == nil {
		contentType = stat.ContentType
	}
	return data, contentType, nil
}

func (s *MinioStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}
