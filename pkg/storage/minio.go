package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store writes split audio channels to a MinIO bucket.
type Store struct {
	client     *minio.Client
	bucketName string
}

// InitMinIOClient initializes and returns a MinIO client
func InitMinIOClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minIO client init error: %s", err)
	}

	return minioClient, nil
}

// NewStore creates a Store backed by the given client and bucket.
func NewStore(client *minio.Client, bucketName string) *Store {
	return &Store{client: client, bucketName: bucketName}
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("error creating bucket: %w", err)
		}
		log.Printf("✓ Created bucket: %s\n", s.bucketName)
	}

	return nil
}

// UploadChannel uploads one mono channel under a key derived only from the
// content hash, channel index and extension. Re-uploading after a retry
// overwrites the same object instead of creating a duplicate.
func (s *Store) UploadChannel(ctx context.Context, data []byte, fileHash string, channel int, extension string) (string, error) {
	objName := fmt.Sprintf("%s_%d.%s", fileHash, channel, extension)

	contentType := mime.TypeByExtension("." + extension)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(
		ctx,
		s.bucketName,
		objName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("upload object error: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucketName, objName), nil
}
