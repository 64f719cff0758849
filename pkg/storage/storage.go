package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// URLSigner turns a stored object name into a short-lived fetchable URL.
type URLSigner interface {
	SignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ObjectStorage holds the object storage client instance.
type ObjectStorage struct {
	conn   *minio.Client
	bucket string
}

// NewObjectStorage establishes the object storage connection and verifies it.
func NewObjectStorage(endpoint, accessKeyID, secretAccessKey, bucket string, useSSL bool) (*ObjectStorage, error) {
	conn, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %v", err)
	}

	// Check connection by probing the bucket
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := conn.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to establish minio connection: %v", err)
	}
	if !exists {
		if err := conn.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %v", bucket, err)
		}
	}

	return &ObjectStorage{conn: conn, bucket: bucket}, nil
}

// SignedGetURL returns a presigned GET URL for the given object name.
func (o *ObjectStorage) SignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presignedURL, err := o.conn.PresignedGetObject(ctx, o.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %v", objectName, err)
	}
	return presignedURL.String(), nil
}
