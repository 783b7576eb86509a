// Package archive persists long-form message content to blob storage and
// hands back the URL clients use to fetch it (the view-text link).
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver stores message content and returns its public URL.
type Archiver interface {
	Save(ctx context.Context, objectName string, content []byte, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// MinioArchiver stores archived content in a MinIO (or S3-compatible) bucket.
type MinioArchiver struct {
	mc      *minio.Client
	bucket  string
	baseURL string
}

func NewMinioArchiver(endpoint, accessKey, secretKey string, useTLS bool, bucket string) (*MinioArchiver, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, err
	}

	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	return &MinioArchiver{
		mc:      mc,
		bucket:  bucket,
		baseURL: fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket),
	}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (a *MinioArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.mc.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return a.mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (a *MinioArchiver) Save(ctx context.Context, objectName string, content []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	_, err := a.mc.PutObject(ctx, a.bucket, objectName, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("error archiving content: %w", err)
	}
	return a.baseURL + "/" + objectName, nil
}

func (a *MinioArchiver) Delete(ctx context.Context, objectName string) error {
	return a.mc.RemoveObject(ctx, a.bucket, objectName, minio.RemoveObjectOptions{})
}
