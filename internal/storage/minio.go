package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/deliverydesk/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DocumentStore hands out short-lived links to uploaded booking documents.
type DocumentStore struct {
	client  *minio.Client
	bucket  string
	linkTTL time.Duration
}

func NewDocumentStore(cfg config.MinioConfig) (*DocumentStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &DocumentStore{
		client:  client,
		bucket:  cfg.Bucket,
		linkTTL: cfg.LinkTTL(),
	}, nil
}

// CheckBucket verifies the document bucket is reachable.
func (s *DocumentStore) CheckBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// PresignedURL signs a GET for objectKey. Links that are already absolute
// URLs are returned unchanged.
func (s *DocumentStore) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	if strings.HasPrefix(objectKey, "http://") || strings.HasPrefix(objectKey, "https://") {
		return objectKey, nil
	}

	params := url.Values{}
	params.Set("response-content-disposition", "inline")
	u, err := s.client.PresignedGetObject(ctx, s.bucket, strings.TrimPrefix(objectKey, "/"), s.linkTTL, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}
