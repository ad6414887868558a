package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// ObjectStore is the subset of Cloud Storage the uploader needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, object string, attrs ObjectAttrs, body io.Reader) error
	Copy(ctx context.Context, bucket, srcObject, dstObject string) error
}

// ObjectAttrs are written with each object.
type ObjectAttrs struct {
	ContentType string
	Metadata    map[string]string
}

// GCSStore writes objects through a Cloud Storage client.
type GCSStore struct {
	client *gcs.Client
}

// NewGCSStore constructs a GCSStore backed by the provided client.
func NewGCSStore(client *gcs.Client) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	return &GCSStore{client: client}, nil
}

// Put streams body to bucket/object.
func (s *GCSStore) Put(ctx context.Context, bucket, object string, attrs ObjectAttrs, body io.Reader) error {
	if s == nil || s.client == nil {
		return errors.New("storage: client is not initialised")
	}
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = attrs.ContentType
	w.Metadata = attrs.Metadata
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: finalize %s: %w", object, err)
	}
	return nil
}

// Copy duplicates an object within a bucket. Copying an object onto itself is a no-op.
func (s *GCSStore) Copy(ctx context.Context, bucket, srcObject, dstObject string) error {
	if s == nil || s.client == nil {
		return errors.New("storage: client is not initialised")
	}
	src := strings.TrimSpace(srcObject)
	dst := strings.TrimSpace(dstObject)
	if strings.TrimSpace(bucket) == "" || src == "" || dst == "" {
		return errors.New("storage: bucket, source and destination must be provided")
	}
	if src == dst {
		return nil
	}
	b := s.client.Bucket(bucket)
	if _, err := b.Object(dst).CopierFrom(b.Object(src)).Run(ctx); err != nil {
		return fmt.Errorf("storage: copy %s to %s: %w", src, dst, err)
	}
	return nil
}
