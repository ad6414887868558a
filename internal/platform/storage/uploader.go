package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hanko-field/ordersim/internal/services"
)

// DatasetUploaderOptions configures NewDatasetUploader.
type DatasetUploaderOptions struct {
	Store  ObjectStore
	Bucket string
	Prefix string
	// MirrorLatest copies every uploaded artifact to "<prefix>/latest/".
	MirrorLatest bool
	Logger       *zap.Logger
}

// DatasetUploader copies local artifacts into Cloud Storage. It satisfies services.ArtifactUploader.
type DatasetUploader struct {
	store        ObjectStore
	bucket       string
	prefix       string
	mirrorLatest bool
	logger       *zap.Logger
}

// NewDatasetUploader validates the options.
func NewDatasetUploader(opts DatasetUploaderOptions) (*DatasetUploader, error) {
	if opts.Store == nil {
		return nil, errors.New("dataset uploader: store is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("dataset uploader: bucket is required")
	}
	prefix, err := validatePrefix(opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("dataset uploader: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetUploader{
		store:        opts.Store,
		bucket:       bucket,
		prefix:       prefix,
		mirrorLatest: opts.MirrorLatest,
		logger:       logger.Named("storage"),
	}, nil
}

// UploadArtifacts uploads each artifact and returns copies carrying their gs:// URI. Uploading
// stops at the first failure; artifacts uploaded before it are returned with the error.
func (u *DatasetUploader) UploadArtifacts(ctx context.Context, runID string, createdAt time.Time, artifacts []services.Artifact) ([]services.Artifact, error) {
	out := make([]services.Artifact, 0, len(artifacts))
	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		object, err := DatasetObjectPath(u.prefix, createdAt, runID, artifact.Name)
		if err != nil {
			return out, err
		}
		if err := u.put(ctx, runID, object, artifact); err != nil {
			return out, err
		}
		if u.mirrorLatest {
			latest, err := LatestObjectPath(u.prefix, artifact.Name)
			if err != nil {
				return out, err
			}
			if err := u.store.Copy(ctx, u.bucket, object, latest); err != nil {
				return out, err
			}
		}
		artifact.URI = ObjectURI(u.bucket, object)
		out = append(out, artifact)
		u.logger.Info("artifact uploaded",
			zap.String("run_id", runID),
			zap.String("uri", artifact.URI),
			zap.Int64("bytes", artifact.Size),
		)
	}
	return out, nil
}

func (u *DatasetUploader) put(ctx context.Context, runID, object string, artifact services.Artifact) error {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("dataset uploader: open %s: %w", artifact.Path, err)
	}
	defer file.Close()

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attrs := ObjectAttrs{
		ContentType: contentType,
		Metadata: map[string]string{
			"runId":  runID,
			"format": artifact.Format,
			"sha256": artifact.SHA256,
		},
	}
	return u.store.Put(ctx, u.bucket, object, attrs, file)
}
