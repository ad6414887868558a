package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hanko-field/ordersim/internal/services"
)

// RunsCollection holds one document per dataset run keyed by run id.
const RunsCollection = "datasetRuns"

const (
	defaultListLimit = 20
	saveRunAttempts  = 3
)

// RunRepository stores run manifests in Firestore.
type RunRepository struct {
	provider *Provider
	base     *BaseRepository[services.RunManifest]
}

// NewRunRepository binds a run repository to the provider.
func NewRunRepository(provider *Provider) (*RunRepository, error) {
	if provider == nil {
		return nil, errors.New("run repository: provider is required")
	}
	return &RunRepository{
		provider: provider,
		base:     NewBaseRepository[services.RunManifest](provider, RunsCollection, nil),
	}, nil
}

// SaveRun records the manifest. Saving the same run twice with an identical signature and seed is
// a no-op; any other overwrite is rejected as a conflict since manifests are immutable.
func (r *RunRepository) SaveRun(ctx context.Context, manifest services.RunManifest) error {
	runID := strings.TrimSpace(manifest.RunID)
	if runID == "" {
		return errors.New("run repository: run id is required")
	}
	ref, err := r.base.DocumentRef(ctx, runID)
	if err != nil {
		return err
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			return tx.Create(ref, manifest)
		case err != nil:
			return err
		}
		existing, err := r.base.Decode(snap)
		if err != nil {
			return err
		}
		if existing.Data.Seed == manifest.Seed && existing.Data.Signature == manifest.Signature {
			return nil
		}
		return status.Errorf(codes.AlreadyExists, "run %s already recorded", runID)
	}, WithTxAttempts(saveRunAttempts))
}

// GetRun loads the manifest of a run.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (services.RunManifest, error) {
	doc, err := r.base.Get(ctx, runID)
	if err != nil {
		if IsNotFound(err) {
			return services.RunManifest{}, fmt.Errorf("%w: %s", services.ErrRunNotFound, runID)
		}
		return services.RunManifest{}, err
	}
	return doc.Data, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]services.RunManifest, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	runs := make([]services.RunManifest, 0, len(docs))
	for _, doc := range docs {
		runs = append(runs, doc.Data)
	}
	return runs, nil
}
