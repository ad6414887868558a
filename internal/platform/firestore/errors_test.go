package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hanko-field/ordersim/internal/platform/config"
)

func TestWrapErrorClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.AlreadyExists, conflict: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.ResourceExhausted, unavailable: true},
		{code: codes.PermissionDenied},
	}
	for _, tc := range cases {
		err := WrapError("datasetRuns.get", status.Error(tc.code, "boom"))
		var repoErr *Error
		if !errors.As(err, &repoErr) {
			t.Fatalf("%s: expected *Error, got %T", tc.code, err)
		}
		if repoErr.IsNotFound() != tc.notFound || repoErr.IsConflict() != tc.conflict || repoErr.IsUnavailable() != tc.unavailable {
			t.Fatalf("%s: unexpected classification %+v", tc.code, repoErr)
		}
		if status.Code(errors.Unwrap(err)) != tc.code {
			t.Fatalf("%s: underlying status lost", tc.code)
		}
	}
}

func TestWrapErrorPassesContextErrorsThrough(t *testing.T) {
	if err := WrapError("op", context.Canceled); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", status.Error(codes.DeadlineExceeded, "slow")); err != context.DeadlineExceeded {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapErrorKeepsExistingClassification(t *testing.T) {
	inner := WrapError("", status.Error(codes.NotFound, "missing"))
	outer := WrapError("datasetRuns.get", inner)
	if !IsNotFound(outer) {
		t.Fatalf("expected not found classification to survive")
	}
	if outer.Error() != "datasetRuns.get: rpc error: code = NotFound desc = missing" {
		t.Fatalf("unexpected message %q", outer.Error())
	}
	if IsConflict(outer) {
		t.Fatalf("not found must not be a conflict")
	}
}

func TestRepositoryRejectsMissingInputs(t *testing.T) {
	if _, err := NewRunRepository(nil); err == nil {
		t.Fatalf("expected error without provider")
	}
	repo := NewBaseRepository[struct{}](nil, RunsCollection, nil)
	if _, err := repo.DocumentRef(context.Background(), " "); err == nil {
		t.Fatalf("expected error for blank id")
	}
	if _, err := repo.Get(context.Background(), "run-1"); err == nil {
		t.Fatalf("expected error without provider")
	}
}

func TestProviderClosedRejectsClient(t *testing.T) {
	provider := NewProvider(config.FirestoreConfig{ProjectID: "demo"})
	if err := provider.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := provider.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}
