package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordingWriter struct {
	bundles   []DatasetBundle
	manifests []RunManifest
	calls     *[]string
}

func (w *recordingWriter) WriteDataset(_ context.Context, bundle DatasetBundle) ([]Artifact, error) {
	*w.calls = append(*w.calls, "write")
	w.bundles = append(w.bundles, bundle)
	return []Artifact{
		{Name: "orders.csv", Format: "csv", Path: bundle.OutputDir + "/orders.csv", SHA256: "aa"},
		{Name: "daily.csv", Format: "daily", Path: bundle.OutputDir + "/daily.csv", SHA256: "bb"},
	}, nil
}

func (w *recordingWriter) WriteManifest(_ context.Context, outputDir string, manifest RunManifest) (Artifact, error) {
	*w.calls = append(*w.calls, "manifest")
	w.manifests = append(w.manifests, manifest)
	return Artifact{Name: "manifest.json", Format: "manifest", Path: outputDir + "/manifest.json"}, nil
}

type recordingUploader struct {
	calls *[]string
	err   error
}

func (u *recordingUploader) UploadArtifacts(_ context.Context, runID string, _ time.Time, artifacts []Artifact) ([]Artifact, error) {
	*u.calls = append(*u.calls, "upload")
	if u.err != nil {
		return nil, u.err
	}
	out := make([]Artifact, len(artifacts))
	for i, a := range artifacts {
		a.URI = "gs://bucket/" + runID + "/" + a.Name
		out[i] = a
	}
	return out, nil
}

type memoryRuns struct {
	calls *[]string
	runs  map[string]RunManifest
}

func (r *memoryRuns) SaveRun(_ context.Context, manifest RunManifest) error {
	*r.calls = append(*r.calls, "save")
	r.runs[manifest.RunID] = manifest
	return nil
}

func (r *memoryRuns) GetRun(_ context.Context, runID string) (RunManifest, error) {
	m, ok := r.runs[runID]
	if !ok {
		return RunManifest{}, ErrRunNotFound
	}
	return m, nil
}

type recordingPublisher struct {
	calls    *[]string
	messages []DatasetGeneratedMessage
}

func (p *recordingPublisher) PublishDatasetGenerated(_ context.Context, message DatasetGeneratedMessage) (string, error) {
	*p.calls = append(*p.calls, "publish")
	p.messages = append(p.messages, message)
	return "msg-1", nil
}

type staticSigner struct{ payloads [][]byte }

func (s *staticSigner) SignManifest(_ context.Context, payload []byte) (string, error) {
	s.payloads = append(s.payloads, payload)
	return "sig", nil
}

func smallCommand() GenerateDatasetCommand {
	settings := DefaultSimulationSettings()
	settings.Seed = 11
	settings.NumberOfSKUs = 6
	settings.NumberOfMonths = 1
	settings.EndDate = time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	return GenerateDatasetCommand{Settings: settings, OutputDir: "/tmp/run", Smooth: true}
}

func TestDatasetServiceGeneratesAndDistributes(t *testing.T) {
	var calls []string
	writer := &recordingWriter{calls: &calls}
	runs := &memoryRuns{calls: &calls, runs: map[string]RunManifest{}}
	publisher := &recordingPublisher{calls: &calls}
	signer := &staticSigner{}
	now := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

	svc, err := NewDatasetService(DatasetServiceDeps{
		Writer:    writer,
		Uploader:  &recordingUploader{calls: &calls},
		Runs:      runs,
		Publisher: publisher,
		Signer:    signer,
		Clock:     func() time.Time { return now },
		IDGen:     func() string { return "run-1" },
	})
	if err != nil {
		t.Fatalf("NewDatasetService error: %v", err)
	}

	run, err := svc.GenerateDataset(context.Background(), smallCommand())
	if err != nil {
		t.Fatalf("GenerateDataset error: %v", err)
	}

	want := []string{"write", "upload", "manifest", "upload", "save", "publish"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected call order %v", calls)
	}
	if run.RunID != "run-1" || run.MessageID != "msg-1" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Smoothing == nil || run.Manifest.Smoothing == nil {
		t.Fatalf("expected smoothing report")
	}
	if len(run.Artifacts) != 3 {
		t.Fatalf("expected data artifacts plus manifest, got %d", len(run.Artifacts))
	}
	for _, a := range run.Artifacts {
		if !strings.HasPrefix(a.URI, "gs://bucket/run-1/") {
			t.Fatalf("artifact %s not uploaded: %+v", a.Name, a)
		}
	}

	manifest := runs.runs["run-1"]
	if manifest.Signature != "sig" || manifest.Seed != 11 {
		t.Fatalf("unexpected stored manifest %+v", manifest)
	}
	if manifest.Counts.Orders != len(run.Result.Orders) || manifest.Counts.DailyPoints != len(run.Daily) {
		t.Fatalf("manifest counts do not match run: %+v", manifest.Counts)
	}
	if len(manifest.SKUs) != 6 || len(manifest.Settings.Discounts) != 8 {
		t.Fatalf("unexpected manifest detail: %d skus, %d discounts", len(manifest.SKUs), len(manifest.Settings.Discounts))
	}
	if len(signer.payloads) != 1 || strings.Contains(string(signer.payloads[0]), `"signature"`) {
		t.Fatalf("signature must cover the unsigned manifest")
	}

	msg := publisher.messages[0]
	if msg.RunID != "run-1" || msg.Orders != manifest.Counts.Orders || msg.StartDate != "2024-03-01" {
		t.Fatalf("unexpected message %+v", msg)
	}

	stored, err := svc.GetRun(context.Background(), "run-1")
	if err != nil || stored.RunID != "run-1" {
		t.Fatalf("GetRun returned %+v, %v", stored, err)
	}
	if _, err := svc.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDatasetServiceKeepsLocalOutputWhenSinksFail(t *testing.T) {
	var calls []string
	writer := &recordingWriter{calls: &calls}
	publisher := &recordingPublisher{calls: &calls}
	svc, err := NewDatasetService(DatasetServiceDeps{
		Writer:    writer,
		Uploader:  &recordingUploader{calls: &calls, err: errors.New("bucket missing")},
		Publisher: publisher,
		IDGen:     func() string { return "run-2" },
	})
	if err != nil {
		t.Fatalf("NewDatasetService error: %v", err)
	}

	run, err := svc.GenerateDataset(context.Background(), smallCommand())
	if err == nil || !strings.Contains(err.Error(), "bucket missing") {
		t.Fatalf("expected upload failure, got %v", err)
	}
	if len(writer.manifests) != 1 || len(run.Artifacts) != 3 {
		t.Fatalf("local output must still be written: %d manifests, %d artifacts", len(writer.manifests), len(run.Artifacts))
	}
	if len(publisher.messages) != 1 {
		t.Fatalf("publisher should still announce the run")
	}
	if len(run.SinkErrors) != 1 {
		t.Fatalf("expected one sink error, got %v", run.SinkErrors)
	}
}

func TestNewDatasetServiceRequiresWriter(t *testing.T) {
	if _, err := NewDatasetService(DatasetServiceDeps{}); err == nil {
		t.Fatalf("expected error without writer")
	}
}

func TestDatasetServiceListRunsRequiresLister(t *testing.T) {
	var calls []string
	svc, err := NewDatasetService(DatasetServiceDeps{
		Writer: &recordingWriter{calls: &calls},
		Runs:   &memoryRuns{calls: &calls, runs: map[string]RunManifest{}},
	})
	if err != nil {
		t.Fatalf("NewDatasetService error: %v", err)
	}
	if _, err := svc.ListRuns(context.Background(), 5); !errors.Is(err, ErrRunListingUnsupported) {
		t.Fatalf("expected ErrRunListingUnsupported, got %v", err)
	}
}
