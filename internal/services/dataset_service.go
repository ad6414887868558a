package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/domain"
)

// ErrRunNotFound indicates a run record lookup found nothing.
var ErrRunNotFound = errors.New("dataset run: not found")

// ErrRunListingUnsupported indicates the configured run registry cannot list runs.
var ErrRunListingUnsupported = errors.New("dataset run: listing not supported")

// DatasetBundle is everything a writer needs to render one run.
type DatasetBundle struct {
	RunID     string
	OutputDir string
	Result    Result
	Daily     []domain.DailyPoint
}

// DatasetWriter renders runs to local files.
type DatasetWriter interface {
	WriteDataset(ctx context.Context, bundle DatasetBundle) ([]Artifact, error)
	WriteManifest(ctx context.Context, outputDir string, manifest RunManifest) (Artifact, error)
}

// ArtifactUploader copies local artifacts to durable storage and returns them with URI set.
type ArtifactUploader interface {
	UploadArtifacts(ctx context.Context, runID string, createdAt time.Time, artifacts []Artifact) ([]Artifact, error)
}

// RunRepository persists run manifests.
type RunRepository interface {
	SaveRun(ctx context.Context, manifest RunManifest) error
	GetRun(ctx context.Context, runID string) (RunManifest, error)
}

// RunLister is implemented by run repositories that can enumerate recent runs.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]RunManifest, error)
}

// ManifestSigner signs the canonical manifest encoding.
type ManifestSigner interface {
	SignManifest(ctx context.Context, payload []byte) (string, error)
}

// DatasetPublisher announces completed runs.
type DatasetPublisher interface {
	PublishDatasetGenerated(ctx context.Context, message DatasetGeneratedMessage) (string, error)
}

// DatasetGeneratedMessage is the payload delivered to subscribers when a run completes.
type DatasetGeneratedMessage struct {
	RunID       string     `json:"runId"`
	Seed        int64      `json:"seed"`
	StartDate   string     `json:"startDate"`
	EndDate     string     `json:"endDate"`
	Orders      int        `json:"orders"`
	LineItems   int        `json:"lineItems"`
	Artifacts   []Artifact `json:"artifacts"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// GenerateDatasetCommand requests one dataset run.
type GenerateDatasetCommand struct {
	Settings  SimulationSettings
	OutputDir string
	Smooth    bool
}

// DatasetRun is the outcome of GenerateDataset.
type DatasetRun struct {
	RunID       string
	Result      Result
	Daily       []domain.DailyPoint
	Manifest    RunManifest
	Artifacts   []Artifact
	MessageID   string
	SinkErrors  []error
	Smoothing   *SmoothingReport
	CompletedAt time.Time
}

// DatasetServiceDeps enumerates collaborators required to construct the dataset service.
type DatasetServiceDeps struct {
	Writer    DatasetWriter
	Holidays  calendar.HolidayProvider
	Uploader  ArtifactUploader
	Runs      RunRepository
	Publisher DatasetPublisher
	Signer    ManifestSigner
	Observer  RunObserver
	Clock     func() time.Time
	IDGen     func() string
	OutputDir string
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

// DatasetService generates datasets and distributes them to the configured sinks.
type DatasetService struct {
	writer    DatasetWriter
	holidays  calendar.HolidayProvider
	uploader  ArtifactUploader
	runs      RunRepository
	publisher DatasetPublisher
	signer    ManifestSigner
	observer  RunObserver
	clock     func() time.Time
	idGen     func() string
	outputDir string
	logger    func(context.Context, string, map[string]any)
}

// NewDatasetService validates deps and returns a service. Uploader, run repository, publisher and
// signer are optional.
func NewDatasetService(deps DatasetServiceDeps) (*DatasetService, error) {
	if deps.Writer == nil {
		return nil, errors.New("dataset service: writer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	holidays := deps.Holidays
	if holidays == nil {
		holidays = calendar.FederalCalendar{}
	}
	observer := deps.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	outputDir := strings.TrimSpace(deps.OutputDir)
	if outputDir == "" {
		outputDir = "out"
	}
	return &DatasetService{
		writer:    deps.Writer,
		holidays:  holidays,
		uploader:  deps.Uploader,
		runs:      deps.Runs,
		publisher: deps.Publisher,
		signer:    deps.Signer,
		observer:  observer,
		clock: func() time.Time {
			return clock().UTC()
		},
		idGen:     idGen,
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// GenerateDataset runs the simulation, writes the artifacts and manifest locally, then uploads,
// records and announces the run. Local output is always complete before any remote sink runs;
// sink failures are collected in DatasetRun.SinkErrors and reported as a joined error.
func (s *DatasetService) GenerateDataset(ctx context.Context, cmd GenerateDatasetCommand) (DatasetRun, error) {
	runID := strings.TrimSpace(s.idGen())
	if runID == "" {
		return DatasetRun{}, errors.New("dataset service: empty run id")
	}
	outputDir := strings.TrimSpace(cmd.OutputDir)
	if outputDir == "" {
		outputDir = s.outputDir
	}

	generator, err := NewGenerator(GeneratorDeps{
		Settings: cmd.Settings,
		Holidays: s.holidays,
		Clock:    s.clock,
		Observer: s.observer,
		Logger:   s.logger,
	})
	if err != nil {
		return DatasetRun{}, err
	}
	result, err := generator.Run(ctx)
	if err != nil {
		return DatasetRun{}, fmt.Errorf("generate orders: %w", err)
	}

	skus := make([]string, 0, result.Catalog.Len())
	for _, product := range result.Catalog.Products() {
		skus = append(skus, product.SKU)
	}
	daily := BuildDailySeries(DailySeriesInput{
		Orders:   result.Orders,
		SKUs:     skus,
		Start:    result.Start,
		End:      result.End,
		Holidays: result.Holidays,
	})
	var smoothing *SmoothingReport
	if cmd.Smooth {
		smoothed, report := SmoothDailySeries(daily, SmoothingOptions{})
		daily = smoothed
		smoothing = &report
		if report.Excessive() {
			s.logger(ctx, "smoothing_zeroed_excessive", map[string]any{
				"runId":         runID,
				"zeroedPercent": report.ZeroedPercent,
			})
		}
	}

	run := DatasetRun{RunID: runID, Result: result, Daily: daily, Smoothing: smoothing}

	exportCtx, finishExport := s.observer.StartPhase(ctx, "export")
	artifacts, err := s.writer.WriteDataset(exportCtx, DatasetBundle{
		RunID:     runID,
		OutputDir: outputDir,
		Result:    result,
		Daily:     daily,
	})
	finishExport(err)
	if err != nil {
		return run, fmt.Errorf("write dataset: %w", err)
	}

	createdAt := s.clock()
	if s.uploader != nil {
		uploaded, uerr := s.uploader.UploadArtifacts(ctx, runID, createdAt, artifacts)
		if uerr != nil {
			run.SinkErrors = append(run.SinkErrors, fmt.Errorf("upload artifacts: %w", uerr))
		} else {
			artifacts = uploaded
		}
	}

	manifest := BuildManifest(runID, createdAt, cmd.Settings, result, daily, smoothing)
	manifest.Artifacts = append(manifest.Artifacts, artifacts...)
	if s.signer != nil {
		payload, perr := manifest.CanonicalJSON()
		if perr != nil {
			return run, perr
		}
		signature, serr := s.signer.SignManifest(ctx, payload)
		if serr != nil {
			return run, fmt.Errorf("sign manifest: %w", serr)
		}
		manifest.Signature = signature
	}

	manifestArtifact, err := s.writer.WriteManifest(ctx, outputDir, manifest)
	if err != nil {
		return run, fmt.Errorf("write manifest: %w", err)
	}
	if s.uploader != nil && len(run.SinkErrors) == 0 {
		uploaded, uerr := s.uploader.UploadArtifacts(ctx, runID, createdAt, []Artifact{manifestArtifact})
		if uerr != nil {
			run.SinkErrors = append(run.SinkErrors, fmt.Errorf("upload manifest: %w", uerr))
		} else if len(uploaded) == 1 {
			manifestArtifact = uploaded[0]
		}
	}
	run.Manifest = manifest
	run.Artifacts = append(append([]Artifact(nil), artifacts...), manifestArtifact)

	if s.runs != nil {
		if rerr := s.runs.SaveRun(ctx, manifest); rerr != nil {
			run.SinkErrors = append(run.SinkErrors, fmt.Errorf("save run: %w", rerr))
		}
	}

	if s.publisher != nil {
		id, perr := s.publisher.PublishDatasetGenerated(ctx, DatasetGeneratedMessage{
			RunID:       runID,
			Seed:        result.Seed,
			StartDate:   manifest.StartDate,
			EndDate:     manifest.EndDate,
			Orders:      manifest.Counts.Orders,
			LineItems:   manifest.Counts.LineItems,
			Artifacts:   run.Artifacts,
			GeneratedAt: createdAt,
		})
		if perr != nil {
			run.SinkErrors = append(run.SinkErrors, fmt.Errorf("publish dataset event: %w", perr))
		} else {
			run.MessageID = id
		}
	}

	run.CompletedAt = s.clock()
	fields := map[string]any{
		"runId":     runID,
		"seed":      strconv.FormatInt(result.Seed, 10),
		"orders":    manifest.Counts.Orders,
		"artifacts": len(run.Artifacts),
		"sinkErrs":  len(run.SinkErrors),
	}
	s.logger(ctx, "dataset_run_completed", fields)

	if len(run.SinkErrors) > 0 {
		return run, errors.Join(run.SinkErrors...)
	}
	return run, nil
}

// GetRun returns a stored run manifest.
func (s *DatasetService) GetRun(ctx context.Context, runID string) (RunManifest, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return RunManifest{}, fmt.Errorf("%w: run id is required", ErrRunNotFound)
	}
	if s.runs == nil {
		return RunManifest{}, fmt.Errorf("%w: run registry not configured", ErrRunNotFound)
	}
	return s.runs.GetRun(ctx, runID)
}

// ListRuns returns recent runs when the registry supports enumeration.
func (s *DatasetService) ListRuns(ctx context.Context, limit int) ([]RunManifest, error) {
	lister, ok := s.runs.(RunLister)
	if !ok {
		return nil, ErrRunListingUnsupported
	}
	return lister.ListRuns(ctx, limit)
}

// Holidays lists the holidays the service would use between from and to.
func (s *DatasetService) Holidays(ctx context.Context, from, to time.Time) (calendar.HolidaySet, error) {
	return s.holidays.Holidays(ctx, from, to)
}
