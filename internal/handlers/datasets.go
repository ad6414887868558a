package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/export"
	"github.com/hanko-field/ordersim/internal/platform/httpx"
	"github.com/hanko-field/ordersim/internal/platform/observability"
	"github.com/hanko-field/ordersim/internal/services"
)

const (
	maxGenerateRequestBody = 16 * 1024
	maxListLimit           = 100
	dateLayout             = "2006-01-02"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

// DatasetService is the subset of the dataset service the HTTP surface needs.
type DatasetService interface {
	GenerateDataset(ctx context.Context, cmd services.GenerateDatasetCommand) (services.DatasetRun, error)
	GetRun(ctx context.Context, runID string) (services.RunManifest, error)
	ListRuns(ctx context.Context, limit int) ([]services.RunManifest, error)
	Holidays(ctx context.Context, from, to time.Time) (calendar.HolidaySet, error)
}

// DatasetHandlersDeps enumerates collaborators of the dataset endpoints.
type DatasetHandlersDeps struct {
	Service  DatasetService
	Settings services.SimulationSettings
	Smooth   bool
	Locale   string
	// MaxConcurrentRuns bounds simultaneous generations; zero means one.
	MaxConcurrentRuns int
}

// DatasetHandlers triggers dataset runs and serves run records.
type DatasetHandlers struct {
	svc      DatasetService
	settings services.SimulationSettings
	smooth   bool
	locale   string
	slots    chan struct{}
}

// NewDatasetHandlers validates deps and builds the handler set.
func NewDatasetHandlers(deps DatasetHandlersDeps) (*DatasetHandlers, error) {
	if deps.Service == nil {
		return nil, errors.New("dataset handlers: service is required")
	}
	slots := deps.MaxConcurrentRuns
	if slots <= 0 {
		slots = 1
	}
	return &DatasetHandlers{
		svc:      deps.Service,
		settings: deps.Settings,
		smooth:   deps.Smooth,
		locale:   deps.Locale,
		slots:    make(chan struct{}, slots),
	}, nil
}

// Routes registers the dataset endpoints beneath /datasets.
func (h *DatasetHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/datasets", func(rt chi.Router) {
		rt.Post("/", h.generate)
		rt.Get("/", h.list)
		rt.Get("/{runID}", h.get)
	})
}

type generateDatasetRequest struct {
	Seed            *int64  `json:"seed"`
	NumberOfSKUs    *int    `json:"numberOfSkus"`
	NumberOfMonths  *int    `json:"numberOfMonths"`
	BaseDailyOrders *int    `json:"baseDailyOrders"`
	EndDate         *string `json:"endDate"`
	Smooth          *bool   `json:"smooth"`
}

type summaryLinePayload struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type summaryPayload struct {
	export.Summary
	Lines []summaryLinePayload `json:"lines"`
}

type datasetRunResponse struct {
	RunID     string                  `json:"runId"`
	Seed      int64                   `json:"seed"`
	StartDate string                  `json:"startDate"`
	EndDate   string                  `json:"endDate"`
	Counts    services.ManifestCounts `json:"counts"`
	Artifacts []services.Artifact     `json:"artifacts"`
	MessageID string                  `json:"messageId,omitempty"`
	Signature string                  `json:"signature,omitempty"`
	Summary   summaryPayload          `json:"summary"`
	Warnings  []string                `json:"warnings,omitempty"`
}

type datasetListResponse struct {
	Runs []services.RunManifest `json:"runs"`
}

func (h *DatasetHandlers) generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd, err := h.parseGenerate(r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if err := cmd.Settings.Validate(); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_settings", err.Error(), http.StatusBadRequest))
		return
	}

	select {
	case h.slots <- struct{}{}:
		defer func() { <-h.slots }()
	default:
		httpx.WriteError(ctx, w, httpx.NewError("run_in_progress", "a dataset run is already in progress", http.StatusTooManyRequests))
		return
	}

	run, err := h.svc.GenerateDataset(ctx, cmd)
	if err != nil && run.Manifest.RunID == "" {
		observability.FromContext(ctx).Error("dataset generation failed", zap.Error(err))
		switch {
		case errors.Is(err, services.ErrInvalidSettings):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_settings", err.Error(), http.StatusBadRequest))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			httpx.WriteError(ctx, w, httpx.NewError("generation_timeout", "dataset generation did not finish in time", http.StatusServiceUnavailable))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("generation_failed", err.Error(), http.StatusInternalServerError))
		}
		return
	}

	resp := h.runResponse(run)
	for _, sinkErr := range run.SinkErrors {
		resp.Warnings = append(resp.Warnings, sinkErr.Error())
	}
	if len(resp.Warnings) > 0 {
		observability.FromContext(ctx).Warn("dataset distributed partially",
			zap.String("runId", run.RunID),
			zap.Strings("warnings", resp.Warnings),
		)
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *DatasetHandlers) parseGenerate(r *http.Request) (services.GenerateDatasetCommand, error) {
	cmd := services.GenerateDatasetCommand{Settings: h.settings, Smooth: h.smooth}

	body, err := readLimitedBody(r, maxGenerateRequestBody)
	if errors.Is(err, errEmptyBody) {
		return cmd, nil
	}
	if err != nil {
		return cmd, err
	}

	var req generateDatasetRequest
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return cmd, errors.New("invalid JSON payload")
	}

	if req.Seed != nil {
		cmd.Settings.Seed = *req.Seed
	}
	if req.NumberOfSKUs != nil {
		cmd.Settings.NumberOfSKUs = *req.NumberOfSKUs
	}
	if req.NumberOfMonths != nil {
		cmd.Settings.NumberOfMonths = *req.NumberOfMonths
	}
	if req.BaseDailyOrders != nil {
		cmd.Settings.BaseDailyOrders = *req.BaseDailyOrders
	}
	if req.EndDate != nil {
		end, err := time.Parse(dateLayout, strings.TrimSpace(*req.EndDate))
		if err != nil {
			return cmd, errors.New("endDate must be formatted as YYYY-MM-DD")
		}
		cmd.Settings.EndDate = end
	}
	if req.Smooth != nil {
		cmd.Smooth = *req.Smooth
	}
	return cmd, nil
}

func (h *DatasetHandlers) runResponse(run services.DatasetRun) datasetRunResponse {
	summary := export.NewSummary(run.Result.Orders)
	lines := summary.Lines(h.locale)
	payload := summaryPayload{Summary: summary, Lines: make([]summaryLinePayload, 0, len(lines))}
	for _, line := range lines {
		payload.Lines = append(payload.Lines, summaryLinePayload{Label: line.Label, Value: line.Value})
	}
	return datasetRunResponse{
		RunID:     run.RunID,
		Seed:      run.Manifest.Seed,
		StartDate: run.Manifest.StartDate,
		EndDate:   run.Manifest.EndDate,
		Counts:    run.Manifest.Counts,
		Artifacts: run.Artifacts,
		MessageID: run.MessageID,
		Signature: run.Manifest.Signature,
		Summary:   payload,
	}
}

func (h *DatasetHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxListLimit {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be between 1 and 100", http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	runs, err := h.svc.ListRuns(ctx, limit)
	if err != nil {
		if errors.Is(err, services.ErrRunListingUnsupported) {
			httpx.WriteError(ctx, w, httpx.NewError("run_registry_unavailable", "run registry is not configured", http.StatusNotImplemented))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("run_registry_error", err.Error(), http.StatusInternalServerError))
		return
	}
	if runs == nil {
		runs = []services.RunManifest{}
	}
	httpx.WriteJSON(w, http.StatusOK, datasetListResponse{Runs: runs})
}

func (h *DatasetHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := strings.TrimSpace(chi.URLParam(r, "runID"))

	manifest, err := h.svc.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("run_not_found", "dataset run not found", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("run_registry_error", err.Error(), http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, manifest)
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}
