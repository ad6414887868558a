package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hanko-field/ordersim/internal/services"
)

// Artifact formats understood by FileWriter.
const (
	FormatOrdersCSV = "csv"
	FormatDailyCSV  = "daily"
	FormatXLSX      = "xlsx"
	FormatManifest  = "manifest"
)

// DefaultFormats is the set written when none is configured.
var DefaultFormats = []string{FormatOrdersCSV, FormatDailyCSV}

var formatFiles = map[string]struct {
	name        string
	contentType string
}{
	FormatOrdersCSV: {name: "orders.csv", contentType: "text/csv"},
	FormatDailyCSV:  {name: "daily.csv", contentType: "text/csv"},
	FormatXLSX:      {name: "dataset.xlsx", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	FormatManifest:  {name: "manifest.json", contentType: "application/json"},
}

// FileWriterOptions configures NewFileWriter.
type FileWriterOptions struct {
	Formats []string
	// Locale selects number and currency formatting of the workbook summary.
	Locale string
	Logger *zap.Logger
}

// FileWriter renders runs to files under a per-run directory.
type FileWriter struct {
	formats []string
	locale  string
	logger  *zap.Logger
}

// NewFileWriter validates the requested formats.
func NewFileWriter(opts FileWriterOptions) (*FileWriter, error) {
	formats := opts.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	seen := make(map[string]bool, len(formats))
	normalized := make([]string, 0, len(formats))
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" || seen[format] {
			continue
		}
		if _, ok := formatFiles[format]; !ok || format == FormatManifest {
			return nil, fmt.Errorf("export: unsupported format %q", format)
		}
		seen[format] = true
		normalized = append(normalized, format)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locale := strings.TrimSpace(opts.Locale)
	if locale == "" {
		locale = "en-US"
	}
	return &FileWriter{formats: normalized, locale: locale, logger: logger.Named("export")}, nil
}

// Formats lists the formats written per run.
func (w *FileWriter) Formats() []string {
	return append([]string(nil), w.formats...)
}

// RunDir returns the directory artifacts of runID are written to.
func RunDir(outputDir, runID string) string {
	return filepath.Join(outputDir, runID)
}

// WriteDataset implements services.DatasetWriter.
func (w *FileWriter) WriteDataset(ctx context.Context, bundle services.DatasetBundle) ([]services.Artifact, error) {
	dir := RunDir(bundle.OutputDir, bundle.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}

	artifacts := make([]services.Artifact, 0, len(w.formats))
	for _, format := range w.formats {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		var buf bytes.Buffer
		var err error
		switch format {
		case FormatOrdersCSV:
			err = WriteOrdersCSV(&buf, bundle.Result.Orders)
		case FormatDailyCSV:
			err = WriteDailyCSV(&buf, bundle.Daily)
		case FormatXLSX:
			err = WriteWorkbook(&buf, WorkbookInput{
				Orders:  bundle.Result.Orders,
				Daily:   bundle.Daily,
				Summary: NewSummary(bundle.Result.Orders),
				Locale:  w.locale,
			})
		}
		if err != nil {
			return artifacts, err
		}
		artifact, err := w.persist(dir, format, buf.Bytes())
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

// WriteManifest implements services.DatasetWriter.
func (w *FileWriter) WriteManifest(_ context.Context, outputDir string, manifest services.RunManifest) (services.Artifact, error) {
	dir := RunDir(outputDir, manifest.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Artifact{}, fmt.Errorf("export: create %s: %w", dir, err)
	}
	var buf bytes.Buffer
	if err := WriteManifest(&buf, manifest); err != nil {
		return services.Artifact{}, err
	}
	return w.persist(dir, FormatManifest, buf.Bytes())
}

func (w *FileWriter) persist(dir, format string, data []byte) (services.Artifact, error) {
	file := formatFiles[format]
	path := filepath.Join(dir, file.name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Artifact{}, fmt.Errorf("export: write %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	artifact := services.Artifact{
		Name:        file.name,
		Format:      format,
		ContentType: file.contentType,
		Path:        path,
		Size:        int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
	}
	w.logger.Debug("artifact written",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int64("bytes", artifact.Size),
	)
	return artifact, nil
}
