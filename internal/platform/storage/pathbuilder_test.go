package storage

import (
	"testing"
	"time"
)

func TestDatasetObjectPath(t *testing.T) {
	created := time.Date(2024, time.July, 1, 2, 30, 0, 0, time.FixedZone("-0400", -4*60*60))
	path, err := DatasetObjectPath("", created, "01J1ABCDEF", "orders.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "datasets/2024/07/01J1ABCDEF/orders.csv"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestDatasetObjectPathCustomPrefix(t *testing.T) {
	created := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	path, err := DatasetObjectPath("/exports/forecasting/", created, "run-1", "manifest.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "exports/forecasting/2025/01/run-1/manifest.json"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}

	latest, err := LatestObjectPath("exports/forecasting", "manifest.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != "exports/forecasting/latest/manifest.json" {
		t.Fatalf("unexpected latest path %s", latest)
	}
}

func TestDatasetObjectPathRejectsInvalidInput(t *testing.T) {
	created := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		prefix string
		runID  string
		file   string
		at     time.Time
	}{
		{name: "empty run", runID: " ", file: "orders.csv", at: created},
		{name: "run with slash", runID: "a/b", file: "orders.csv", at: created},
		{name: "traversal file", runID: "run", file: "..", at: created},
		{name: "nested file", runID: "run", file: "x/orders.csv", at: created},
		{name: "traversal prefix", prefix: "datasets/../etc", runID: "run", file: "orders.csv", at: created},
		{name: "zero time", runID: "run", file: "orders.csv"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DatasetObjectPath(tc.prefix, tc.at, tc.runID, tc.file); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestObjectURI(t *testing.T) {
	if got := ObjectURI("bucket", "datasets/a.csv"); got != "gs://bucket/datasets/a.csv" {
		t.Fatalf("unexpected uri %s", got)
	}
}
