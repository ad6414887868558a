package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	exiter := cli.OsExiter
	cli.OsExiter = func(int) {}
	t.Cleanup(func() { cli.OsExiter = exiter })

	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)
	err := app.RunContext(context.Background(), append([]string{"ordersim", "--env-file", "", "--log-level", "error"}, args...))
	return stdout.String(), err
}

func TestHolidaysCommandListsFederalHolidays(t *testing.T) {
	out, err := runApp(t, "holidays", "--year", "2024")
	if err != nil {
		t.Fatalf("holidays returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 holidays, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "2024-01-01  New Year's Day" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
}

func TestHolidaysCommandRejectsUnknownCountry(t *testing.T) {
	if _, err := runApp(t, "holidays", "--country", "XX"); err == nil {
		t.Fatalf("expected unsupported country error")
	}
}

func TestGenerateCommandWritesDataset(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, "generate",
		"--seed", "7",
		"--skus", "4",
		"--months", "1",
		"--end-date", "2024-03-31",
		"--output", dir,
		"--formats", "csv,daily",
	)
	if err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		t.Fatalf("expected one run directory, got %v (%v)", entries, err)
	}
	runDir := filepath.Join(dir, entries[0].Name())
	for _, name := range []string{"orders.csv", "daily.csv", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("expected %s to be written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(runDir, "dataset.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("xlsx was not requested")
	}
	if !strings.Contains(out, "run "+entries[0].Name()+" (seed 7) 2024-03-01..2024-03-31") {
		t.Fatalf("missing run header:\n%s", out)
	}
	if !strings.Contains(out, "Net revenue") {
		t.Fatalf("missing summary:\n%s", out)
	}
}

func TestGenerateCommandRejectsBadEndDate(t *testing.T) {
	if _, err := runApp(t, "generate", "--end-date", "03/31/2024", "--output", t.TempDir()); err == nil {
		t.Fatalf("expected end date error")
	}
}
