//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/hanko-field/ordersim/internal/platform/config"
	pfirestore "github.com/hanko-field/ordersim/internal/platform/firestore"
	"github.com/hanko-field/ordersim/internal/services"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

func TestRunRepositoryIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	defer stopContainer(containerID)
	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(config.FirestoreConfig{ProjectID: "test-project", EmulatorHost: endpoint})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := pfirestore.NewRunRepository(provider)
	if err != nil {
		t.Fatalf("NewRunRepository: %v", err)
	}

	older := services.RunManifest{
		RunID:     "run-older",
		Seed:      1,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		StartDate: "2023-01-01",
		EndDate:   "2023-12-31",
		Counts:    services.ManifestCounts{Orders: 10},
		Artifacts: []services.Artifact{{Name: "orders.csv", Format: "csv", SHA256: "aa"}},
		Signature: "sig-1",
	}
	newer := older
	newer.RunID = "run-newer"
	newer.Seed = 2
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	for _, m := range []services.RunManifest{older, newer} {
		if err := repo.SaveRun(ctx, m); err != nil {
			t.Fatalf("save %s: %v", m.RunID, err)
		}
	}
	if err := repo.SaveRun(ctx, older); err != nil {
		t.Fatalf("identical re-save should be a no-op: %v", err)
	}

	tampered := older
	tampered.Signature = "other"
	if err := repo.SaveRun(ctx, tampered); !pfirestore.IsConflict(err) {
		t.Fatalf("expected conflict for overwrite, got %v", err)
	}

	got, err := repo.GetRun(ctx, "run-older")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Seed != 1 || got.Counts.Orders != 10 || len(got.Artifacts) != 1 || got.Signature != "sig-1" {
		t.Fatalf("unexpected manifest %+v", got)
	}

	if _, err := repo.GetRun(ctx, "missing"); !errors.Is(err, services.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	runs, err := repo.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-newer" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}
	out, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		lastErr = err
		time.Sleep(250 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for endpoint")
	}
	t.Fatalf("emulator did not become ready: %v", lastErr)
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}
}
