package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"sqlcoderd/internal/httpapi"
	"sqlcoderd/internal/preset"
	"sqlcoderd/internal/serving"
)

// buildEngineBin compiles the fake text-generation-launcher used by these
// tests and returns its path.
func buildEngineBin(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake_tgi")
	cmd := exec.Command("go", "build", "-o", bin, "../launcher/testdata/fake_tgi.go")
	cmd.Dir = "."
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake engine: %v: %s", err, string(out))
	}
	return bin
}

// newServer starts a full daemon stack (service, launcher, HTTP mux) against
// the fake engine binary with test-friendly defaults.
func newServer(t *testing.T, engineBin string) *httptest.Server {
	t.Helper()
	return newServerWithConfig(t, serving.ServiceConfig{
		Preset:           preset.MustGet(preset.DefaultID),
		LauncherBin:      engineBin,
		IdleTimeout:      -1, // no reaping mid-test
		ReadinessTimeout: 15 * time.Second,
	})
}

// newServerWithConfig allows configuring queue/backpressure behavior for tests.
func newServerWithConfig(t *testing.T, cfg serving.ServiceConfig) *httptest.Server {
	t.Helper()
	svc := serving.NewWithConfig(cfg)
	t.Cleanup(func() { _ = svc.Close() })
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
