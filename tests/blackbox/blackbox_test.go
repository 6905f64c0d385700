package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	cleanup := func() { _ = ln.Close() }
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port, cleanup
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	bbDir := filepath.Dir(thisFile)
	root := filepath.Dir(filepath.Dir(bbDir))
	return root
}

func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	outDir := t.TempDir()
	binPath := filepath.Join(outDir, "sqlcoderd")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/sqlcoderd")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

// buildEngineBin compiles the fake text-generation-launcher the daemon
// spawns in these tests.
func buildEngineBin(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	binPath := filepath.Join(t.TempDir(), "fake_tgi")
	cmd := exec.Command("go", "build", "-o", binPath, "./internal/launcher/testdata/fake_tgi.go")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:18080
}

func startServer(t *testing.T, bin, engineBin string, port int, extraArgs ...string) *serverProc {
	t.Helper()
	addr := fmt.Sprintf(":%d", port)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args := []string{
		"--addr", addr,
		"--launcher-bin", engineBin,
		"--readiness-timeout-s", "15",
	}
	args = append(args, extraArgs...)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	// SIGTERM triggers the daemon's graceful shutdown, which also stops the
	// spawned engine process.
	t.Cleanup(func() {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = cmd.Process.Kill()
		}
	})
	// Wait for healthz
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildBinary(t)
	engineBin := buildEngineBin(t)
	// Reserve a free port, then release listener before starting the server
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, engineBin, port)

	// /healthz
	resp, body := get(t, sp.base+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz %d %s", resp.StatusCode, string(body))
	}

	// /v1/models lists the embedded preset catalog
	resp, body = get(t, sp.base+"/v1/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/models %d %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("/v1/models content-type=%s", ct)
	}
	var modelsResp struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		t.Fatalf("/v1/models json: %v body=%s", err, string(body))
	}
	if len(modelsResp.Models) == 0 || modelsResp.Models[0].ID != "sqlcoder2" {
		t.Fatalf("expected sqlcoder2 first, got %+v", modelsResp.Models)
	}

	// /readyz initially 503: the engine starts on first request
	resp, body = get(t, sp.base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz initial %d %s", resp.StatusCode, string(body))
	}

	// /v1/generate cold-starts the engine and answers
	resp, body = postJSON(t, sp.base+"/v1/generate", []byte(`{"question":"How many salespeople are there?"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/generate %d %s", resp.StatusCode, string(body))
	}
	var gen struct {
		GeneratedText string `json:"generated_text"`
		Model         string `json:"model"`
	}
	if err := json.Unmarshal(body, &gen); err != nil {
		t.Fatalf("/v1/generate json: %v body=%s", err, string(body))
	}
	if gen.GeneratedText != "SELECT 1;" || gen.Model != "sqlcoder2" {
		t.Fatalf("/v1/generate body=%s", string(body))
	}

	// /readyz eventually 200
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, _ = get(t, sp.base+"/readyz")
		if resp.StatusCode == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("/readyz did not become ready in time; last=%d", resp.StatusCode)
		}
		time.Sleep(25 * time.Millisecond)
	}

	// /status shows a ready engine and the completed generation
	resp, body = get(t, sp.base+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, string(body))
	}
	var statusResp struct {
		Engine struct {
			State string `json:"state"`
			PID   int    `json:"pid"`
		} `json:"engine"`
		GenerationsTotal uint64 `json:"generations_total"`
	}
	if err := json.Unmarshal(body, &statusResp); err != nil {
		t.Fatalf("/status json: %v body=%s", err, string(body))
	}
	if statusResp.Engine.State != "ready" || statusResp.Engine.PID <= 0 {
		t.Fatalf("/status engine=%+v", statusResp.Engine)
	}
	if statusResp.GenerationsTotal < 1 {
		t.Fatalf("/status generations_total=%d", statusResp.GenerationsTotal)
	}

	// /v1/generate/stream emits newline-delimited events ending in done
	resp, body = postJSON(t, sp.base+"/v1/generate/stream", []byte(`{"question":"How many salespeople are there?"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/generate/stream %d %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/x-ndjson") {
		t.Fatalf("/v1/generate/stream content-type=%s", ct)
	}
	if !bytes.Contains(body, []byte("\n")) {
		t.Fatalf("/v1/generate/stream expected newline-delimited events, got: %q", string(body))
	}
	if !bytes.Contains(body, []byte(`"done":true`)) {
		t.Fatalf("/v1/generate/stream missing done line: %s", string(body))
	}
}

func TestBlackbox_Generate_MissingQuestion_400(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildBinary(t)
	engineBin := buildEngineBin(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, engineBin, port)

	resp, body := postJSON(t, sp.base+"/v1/generate", []byte(`{"metadata":"CREATE TABLE t (id INTEGER);"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", resp.StatusCode, string(body))
	}
}

func TestBlackbox_UnknownPreset_ExitsNonzero(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildBinary(t)
	port, release := findFreePort(t)
	release()

	cmd := exec.Command(bin, "--addr", fmt.Sprintf(":%d", port), "--preset", "no-such-preset")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected non-zero exit for unknown preset")
		}
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatalf("server should refuse to start with an unknown preset")
	}
}
