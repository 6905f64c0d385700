package e2e

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"

	"sqlcoderd/internal/launcher"
	"sqlcoderd/internal/preset"
	"sqlcoderd/internal/prompt"
	"sqlcoderd/internal/serving"
	"sqlcoderd/pkg/types"
)

// TestLiveSpawn_GenerateSQL answers a real question by spawning an actual
// text-generation-launcher and loading the model weights. Skips unless:
// - TGI_BIN points to a text-generation-launcher binary, and
// - the model weights are cached or HUGGING_FACE_HUB_TOKEN allows downloading.
//
// The output is only plausibly SQL; we check shape, not correctness.
func TestLiveSpawn_GenerateSQL(t *testing.T) {
	bin := strings.TrimSpace(os.Getenv("TGI_BIN"))
	if bin == "" {
		t.Skip("TGI_BIN not set; skipping live spawn test")
	}
	id := os.Getenv("TGI_PRESET")
	if id == "" {
		id = preset.DefaultID
	}
	pre, err := preset.Get(id)
	if err != nil {
		t.Fatalf("preset %q: %v", id, err)
	}

	srv := newServerWithConfig(t, serving.ServiceConfig{
		Preset:      pre,
		LauncherBin: bin,
		HubToken:    os.Getenv(launcher.TokenEnv),
		HubCacheDir: os.Getenv("HUGGINGFACE_HUB_CACHE"),
		IdleTimeout: -1,
	})

	question := "Which products were sold most last month?"
	payload, _ := json.Marshal(types.GenerateRequest{Question: question})
	resp, body := httpPostJSON(t, srv.URL+"/v1/generate", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/generate status=%d body=%s", resp.StatusCode, string(body))
	}
	var gen types.GenerateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		t.Fatalf("/v1/generate json: %v body=%s", err, string(body))
	}
	sql := prompt.TrimFence(gen.GeneratedText)
	if sql == "" {
		t.Fatalf("expected non-empty generation")
	}
	t.Logf("\n----- GENERATED SQL (%s, %dms) -----\n%s\n------------------------------------\n", gen.Model, gen.DurationMs, sql)
}
