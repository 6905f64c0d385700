package serving

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sqlcoderd/internal/preset"
)

// fakeEngine satisfies Engine without spawning processes. It reports the
// URL of an httptest backend as its base URL.
type fakeEngine struct {
	mu        sync.Mutex
	base      string
	running   bool
	ready     bool
	starts    int
	stops     int
	startErr  error
	startedAt time.Time
}

func (f *fakeEngine) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.running = true
	f.ready = true
	f.startedAt = time.Now()
	return nil
}

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
	f.ready = false
	return nil
}

func (f *fakeEngine) Running() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.running }
func (f *fakeEngine) Ready() bool   { f.mu.Lock(); defer f.mu.Unlock(); return f.ready }
func (f *fakeEngine) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base
}
func (f *fakeEngine) PID() int  { return 4242 }
func (f *fakeEngine) Port() int { return 8000 }
func (f *fakeEngine) StartedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startedAt
}

func (f *fakeEngine) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

// newBackend builds an httptest server emulating the engine API. The
// generate handler echoes a canned completion; an optional gate channel
// blocks completions until released.
func newBackend(t *testing.T, gate chan struct{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Inputs string `json:"inputs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"generated_text": "SELECT COUNT(*) FROM salespeople;"})
	})
	mux.HandleFunc("/generate_stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		write := func(tok string, special bool, final any) {
			ev := map[string]any{
				"token":          map[string]any{"id": 1, "text": tok, "logprob": -0.1, "special": special},
				"generated_text": final,
			}
			b, _ := json.Marshal(ev)
			w.Write([]byte("data:"))
			w.Write(b)
			w.Write([]byte("\n\n"))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		write("SELECT", false, nil)
		write(" 1;", false, nil)
		write("</s>", true, "SELECT 1;")
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func presetFor(t *testing.T) preset.Preset {
	t.Helper()
	return preset.Preset{
		ID:       "sqlcoder2",
		Repo:     "defog/sqlcoder2",
		Revision: "4ccba9158b67de83b070a4eb2fadaeb58ab2cd14",
	}
}

func testService(t *testing.T, mutate func(*ServiceConfig)) (*Service, *fakeEngine) {
	t.Helper()
	backend := newBackend(t, nil)
	eng := &fakeEngine{base: backend.URL}
	cfg := ServiceConfig{
		Preset:      presetFor(t),
		Engine:      eng,
		IdleTimeout: -1, // reaper manually driven in tests that need it
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s := NewWithConfig(cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s, eng
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
