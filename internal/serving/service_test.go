package serving

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"sqlcoderd/pkg/types"
)

func TestGenerateColdStartsEngine(t *testing.T) {
	s, eng := testService(t, nil)

	if s.Ready() {
		t.Fatalf("service should not be ready before first request")
	}
	resp, err := s.Generate(testCtx(t), types.GenerateRequest{Question: "How many salespeople are there?"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.GeneratedText != "SELECT COUNT(*) FROM salespeople;" {
		t.Fatalf("unexpected text: %q", resp.GeneratedText)
	}
	if resp.Model != "sqlcoder2" {
		t.Fatalf("unexpected model: %q", resp.Model)
	}
	if starts, _ := eng.counts(); starts != 1 {
		t.Fatalf("expected 1 cold start, got %d", starts)
	}
	if !s.Ready() {
		t.Fatalf("service should be ready after first request")
	}

	// Second request reuses the running engine.
	if _, err := s.Generate(testCtx(t), types.GenerateRequest{Question: "again"}); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if starts, _ := eng.counts(); starts != 1 {
		t.Fatalf("engine restarted unexpectedly: %d starts", starts)
	}
	st := s.Status()
	if st.GenerationsTotal != 2 || st.ColdStartsTotal != 1 {
		t.Fatalf("status counters: %+v", st)
	}
}

func TestGenerateEngineStartFailure(t *testing.T) {
	s, eng := testService(t, nil)
	eng.startErr = errors.New("no GPU")

	_, err := s.Generate(testCtx(t), types.GenerateRequest{Question: "q"})
	if err == nil {
		t.Fatalf("expected error when engine cannot start")
	}
	if !IsNotReady(err) {
		t.Fatalf("expected not-ready error, got: %v", err)
	}
	if st := s.Status(); st.LastError == "" {
		t.Fatalf("status should record last error")
	}
}

func TestGenerateStreamNDJSON(t *testing.T) {
	s, _ := testService(t, nil)

	var buf bytes.Buffer
	err := s.GenerateStream(testCtx(t), types.GenerateRequest{Question: "q"}, &buf, nil)
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	var lines []types.StreamEvent
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var ev types.StreamEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", sc.Text(), err)
		}
		lines = append(lines, ev)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 2 token lines + terminal line, got %d: %+v", len(lines), lines)
	}
	if lines[0].Token != "SELECT" || lines[1].Token != " 1;" {
		t.Fatalf("token lines: %+v", lines)
	}
	for _, ev := range lines[:2] {
		if ev.Done || ev.GeneratedText != "" {
			t.Fatalf("token line carries terminal fields: %+v", ev)
		}
		if strings.Contains(ev.Token, "</s>") {
			t.Fatalf("special token leaked into stream: %+v", ev)
		}
	}
	last := lines[2]
	if !last.Done || last.GeneratedText != "SELECT 1;" || last.Token != "" {
		t.Fatalf("terminal line: %+v", last)
	}
}

func TestAdmissionTooBusy(t *testing.T) {
	gate := make(chan struct{})
	backend := newBackend(t, gate)
	eng := &fakeEngine{base: backend.URL}
	s := NewWithConfig(ServiceConfig{
		Preset:              presetFor(t),
		Engine:              eng,
		MaxConcurrentInputs: 1,
		MaxQueueDepth:       1,
		MaxWait:             100 * time.Millisecond,
		IdleTimeout:         -1,
	})
	t.Cleanup(func() { close(gate); _ = s.Close() })

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), types.GenerateRequest{Question: "slow"})
		firstDone <- err
	}()

	// Wait until the first request holds the generation slot.
	deadline := time.Now().Add(2 * time.Second)
	for len(s.genCh) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first request never acquired the slot")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err := s.Generate(context.Background(), types.GenerateRequest{Question: "rejected"})
	if err == nil || !IsTooBusy(err) {
		t.Fatalf("expected too-busy error, got: %v", err)
	}

	gate <- struct{}{}
	if err := <-firstDone; err != nil {
		t.Fatalf("first request failed: %v", err)
	}
}

func TestAdmissionContextCanceled(t *testing.T) {
	s, _ := testService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Generate(ctx, types.GenerateRequest{Question: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestIdleReaperStopsEngine(t *testing.T) {
	s, eng := testService(t, func(cfg *ServiceConfig) {
		cfg.IdleTimeout = 20 * time.Millisecond
	})

	if _, err := s.Generate(testCtx(t), types.GenerateRequest{Question: "q"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !eng.Running() {
		t.Fatalf("engine should be running after a request")
	}

	// Not yet idle long enough: reap must be a no-op.
	s.reapIfIdle()
	if !eng.Running() {
		t.Fatalf("engine reaped too early")
	}

	time.Sleep(30 * time.Millisecond)
	s.reapIfIdle()
	if eng.Running() {
		_, stops := eng.counts()
		t.Fatalf("engine should be stopped after idle timeout (stops=%d)", stops)
	}

	// Next request cold-starts again.
	if _, err := s.Generate(testCtx(t), types.GenerateRequest{Question: "q"}); err != nil {
		t.Fatalf("Generate after reap: %v", err)
	}
	if starts, _ := eng.counts(); starts != 2 {
		t.Fatalf("expected second cold start, got %d", starts)
	}
	if st := s.Status(); st.ColdStartsTotal != 2 {
		t.Fatalf("status cold starts: %d", st.ColdStartsTotal)
	}
}

func TestIdleReaperSkipsBusyEngine(t *testing.T) {
	gate := make(chan struct{})
	backend := newBackend(t, gate)
	eng := &fakeEngine{base: backend.URL}
	s := NewWithConfig(ServiceConfig{
		Preset:      presetFor(t),
		Engine:      eng,
		IdleTimeout: time.Nanosecond,
	})
	t.Cleanup(func() { _ = s.Close() })

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), types.GenerateRequest{Question: "slow"})
		done <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for len(s.genCh) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("request never acquired the slot")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.reapIfIdle()
	if !eng.Running() {
		t.Fatalf("reaper must not stop an engine with inflight work")
	}

	gate <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("request failed: %v", err)
	}
}

func TestStatusShape(t *testing.T) {
	s, _ := testService(t, nil)
	st := s.Status()
	if st.Model != "sqlcoder2" || st.Revision == "" {
		t.Fatalf("status identity: %+v", st)
	}
	if st.Engine.State != engineStopped {
		t.Fatalf("engine state before start: %q", st.Engine.State)
	}
	if st.MaxConcurrentInputs != defaultMaxConcurrentInputs {
		t.Fatalf("max concurrent inputs: %d", st.MaxConcurrentInputs)
	}
	if st.ServerTimeUnix == 0 {
		t.Fatalf("server time missing")
	}

	if _, err := s.Generate(testCtx(t), types.GenerateRequest{Question: "q"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	st = s.Status()
	if st.Engine.State != engineReady || st.Engine.PID == 0 || st.Engine.Port == 0 {
		t.Fatalf("engine status after start: %+v", st.Engine)
	}
}

func TestListModelsHostedFirst(t *testing.T) {
	s, _ := testService(t, nil)
	models := s.ListModels()
	if len(models) == 0 || models[0].ID != "sqlcoder2" {
		t.Fatalf("hosted preset should lead the list: %+v", models)
	}
}

func TestWarmupStartsWithoutGeneration(t *testing.T) {
	s, eng := testService(t, nil)
	if err := s.Warmup(testCtx(t)); err != nil {
		t.Fatalf("Warmup: %v", err)
	}
	if starts, _ := eng.counts(); starts != 1 {
		t.Fatalf("expected engine start, got %d", starts)
	}
	if st := s.Status(); st.GenerationsTotal != 0 {
		t.Fatalf("warmup must not count as a generation")
	}
}

func TestMaxNewTokensClamped(t *testing.T) {
	s, _ := testService(t, nil)
	p := s.params(types.GenerateRequest{})
	if p.MaxNewTokens != defaultMaxNewTokens {
		t.Fatalf("default max_new_tokens: %d", p.MaxNewTokens)
	}
	p = s.params(types.GenerateRequest{MaxNewTokens: 64})
	if p.MaxNewTokens != 64 {
		t.Fatalf("explicit max_new_tokens: %d", p.MaxNewTokens)
	}
	p = s.params(types.GenerateRequest{MaxNewTokens: 1 << 20})
	if p.MaxNewTokens != defaultMaxNewTokens {
		t.Fatalf("oversized max_new_tokens should clamp: %d", p.MaxNewTokens)
	}
}
