package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// Fake text-generation-launcher used by launcher tests. Accepts the subset
// of flags the launcher passes and serves the engine endpoints the daemon
// touches. Behavior toggles via env:
//
//	FAKE_TGI_EXIT_CODE     exit immediately with this code (simulates crash)
//	FAKE_TGI_READY_MS      delay before /health turns healthy
//	FAKE_TGI_GEN_DELAY_MS  simulated generation time per /generate call
func main() {
	var modelID, revision, quantize string
	var port, numShard int
	flag.StringVar(&modelID, "model-id", "", "model repo")
	flag.StringVar(&revision, "revision", "", "model revision")
	flag.StringVar(&quantize, "quantize", "", "quantization method")
	flag.IntVar(&port, "port", 0, "listen port")
	flag.IntVar(&numShard, "num-shard", 1, "shards")
	flag.Parse()

	if v := os.Getenv("FAKE_TGI_EXIT_CODE"); v != "" {
		code, _ := strconv.Atoi(v)
		fmt.Fprintln(os.Stderr, "fake-tgi: simulated startup failure")
		os.Exit(code)
	}

	readyAt := time.Now()
	if v := os.Getenv("FAKE_TGI_READY_MS"); v != "" {
		ms, _ := strconv.Atoi(v)
		readyAt = readyAt.Add(time.Duration(ms) * time.Millisecond)
	}

	var genDelay time.Duration
	if v := os.Getenv("FAKE_TGI_GEN_DELAY_MS"); v != "" {
		ms, _ := strconv.Atoi(v)
		genDelay = time.Duration(ms) * time.Millisecond
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if time.Now().Before(readyAt) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model_id":  modelID,
			"model_sha": revision,
			"version":   "fake",
		})
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(genDelay)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"generated_text": "SELECT 1;"})
	})
	mux.HandleFunc("/generate_stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		emit := func(text string, special bool, final any) {
			ev := map[string]any{
				"token":          map[string]any{"id": 1, "text": text, "logprob": -0.1, "special": special},
				"generated_text": final,
			}
			b, _ := json.Marshal(ev)
			fmt.Fprintf(w, "data:%s\n\n", b)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		emit("SELECT", false, nil)
		emit(" 1;", false, nil)
		emit("</s>", true, "SELECT 1;")
	})

	srv := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
