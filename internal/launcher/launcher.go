// Package launcher spawns and supervises a text-generation-launcher process
// serving one model, waits for it to pass health checks, and stops it
// gracefully. The daemon owns exactly one Launcher at a time.
package launcher

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"sqlcoderd/internal/preset"
)

const (
	defaultHost             = "127.0.0.1"
	defaultReadinessTimeout = 15 * time.Minute
	probeInterval           = 500 * time.Millisecond
	probeTimeout            = 1 * time.Second
	stopGrace               = 10 * time.Second
	stderrTailBytes         = 8 << 10
)

// DefaultLauncherBin is the engine executable shipped in the TGI image.
const DefaultLauncherBin = "text-generation-launcher"

// TokenEnv is the environment variable the engine reads hub credentials
// from. The name is fixed; gated models fail to download without it.
const TokenEnv = "HUGGING_FACE_HUB_TOKEN"

// hubCacheEnv points the engine at a persistent weights cache.
const hubCacheEnv = "HUGGINGFACE_HUB_CACHE"

// Options configure a Launcher.
type Options struct {
	// Bin is the text-generation-launcher executable.
	Bin string
	// Preset selects the model to serve.
	Preset preset.Preset
	// Port for the engine HTTP server; 0 picks a free port.
	Port int
	// HubToken is injected as HUGGING_FACE_HUB_TOKEN when non-empty.
	HubToken string
	// HubCacheDir is injected as HUGGINGFACE_HUB_CACHE when non-empty.
	HubCacheDir string
	// ReadinessTimeout bounds the wait for the engine to pass health
	// checks; 0 falls back to the preset's value, then the package default.
	ReadinessTimeout time.Duration
	// Publisher receives lifecycle events; nil drops them.
	Publisher EventPublisher
}

// Launcher manages a single engine process.
type Launcher struct {
	opts       Options
	httpClient *http.Client
	publisher  EventPublisher

	mu         sync.Mutex
	cmd        *exec.Cmd
	baseURL    string
	port       int
	pid        int
	ready      bool
	startedAt  time.Time
	exited     chan struct{}
	exitErr    error
	stderrTail *tailWriter
}

// New constructs a Launcher. The process is not started until Start.
func New(opts Options) *Launcher {
	pub := opts.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	// Timeout stays 0: health probes carry their own context deadlines.
	return &Launcher{
		opts:       opts,
		httpClient: &http.Client{Timeout: 0},
		publisher:  pub,
	}
}

func (l *Launcher) readinessTimeout() time.Duration {
	if l.opts.ReadinessTimeout > 0 {
		return l.opts.ReadinessTimeout
	}
	if d := time.Duration(l.opts.Preset.ReadinessTimeout); d > 0 {
		return d
	}
	return defaultReadinessTimeout
}

// isHealthy checks if the engine at baseURL responds OK to /health.
func (l *Launcher) isHealthy(baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Start spawns the engine and blocks until it passes a health check, the
// readiness deadline passes, the process exits early, or ctx is canceled.
// Calling Start while a healthy engine is running is a no-op, so callers
// can use it as an "ensure running" primitive.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.cmd != nil {
		base := l.baseURL
		exited := l.exited
		l.mu.Unlock()
		select {
		case <-exited:
			// process died; clean up and respawn below
			_ = l.Stop()
		default:
			if l.isHealthy(base, probeTimeout) {
				return nil
			}
			// running but unhealthy: restart
			_ = l.Stop()
		}
	} else {
		l.mu.Unlock()
	}

	port := l.opts.Port
	if port == 0 {
		p, err := pickFreePort(defaultHost)
		if err != nil {
			return err
		}
		port = p
	}
	baseURL := fmt.Sprintf("http://%s:%d", defaultHost, port)

	pre := l.opts.Preset
	args := pre.LaunchFlags(port)
	cmd := exec.Command(l.opts.Bin, args...)
	cmd.Env = engineEnv(l.opts.HubToken, l.opts.HubCacheDir)
	tail := &tailWriter{max: stderrTailBytes}
	cmd.Stderr = tail
	cmd.Stdout = tail
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", l.opts.Bin, err)
	}
	log.Printf("launcher event=start model=%q pid=%d port=%d", pre.Repo, cmd.Process.Pid, port)
	l.publisher.Publish(Event{Name: "launch_start", Fields: map[string]any{"pid": cmd.Process.Pid, "port": port, "model": pre.Repo}})

	exited := make(chan struct{})
	l.mu.Lock()
	l.cmd = cmd
	l.baseURL = baseURL
	l.port = port
	l.pid = cmd.Process.Pid
	l.ready = false
	l.startedAt = time.Now()
	l.exited = exited
	l.exitErr = nil
	l.stderrTail = tail
	l.mu.Unlock()

	// Exit watcher: records the exit error and unblocks readiness/Stop.
	go func() {
		err := cmd.Wait()
		l.mu.Lock()
		l.exitErr = err
		l.ready = false
		l.mu.Unlock()
		close(exited)
	}()

	// Wait readiness with deadline and early failure detection.
	deadline := time.Now().Add(l.readinessTimeout())
	for {
		if time.Now().After(deadline) {
			_ = l.Stop()
			log.Printf("launcher event=timeout model=%q pid=%d", pre.Repo, cmd.Process.Pid)
			l.publisher.Publish(Event{Name: "launch_timeout", Fields: map[string]any{"pid": cmd.Process.Pid}})
			return fmt.Errorf("engine not ready in %s: %s", l.readinessTimeout(), baseURL)
		}
		select {
		case <-ctx.Done():
			_ = l.Stop()
			return ctx.Err()
		case <-exited:
			werr := l.ExitError()
			tailStr := tail.Tail()
			l.clear()
			log.Printf("launcher event=exit_early model=%q pid=%d err=%v", pre.Repo, cmd.Process.Pid, werr)
			l.publisher.Publish(Event{Name: "launch_exit", Fields: map[string]any{"pid": cmd.Process.Pid, "before_ready": true}})
			if werr != nil {
				return fmt.Errorf("engine exited early: %v; output tail: %s", werr, tailStr)
			}
			return fmt.Errorf("engine exited before ready: %s", baseURL)
		default:
		}

		if l.isHealthy(baseURL, probeTimeout) {
			break
		}
		time.Sleep(probeInterval)
	}

	l.mu.Lock()
	l.ready = true
	l.mu.Unlock()
	log.Printf("launcher event=ready model=%q pid=%d url=%s", pre.Repo, cmd.Process.Pid, baseURL)
	l.publisher.Publish(Event{Name: "launch_ready", Fields: map[string]any{"pid": cmd.Process.Pid, "url": baseURL}})
	return nil
}

// Stop terminates the engine: SIGTERM first, then kill after a grace
// period. Safe to call when nothing is running.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	cmd := l.cmd
	exited := l.exited
	l.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	select {
	case <-exited:
		// already gone
	default:
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-exited:
		case <-time.After(stopGrace):
			_ = cmd.Process.Kill()
			<-exited
		}
	}
	l.clear()
	log.Printf("launcher event=stop model=%q", l.opts.Preset.Repo)
	l.publisher.Publish(Event{Name: "launch_stop", Fields: map[string]any{}})
	return nil
}

func (l *Launcher) clear() {
	l.mu.Lock()
	l.cmd = nil
	l.ready = false
	l.mu.Unlock()
}

// Running reports whether a spawned process is still alive.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	cmd := l.cmd
	exited := l.exited
	l.mu.Unlock()
	if cmd == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

// Ready reports whether the engine has passed its readiness health check.
func (l *Launcher) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// BaseURL returns the engine HTTP address ("" before the first Start).
func (l *Launcher) BaseURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baseURL
}

// PID returns the engine process id (0 before the first Start).
func (l *Launcher) PID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pid
}

// Port returns the engine HTTP port (0 before the first Start).
func (l *Launcher) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// StartedAt returns when the current process was spawned.
func (l *Launcher) StartedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startedAt
}

// Exited returns a channel closed when the current process exits.
// Returns nil before the first Start.
func (l *Launcher) Exited() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exited
}

// ExitError returns the recorded process exit error, if any.
func (l *Launcher) ExitError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exitErr
}

// OutputTail returns the last captured engine output for diagnostics.
func (l *Launcher) OutputTail() string {
	l.mu.Lock()
	tail := l.stderrTail
	l.mu.Unlock()
	if tail == nil {
		return ""
	}
	return tail.Tail()
}

func engineEnv(token, cacheDir string) []string {
	env := os.Environ()
	if token != "" {
		env = append(env, TokenEnv+"="+token)
	}
	if cacheDir != "" {
		env = append(env, hubCacheEnv+"="+cacheDir)
	}
	return env
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	p, err := strconv.Atoi(addr[lastColon+1:])
	if err != nil {
		return 0, err
	}
	return p, nil
}

// tailWriter keeps the last max bytes written, for failure diagnostics on
// long-lived processes without holding their whole output.
type tailWriter struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailWriter) Tail() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
