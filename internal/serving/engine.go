package serving

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"sqlcoderd/internal/launcher"
	"sqlcoderd/internal/tgi"
)

const reaperInterval = 15 * time.Second

// Engine abstracts the supervised inference server so tests can substitute
// an in-process fake. launcher.Launcher is the production implementation.
type Engine interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
	Ready() bool
	BaseURL() string
	PID() int
	Port() int
	StartedAt() time.Time
}

func newEngineLauncher(cfg ServiceConfig) Engine {
	return launcher.New(launcher.Options{
		Bin:              cfg.LauncherBin,
		Preset:           cfg.Preset,
		Port:             cfg.Port,
		HubToken:         cfg.HubToken,
		HubCacheDir:      cfg.HubCacheDir,
		ReadinessTimeout: cfg.ReadinessTimeout,
	})
}

// ensureEngine returns a client for a ready engine, cold-starting it when
// needed. Requests arriving during a cold start block here until the engine
// is up; their deadline still comes from ctx.
func (s *Service) ensureEngine(ctx context.Context) (*tgi.Client, error) {
	if s.engine.Running() && s.engine.Ready() {
		return s.clientFor(s.engine.BaseURL()), nil
	}
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.engine.Running() && s.engine.Ready() {
		return s.clientFor(s.engine.BaseURL()), nil
	}

	s.mu.Lock()
	s.starting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	atomic.AddUint64(&s.coldStarts, 1)
	coldStartsTotal.Inc()
	log.Printf("serving event=cold_start model=%q", s.pre.Repo)
	if err := s.engine.Start(ctx); err != nil {
		s.setLastError(err)
		engineUp.Set(0)
		return nil, ErrNotReady("engine start: " + err.Error())
	}
	s.setLastError(nil)
	engineUp.Set(1)
	return s.clientFor(s.engine.BaseURL()), nil
}

// clientFor returns the cached engine client, rebuilding it when the engine
// came back on a different address.
func (s *Service) clientFor(baseURL string) *tgi.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil || s.clientBase != baseURL {
		// Request deadlines come from the caller's context; connect
		// timeout is short since the engine is local.
		s.client = tgi.NewClient(baseURL, 0, 5*time.Second)
		s.clientBase = baseURL
	}
	return s.client
}

// Warmup starts the engine without admitting a generation, so deployments
// can pay the cold start before taking traffic.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.ensureEngine(ctx)
	return err
}

// idleReaper stops the engine after idleTimeout with no admitted work,
// mirroring scale-to-zero on the hosted platform. The next request pays a
// cold start.
func (s *Service) idleReaper() {
	defer close(s.reaperDone)
	if s.idleTimeout <= 0 {
		<-s.reaperStop
		return
	}
	t := time.NewTicker(reaperInterval)
	defer t.Stop()
	for {
		select {
		case <-s.reaperStop:
			return
		case <-t.C:
			s.reapIfIdle()
		}
	}
}

func (s *Service) reapIfIdle() {
	if !s.engine.Running() {
		return
	}
	if len(s.genCh) > 0 || len(s.queueCh) > 0 {
		return
	}
	s.mu.RLock()
	idleFor := time.Since(s.lastUsed)
	s.mu.RUnlock()
	if idleFor < s.idleTimeout {
		return
	}
	// Re-check under startMu so a cold start in progress is never torn down.
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if len(s.genCh) > 0 || len(s.queueCh) > 0 {
		return
	}
	s.mu.RLock()
	idleFor = time.Since(s.lastUsed)
	s.mu.RUnlock()
	if idleFor < s.idleTimeout {
		return
	}
	log.Printf("serving event=idle_stop model=%q idle=%s", s.pre.Repo, idleFor.Truncate(time.Second))
	_ = s.engine.Stop()
	engineUp.Set(0)
}
