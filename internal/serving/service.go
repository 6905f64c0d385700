package serving

import (
	"sync"
	"time"

	"sqlcoderd/internal/preset"
	"sqlcoderd/internal/tgi"
	"sqlcoderd/pkg/types"
)

// Defaults applied when corresponding ServiceConfig fields are unset.
// MaxConcurrentInputs, RequestTimeout and IdleTimeout mirror the deployment
// parameters the model was tuned for: ten concurrent inputs per replica, an
// hour per request, scale-to-zero after ten idle minutes.
const (
	defaultMaxConcurrentInputs = 10
	defaultMaxQueueDepth       = 32
	defaultMaxWait             = 30 * time.Second
	defaultRequestTimeout      = time.Hour
	defaultIdleTimeout         = 10 * time.Minute
	defaultMaxNewTokens        = 1024
)

// ServiceConfig encapsulates all tunables for Service construction.
type ServiceConfig struct {
	Preset      preset.Preset
	LauncherBin string
	Port        int
	HubToken    string
	HubCacheDir string

	MaxConcurrentInputs int
	MaxQueueDepth       int
	MaxWait             time.Duration
	RequestTimeout      time.Duration
	// IdleTimeout stops the engine after this much inactivity; <0 disables
	// the reaper, 0 uses the default.
	IdleTimeout      time.Duration
	ReadinessTimeout time.Duration

	// Engine overrides the supervised process for tests; nil builds a
	// launcher from the fields above.
	Engine Engine
}

// Service owns one engine and admits generation requests against it.
type Service struct {
	pre            preset.Preset
	engine         Engine
	requestTimeout time.Duration
	idleTimeout    time.Duration
	maxWait        time.Duration
	maxNewTokens   int

	queueCh chan struct{}
	genCh   chan struct{}

	mu         sync.RWMutex
	lastUsed   time.Time
	lastError  string
	starting   bool
	client     *tgi.Client
	clientBase string

	startMu sync.Mutex // serializes cold starts

	startTime   time.Time
	generations uint64
	coldStarts  uint64

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// NewWithConfig constructs a Service from ServiceConfig and starts the idle
// reaper. The engine itself is not started until the first request (or an
// explicit Warmup).
func NewWithConfig(cfg ServiceConfig) *Service {
	s := &Service{
		pre:          cfg.Preset,
		maxNewTokens: defaultMaxNewTokens,
		startTime:    time.Now(),
		lastUsed:     time.Now(),
		reaperStop:   make(chan struct{}),
		reaperDone:   make(chan struct{}),
	}
	if cfg.MaxConcurrentInputs <= 0 {
		cfg.MaxConcurrentInputs = defaultMaxConcurrentInputs
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	switch {
	case cfg.IdleTimeout == 0:
		cfg.IdleTimeout = defaultIdleTimeout
	case cfg.IdleTimeout < 0:
		cfg.IdleTimeout = 0
	}
	s.queueCh = make(chan struct{}, cfg.MaxQueueDepth)
	s.genCh = make(chan struct{}, cfg.MaxConcurrentInputs)
	s.maxWait = cfg.MaxWait
	s.requestTimeout = cfg.RequestTimeout
	s.idleTimeout = cfg.IdleTimeout
	s.engine = cfg.Engine
	if s.engine == nil {
		s.engine = newEngineLauncher(cfg)
	}
	go s.idleReaper()
	return s
}

// ListModels returns the servable catalog; the first entry is the one this
// service hosts.
func (s *Service) ListModels() []types.Model {
	out := []types.Model{s.pre.Card()}
	for _, m := range preset.Cards() {
		if m.ID != s.pre.ID {
			out = append(out, m)
		}
	}
	return out
}

// Ready reports whether the engine is running and passing health checks.
// A stopped engine is not ready; the next request will cold-start it.
func (s *Service) Ready() bool {
	return s.engine.Running() && s.engine.Ready()
}

// Close stops the idle reaper and the engine. Blocks until both are down.
func (s *Service) Close() error {
	close(s.reaperStop)
	<-s.reaperDone
	return s.engine.Stop()
}

func (s *Service) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	if err == nil {
		s.lastError = ""
	} else {
		s.lastError = err.Error()
	}
	s.mu.Unlock()
}
