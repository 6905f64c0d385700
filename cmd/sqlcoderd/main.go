package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sqlcoderd/internal/httpapi"
	"sqlcoderd/internal/launcher"
	"sqlcoderd/internal/preset"
	"sqlcoderd/internal/serving"
)

func main() {
	// Flags with environment variable defaults. Inside a deployed container
	// the interesting ones (SQLCODERD_PRESET, SQLCODERD_ADDR, SQLCODERD_WARMUP,
	// HUGGINGFACE_HUB_CACHE, HUGGING_FACE_HUB_TOKEN) arrive through the
	// container environment.
	configPath := flag.String("config", envStr("SQLCODERD_CONFIG", ""), "Config file (yaml/json/toml); env and flags override it")
	addr := flag.String("addr", "", "HTTP listen address (default :8000)")
	presetID := flag.String("preset", "", "Model preset id to serve (default "+preset.DefaultID+")")
	launcherBin := flag.String("launcher-bin", "", "text-generation-launcher executable (default "+launcher.DefaultLauncherBin+")")
	enginePort := flag.Int("engine-port", 0, "Port for the inference engine (0 picks a free port)")
	hubCacheDir := flag.String("hub-cache-dir", "", "Hub weights cache directory passed to the engine")
	maxConcurrent := flag.Int("max-concurrent-inputs", 0, "Concurrent generations forwarded to the engine (default 10)")
	maxQueueDepth := flag.Int("max-queue-depth", 0, "Requests allowed to wait for a slot (default 32)")
	maxWaitS := flag.Int("max-wait-s", 0, "Seconds a request may wait for a slot before 429 (default 30)")
	requestTimeoutS := flag.Int("request-timeout-s", 0, "Per-request deadline in seconds (default 3600)")
	idleTimeoutS := flag.Int("idle-timeout-s", 0, "Stop the engine after this many idle seconds; negative disables (default 600)")
	readinessTimeoutS := flag.Int("readiness-timeout-s", 0, "Seconds to wait for the engine to become healthy (default per preset)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (default info)")
	logFormat := flag.String("log-format", "", "Log format: json or console (default json)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins (empty leaves CORS off)")
	maxBodyBytes := flag.Int64("max-body-bytes", 0, "Request body size limit in bytes (default 1 MiB)")
	warmup := flag.Bool("warmup", envBool("SQLCODERD_WARMUP"), "Start the engine immediately instead of on first request")
	flag.Parse()

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Explicit flags win over both the file and the environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "preset":
			cfg.Preset = *presetID
		case "launcher-bin":
			cfg.LauncherBin = *launcherBin
		case "engine-port":
			cfg.Port = *enginePort
		case "hub-cache-dir":
			cfg.HubCacheDir = *hubCacheDir
		case "max-concurrent-inputs":
			cfg.MaxConcurrentInputs = *maxConcurrent
		case "max-queue-depth":
			cfg.MaxQueueDepth = *maxQueueDepth
		case "max-wait-s":
			cfg.MaxWaitS = *maxWaitS
		case "request-timeout-s":
			cfg.RequestTimeoutS = *requestTimeoutS
		case "idle-timeout-s":
			cfg.IdleTimeoutS = *idleTimeoutS
		case "readiness-timeout-s":
			cfg.ReadinessTimeoutS = *readinessTimeoutS
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "cors-origins":
			cfg.CORSAllowedOrigins = splitCSV(*corsOrigins)
			cfg.CORSEnabled = len(cfg.CORSAllowedOrigins) > 0
		}
	})
	fillDefaults(&cfg)

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	httpapi.SetLogger(logger)

	p, err := preset.Get(cfg.Preset)
	if err != nil {
		logger.Fatal().Err(err).Msg("unknown preset")
	}

	svc := serving.NewWithConfig(serving.ServiceConfig{
		Preset:              p,
		LauncherBin:         cfg.LauncherBin,
		Port:                cfg.Port,
		HubToken:            os.Getenv(launcher.TokenEnv),
		HubCacheDir:         cfg.HubCacheDir,
		MaxConcurrentInputs: cfg.MaxConcurrentInputs,
		MaxQueueDepth:       cfg.MaxQueueDepth,
		MaxWait:             cfg.MaxWait(),
		RequestTimeout:      cfg.RequestTimeout(),
		IdleTimeout:         cfg.IdleTimeout(),
		ReadinessTimeout:    cfg.ReadinessTimeout(),
	})

	// Canceled at shutdown so inflight streams end instead of holding the
	// drain open for up to a full request timeout.
	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSAllowedOrigins, nil, nil)
	}
	if *maxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(*maxBodyBytes)
	}

	if *warmup {
		go func() {
			if err := svc.Warmup(baseCtx); err != nil {
				if baseCtx.Err() != nil {
					return // shutting down
				}
				logger.Fatal().Err(err).Msg("engine warmup failed")
			}
			logger.Info().Str("model", p.Repo).Msg("engine warm")
		}()
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(svc)}
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("preset", p.ID).
			Str("model", p.Repo).
			Msg("sqlcoderd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")
	baseCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := svc.Close(); err != nil {
		logger.Warn().Err(err).Msg("engine stop error")
	}
}
