package main

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"sqlcoderd/internal/config"
	"sqlcoderd/internal/launcher"
	"sqlcoderd/internal/preset"
)

// resolveConfig loads the optional config file and overlays environment
// variables. Flag handling (the highest-precedence source) stays in main.
func resolveConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays the environment variables a deployed container is
// started with onto cfg.
func applyEnv(cfg *config.Config) {
	if v := os.Getenv("SQLCODERD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SQLCODERD_PRESET"); v != "" {
		cfg.Preset = v
	}
	if v := os.Getenv("HUGGINGFACE_HUB_CACHE"); v != "" {
		cfg.HubCacheDir = v
	}
	if v := os.Getenv("SQLCODERD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SQLCODERD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

// fillDefaults completes the string settings no source provided. Numeric
// zeros stay zero; the serving and launcher layers apply their own defaults.
func fillDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.Preset == "" {
		cfg.Preset = preset.DefaultID
	}
	if cfg.LauncherBin == "" {
		cfg.LauncherBin = launcher.DefaultLauncherBin
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
}

func setupLogger(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "sqlcoderd").Logger()
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
