package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
// Durations are expressed in seconds so the same keys work across YAML,
// JSON and TOML without format-specific duration syntax.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr"`
	Preset      string `json:"preset" yaml:"preset" toml:"preset"`
	LauncherBin string `json:"launcher_bin" yaml:"launcher_bin" toml:"launcher_bin"`
	Port        int    `json:"port" yaml:"port" toml:"port"`
	HubCacheDir string `json:"hub_cache_dir" yaml:"hub_cache_dir" toml:"hub_cache_dir"`

	MaxConcurrentInputs int `json:"max_concurrent_inputs" yaml:"max_concurrent_inputs" toml:"max_concurrent_inputs"`
	MaxQueueDepth       int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitS            int `json:"max_wait_s" yaml:"max_wait_s" toml:"max_wait_s"`
	RequestTimeoutS     int `json:"request_timeout_s" yaml:"request_timeout_s" toml:"request_timeout_s"`
	IdleTimeoutS        int `json:"idle_timeout_s" yaml:"idle_timeout_s" toml:"idle_timeout_s"`
	ReadinessTimeoutS   int `json:"readiness_timeout_s" yaml:"readiness_timeout_s" toml:"readiness_timeout_s"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

// MaxWait converts MaxWaitS to a duration (0 when unset).
func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitS) * time.Second }

// RequestTimeout converts RequestTimeoutS to a duration (0 when unset).
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutS) * time.Second
}

// IdleTimeout converts IdleTimeoutS to a duration (0 when unset).
func (c Config) IdleTimeout() time.Duration { return time.Duration(c.IdleTimeoutS) * time.Second }

// ReadinessTimeout converts ReadinessTimeoutS to a duration (0 when unset).
func (c Config) ReadinessTimeout() time.Duration {
	return time.Duration(c.ReadinessTimeoutS) * time.Second
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
