package ctl

import (
	"os"
	"path/filepath"

	"sqlcoderd/internal/deploy"
	"sqlcoderd/internal/preset"
)

// Config carries the settings shared by every command.
type Config struct {
	StateDir string // directory holding deployments.json and secrets.json
	Preset   string // preset id used by deploy, download and run
	LogLvl   string
}

// DefaultConfig resolves defaults from the environment.
func DefaultConfig() *Config {
	return &Config{
		StateDir: envStr("SQLCODERCTL_STATE_DIR", "~/.sqlcoderd"),
		Preset:   envStr("SQLCODERCTL_PRESET", preset.DefaultID),
		LogLvl:   envStr("SQLCODERCTL_LOG_LEVEL", "info"),
	}
}

// stores opens the deployments and secrets files under the state directory.
func (c *Config) stores() (*deploy.StateStore, *deploy.SecretStore, error) {
	debug("state dir %s", c.StateDir)
	deployments, err := deploy.NewStateStore(filepath.Join(c.StateDir, "deployments.json"))
	if err != nil {
		return nil, nil, err
	}
	secrets, err := deploy.NewSecretStore(filepath.Join(c.StateDir, "secrets.json"))
	if err != nil {
		return nil, nil, err
	}
	return deployments, secrets, nil
}

// MainWithArgs runs the CLI and returns the process exit code. Split from
// main so tests can drive the full command tree.
func MainWithArgs(args []string) int {
	cfg := DefaultConfig()
	root := BuildRootCmd(cfg)
	if len(args) == 0 {
		_ = root.Help()
		return 2
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		errl("%v", err)
		return 1
	}
	return 0
}

// Main returns an exit code (0 for success, non-zero on error) for use by
// cmd/sqlcoderctl.
func Main() int { return MainWithArgs(os.Args[1:]) }
