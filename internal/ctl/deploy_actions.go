package ctl

import (
	"context"
	"fmt"
	"os"
	"time"

	"sqlcoderd/internal/common/fsutil"
	"sqlcoderd/internal/deploy"
	"sqlcoderd/internal/launcher"
	"sqlcoderd/internal/preset"
)

// newEngine is swapped out by tests that have no Docker daemon.
var newEngine = deploy.NewDockerEngine

type deployOpts struct {
	App          string
	Preset       string
	HostIP       string
	Port         int
	DaemonBin    string
	CacheVolume  string
	ReadyTimeout time.Duration
}

func deployApp(cfg *Config, opts deployOpts) error {
	p, err := preset.Get(opts.Preset)
	if err != nil {
		return err
	}
	deployments, secrets, err := cfg.stores()
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	daemonBin := opts.DaemonBin
	if daemonBin != "" {
		if daemonBin, err = fsutil.ExpandHome(daemonBin); err != nil {
			return err
		}
		if !fsutil.PathExists(daemonBin) {
			return fmt.Errorf("daemon binary %s does not exist", daemonBin)
		}
	}

	info("deploying preset %s (image %s, %dx %s)", p.ID, p.Image, p.GPUCount, p.GPU)
	dep, err := deploy.New(eng, deployments, secrets).Deploy(context.Background(), p, deploy.Options{
		App:          opts.App,
		HostIP:       opts.HostIP,
		HostPort:     opts.Port,
		DaemonBin:    daemonBin,
		CacheVolume:  opts.CacheVolume,
		ReadyTimeout: opts.ReadyTimeout,
	})
	if err != nil {
		return err
	}
	info("deployed %s at %s", dep.App, dep.Endpoint)
	return nil
}

func appStatus(cfg *Config, app string) error {
	app, err := resolveApp(cfg, app)
	if err != nil {
		return err
	}
	deployments, secrets, err := cfg.stores()
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	st, err := deploy.New(eng, deployments, secrets).Status(context.Background(), app)
	if err != nil {
		return err
	}
	fmt.Printf("app:       %s\n", st.App)
	fmt.Printf("preset:    %s\n", st.Preset)
	fmt.Printf("image:     %s\n", st.Image)
	fmt.Printf("container: %s (%s)\n", shortID(st.ContainerID), st.Container.Status)
	fmt.Printf("endpoint:  %s\n", st.Endpoint)
	if !st.Container.Running {
		return nil
	}

	// The container is up; ask the daemon for its serving state too.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, err := NewClient(st.Endpoint).Status(ctx)
	if err != nil {
		warn("daemon status unavailable: %v", err)
		return nil
	}
	fmt.Printf("engine:    %s", srv.Engine.State)
	if srv.Engine.PID > 0 {
		fmt.Printf(" (pid %d, port %d)", srv.Engine.PID, srv.Engine.Port)
	}
	fmt.Println()
	fmt.Printf("inflight:  %d/%d (queued %d)\n", srv.Inflight, srv.MaxConcurrentInputs, srv.QueueLen)
	fmt.Printf("totals:    %d generations, %d cold starts\n", srv.GenerationsTotal, srv.ColdStartsTotal)
	return nil
}

func stopApp(cfg *Config, app string) error {
	app, err := resolveApp(cfg, app)
	if err != nil {
		return err
	}
	deployments, secrets, err := cfg.stores()
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := deploy.New(eng, deployments, secrets).Stop(context.Background(), app); err != nil {
		return err
	}
	info("stopped %s", app)
	return nil
}

func secretSet(cfg *Config, name, value string) error {
	_, secrets, err := cfg.stores()
	if err != nil {
		return err
	}
	if err := secrets.Set(name, value); err != nil {
		return err
	}
	info("secret %s set", name)
	return nil
}

func secretRemove(cfg *Config, name string) error {
	_, secrets, err := cfg.stores()
	if err != nil {
		return err
	}
	if err := secrets.Delete(name); err != nil {
		return err
	}
	info("secret %s removed", name)
	return nil
}

type downloadOpts struct {
	Preset    string
	ServerBin string
	CacheDir  string
}

func downloadWeights(cfg *Config, opts downloadOpts) error {
	p, err := preset.Get(opts.Preset)
	if err != nil {
		return err
	}
	_, secrets, err := cfg.stores()
	if err != nil {
		return err
	}
	token, ok, err := secrets.Get(deploy.SecretHuggingFace)
	if err != nil {
		return err
	}
	if !ok && p.Gated {
		return fmt.Errorf("preset %s requires hub credentials: set the %q secret first", p.ID, deploy.SecretHuggingFace)
	}
	cacheDir := opts.CacheDir
	if cacheDir != "" {
		if cacheDir, err = fsutil.ExpandHome(cacheDir); err != nil {
			return err
		}
	}
	info("downloading %s@%s", p.Repo, p.Revision)
	return launcher.DownloadWeights(context.Background(), opts.ServerBin, p, token, cacheDir, os.Stdout)
}

// resolveApp defaults an empty app argument to the preset's app name.
func resolveApp(cfg *Config, app string) (string, error) {
	if app != "" {
		return app, nil
	}
	p, err := preset.Get(cfg.Preset)
	if err != nil {
		return "", err
	}
	return p.DefaultAppName(), nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
