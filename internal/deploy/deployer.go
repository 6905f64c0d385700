package deploy

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"sqlcoderd/internal/preset"
)

const (
	defaultHostIP       = "127.0.0.1"
	defaultHostPort     = 8000
	defaultCacheVolume  = "sqlcoderd-hub-cache"
	defaultReadyTimeout = 15 * time.Minute
	stopGrace           = 30 * time.Second
	probeEvery          = 1 * time.Second
	probeTimeout        = 2 * time.Second
)

// Options carries per-deploy knobs from the CLI. Zero values select
// defaults; App defaults to the preset's app name.
type Options struct {
	App          string
	HostIP       string
	HostPort     int
	DaemonBin    string
	CacheVolume  string
	ReadyTimeout time.Duration
}

func (o *Options) applyDefaults(p preset.Preset) {
	if o.App == "" {
		o.App = p.DefaultAppName()
	}
	if o.HostIP == "" {
		o.HostIP = defaultHostIP
	}
	if o.HostPort == 0 {
		o.HostPort = defaultHostPort
	}
	if o.CacheVolume == "" {
		o.CacheVolume = defaultCacheVolume
	}
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = defaultReadyTimeout
	}
}

// DeploymentStatus pairs the stored record with the container's live state.
type DeploymentStatus struct {
	Deployment
	Container ContainerStatus
}

// Deployer creates, tracks and tears down serving containers.
type Deployer struct {
	engine      Engine
	deployments *StateStore
	secrets     *SecretStore
	httpc       *http.Client
}

// New builds a Deployer on top of engine and the two stores.
func New(engine Engine, deployments *StateStore, secrets *SecretStore) *Deployer {
	return &Deployer{
		engine:      engine,
		deployments: deployments,
		secrets:     secrets,
		httpc:       &http.Client{Timeout: probeTimeout},
	}
}

// Deploy pulls the preset's image, starts a container named after the app
// with the preset's GPU shape and the hub token from the secret store, waits
// until the daemon inside reports ready, and records the deployment.
// Engine and readiness failures surface with their native messages.
func (d *Deployer) Deploy(ctx context.Context, p preset.Preset, opts Options) (Deployment, error) {
	opts.applyDefaults(p)

	token, ok, err := d.secrets.Get(SecretHuggingFace)
	if err != nil {
		return Deployment{}, err
	}
	if !ok && p.Gated {
		return Deployment{}, fmt.Errorf("preset %s requires hub credentials: set the %q secret first", p.ID, SecretHuggingFace)
	}

	spec, err := BuildSpec(opts.App, p, opts, token)
	if err != nil {
		return Deployment{}, err
	}

	log.Printf("deploy_pull app=%s image=%s", opts.App, p.Image)
	if err := d.engine.EnsureImage(ctx, p.Image); err != nil {
		return Deployment{}, err
	}

	id, err := d.engine.Run(ctx, spec)
	if err != nil {
		return Deployment{}, err
	}
	log.Printf("deploy_start app=%s container=%s gpus=%d port=%d", opts.App, shortID(id), spec.GPUs, opts.HostPort)

	dep := Deployment{
		App:         opts.App,
		Preset:      p.ID,
		ContainerID: id,
		Image:       p.Image,
		HostPort:    opts.HostPort,
		Endpoint:    fmt.Sprintf("http://%s:%d", opts.HostIP, opts.HostPort),
		CreatedUnix: time.Now().Unix(),
	}
	if err := d.waitReady(ctx, dep.Endpoint, id, opts.ReadyTimeout); err != nil {
		// Leave the container in place so its logs can be inspected.
		return Deployment{}, err
	}
	if err := d.deployments.Put(dep); err != nil {
		return Deployment{}, err
	}
	log.Printf("deploy_ready app=%s endpoint=%s", opts.App, dep.Endpoint)
	return dep, nil
}

// waitReady polls the daemon's readiness endpoint until it reports ready,
// failing fast when the container exits underneath it.
func (d *Deployer) waitReady(ctx context.Context, endpoint, containerID string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := endpoint + "/readyz"
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := d.httpc.Do(req)
		if err == nil {
			code := resp.StatusCode
			resp.Body.Close()
			if code == http.StatusOK {
				return nil
			}
		}

		st, ierr := d.engine.Inspect(ctx, containerID)
		if ierr == nil && !st.Running {
			return fmt.Errorf("container %s exited unexpectedly with code %d", shortID(containerID), st.ExitCode)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("container %s not ready after %s", shortID(containerID), timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(probeEvery):
		}
	}
}

// Lookup returns the deployment record for app.
func (d *Deployer) Lookup(app string) (Deployment, error) {
	dep, ok, err := d.deployments.Get(app)
	if err != nil {
		return Deployment{}, err
	}
	if !ok {
		return Deployment{}, fmt.Errorf("app %q is not deployed", app)
	}
	return dep, nil
}

// Status combines the stored record with the container's live state.
func (d *Deployer) Status(ctx context.Context, app string) (DeploymentStatus, error) {
	dep, err := d.Lookup(app)
	if err != nil {
		return DeploymentStatus{}, err
	}
	st, err := d.engine.Inspect(ctx, dep.ContainerID)
	if err != nil {
		return DeploymentStatus{}, err
	}
	return DeploymentStatus{Deployment: dep, Container: st}, nil
}

// Stop tears down the app's container and removes its record.
func (d *Deployer) Stop(ctx context.Context, app string) error {
	dep, err := d.Lookup(app)
	if err != nil {
		return err
	}
	if err := d.engine.Stop(ctx, dep.ContainerID, stopGrace); err != nil {
		return err
	}
	log.Printf("deploy_stop app=%s container=%s", app, shortID(dep.ContainerID))
	return d.deployments.Remove(app)
}

// List returns all recorded deployments.
func (d *Deployer) List() ([]Deployment, error) {
	return d.deployments.List()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
