package deploy

import (
	"context"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// ContainerStatus is a condensed view of a container's runtime state.
type ContainerStatus struct {
	ID       string
	Running  bool
	Status   string
	ExitCode int
}

// Engine is the container platform surface the deployer needs. The
// production implementation talks to the local Docker engine; tests
// substitute a fake.
type Engine interface {
	EnsureImage(ctx context.Context, ref string) error
	Run(ctx context.Context, spec ContainerSpec) (string, error)
	Stop(ctx context.Context, id string, grace time.Duration) error
	Inspect(ctx context.Context, id string) (ContainerStatus, error)
	Close() error
}

type dockerEngine struct {
	cli *client.Client
}

// NewDockerEngine connects to the local Docker engine using the standard
// environment configuration (DOCKER_HOST et al).
func NewDockerEngine() (Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &dockerEngine{cli: cli}, nil
}

func (e *dockerEngine) EnsureImage(ctx context.Context, ref string) error {
	rc, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()
	// The pull completes when the progress stream ends.
	_, err = io.Copy(io.Discard, rc)
	return err
}

func (e *dockerEngine) Run(ctx context.Context, spec ContainerSpec) (string, error) {
	cfg, host, err := containerConfig(spec)
	if err != nil {
		return "", err
	}
	resp, err := e.cli.ContainerCreate(ctx, cfg, host, nil, nil, spec.Name)
	if err != nil {
		return "", err
	}
	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (e *dockerEngine) Stop(ctx context.Context, id string, grace time.Duration) error {
	secs := int(grace.Seconds())
	if err := e.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return err
	}
	return e.cli.ContainerRemove(ctx, id, container.RemoveOptions{})
}

func (e *dockerEngine) Inspect(ctx context.Context, id string) (ContainerStatus, error) {
	info, err := e.cli.ContainerInspect(ctx, id)
	if err != nil {
		return ContainerStatus{}, err
	}
	st := ContainerStatus{ID: info.ID}
	if info.State != nil {
		st.Running = info.State.Running
		st.Status = string(info.State.Status)
		st.ExitCode = info.State.ExitCode
	}
	return st, nil
}

func (e *dockerEngine) Close() error { return e.cli.Close() }
