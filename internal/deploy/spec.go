package deploy

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/go-connections/nat"
	"github.com/samber/lo"

	"sqlcoderd/internal/launcher"
	"sqlcoderd/internal/preset"
)

// ContainerPort is the in-container port the daemon listens on, matching the
// engine images' conventional serving port.
const ContainerPort = 8000

// hubCacheTarget is where the weights cache volume mounts inside the
// container. TGI images default HUGGINGFACE_HUB_CACHE to /data.
const hubCacheTarget = "/data"

// daemonBinTarget is where the daemon binary is bind-mounted inside the
// container. The image ships with the engine as its entrypoint; we override
// it so the daemon supervises the engine instead.
const daemonBinTarget = "/usr/local/bin/sqlcoderd"

// Bind is a host-path bind mount.
type Bind struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Volume is a named-volume mount.
type Volume struct {
	Name   string
	Target string
}

// ContainerSpec describes one serving container in engine-neutral terms.
type ContainerSpec struct {
	Name       string
	Image      string
	Entrypoint []string
	Env        []string
	Binds      []Bind
	Volumes    []Volume
	HostIP     string
	HostPort   int
	GPUs       int
}

// BuildSpec assembles the container spec for serving preset p as app. The
// token, when non-empty, is injected as the hub credentials env var.
func BuildSpec(app string, p preset.Preset, opts Options, token string) (ContainerSpec, error) {
	if app == "" {
		return ContainerSpec{}, fmt.Errorf("app name is required")
	}
	if _, err := reference.ParseDockerRef(p.Image); err != nil {
		return ContainerSpec{}, fmt.Errorf("preset %s: invalid image reference %q: %w", p.ID, p.Image, err)
	}
	// Warmup makes the daemon start the engine at boot, so the deployer's
	// readiness wait observes real model load rather than a lazy idle daemon.
	env := map[string]string{
		"HUGGINGFACE_HUB_CACHE": hubCacheTarget,
		"SQLCODERD_PRESET":      p.ID,
		"SQLCODERD_ADDR":        fmt.Sprintf(":%d", ContainerPort),
		"SQLCODERD_WARMUP":      "1",
	}
	if token != "" {
		env[launcher.TokenEnv] = token
	}
	envs := lo.MapToSlice(env, func(k, v string) string { return k + "=" + v })
	sort.Strings(envs)

	spec := ContainerSpec{
		Name:       app,
		Image:      p.Image,
		Entrypoint: []string{daemonBinTarget},
		Env:        envs,
		Volumes:    []Volume{{Name: opts.CacheVolume, Target: hubCacheTarget}},
		HostIP:     opts.HostIP,
		HostPort:   opts.HostPort,
		GPUs:       p.GPUCount,
	}
	if opts.DaemonBin != "" {
		spec.Binds = append(spec.Binds, Bind{Source: opts.DaemonBin, Target: daemonBinTarget, ReadOnly: true})
	}
	return spec, nil
}

// containerConfig translates a ContainerSpec into Docker engine API objects.
func containerConfig(spec ContainerSpec) (*container.Config, *container.HostConfig, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(ContainerPort))
	if err != nil {
		return nil, nil, err
	}

	cfg := &container.Config{
		Image:      spec.Image,
		Entrypoint: strslice.StrSlice(spec.Entrypoint),
		Env:        spec.Env,
		ExposedPorts: nat.PortSet{
			port: struct{}{},
		},
	}

	mounts := make([]mount.Mount, 0, len(spec.Binds)+len(spec.Volumes))
	for _, b := range spec.Binds {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   b.Source,
			Target:   b.Target,
			ReadOnly: b.ReadOnly,
		})
	}
	for _, v := range spec.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeVolume,
			Source: v.Name,
			Target: v.Target,
		})
	}

	host := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{
				HostIP:   spec.HostIP,
				HostPort: strconv.Itoa(spec.HostPort),
			}},
		},
		Mounts: mounts,
	}
	if spec.GPUs > 0 {
		host.Resources = container.Resources{
			DeviceRequests: []container.DeviceRequest{{
				Driver:       "nvidia",
				Count:        spec.GPUs,
				Capabilities: [][]string{{"gpu"}},
			}},
		}
	}
	return cfg, host, nil
}
