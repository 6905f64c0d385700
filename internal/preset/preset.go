// Package preset holds the catalog of servable text-to-SQL models. The
// embedded YAML file is the source of truth; model metadata should not be
// hardcoded elsewhere in the codebase.
package preset

import (
	_ "embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"sqlcoderd/pkg/types"
)

// DefaultID is the preset served when none is configured.
const DefaultID = "sqlcoder2"

//go:embed catalog.yaml
var catalogYAML []byte

// Duration parses human-readable durations ("15m") from the catalog.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("readiness_timeout: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

// Preset declares everything needed to serve one model: where the weights
// live, which serving image to run, and the GPU shape the container needs.
type Preset struct {
	ID       string `yaml:"id"`
	Repo     string `yaml:"repo"`
	Revision string `yaml:"revision,omitempty"`
	Image    string `yaml:"image"`
	GPU      string `yaml:"gpu"`
	GPUCount int    `yaml:"gpu_count"`
	VRAMGB   int    `yaml:"vram_gb"`
	// Quantize selects the launcher quantization method (e.g. gptq).
	// Quantization degrades token generation performance; prefer full
	// precision when the GPU fits the model.
	Quantize string `yaml:"quantize,omitempty"`
	Gated    bool   `yaml:"gated,omitempty"`
	// ReadinessTimeout bounds how long the launcher may take to load the
	// model and accept connections.
	ReadinessTimeout Duration `yaml:"readiness_timeout,omitempty"`
}

// LaunchFlags assembles the text-generation-launcher argument list for this
// preset, serving on the given local port.
func (p Preset) LaunchFlags(port int) []string {
	flags := []string{
		"--model-id", p.Repo,
		"--port", strconv.Itoa(port),
	}
	if p.Revision != "" {
		flags = append(flags, "--revision", p.Revision)
	}
	if p.Quantize != "" {
		flags = append(flags, "--quantize", p.Quantize)
	}
	if p.GPUCount > 1 {
		flags = append(flags, "--num-shard", strconv.Itoa(p.GPUCount))
	}
	return flags
}

// DownloadArgs assembles the text-generation-server download-weights
// arguments used to pre-populate the hub cache.
func (p Preset) DownloadArgs() []string {
	args := []string{"download-weights", p.Repo}
	if p.Revision != "" {
		args = append(args, "--revision", p.Revision)
	}
	return args
}

// DefaultAppName derives the deployment name from the hub repo,
// e.g. defog/sqlcoder2 -> tgi-sqlcoder2.
func (p Preset) DefaultAppName() string {
	return "tgi-" + path.Base(p.Repo)
}

// Card projects the preset into its wire representation.
func (p Preset) Card() types.Model {
	return types.Model{
		ID:       p.ID,
		Repo:     p.Repo,
		Revision: p.Revision,
		Image:    p.Image,
		GPU:      p.GPU,
		GPUCount: p.GPUCount,
		Gated:    p.Gated,
	}
}

type catalog struct {
	Models []Preset `yaml:"models"`
}

var registry map[string]Preset

func init() {
	var c catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		panic(fmt.Sprintf("preset: invalid embedded catalog: %v", err))
	}
	registry = make(map[string]Preset, len(c.Models))
	for _, p := range c.Models {
		if p.ID == "" {
			panic("preset: catalog entry without id")
		}
		if _, dup := registry[p.ID]; dup {
			panic("preset: duplicate catalog id " + p.ID)
		}
		registry[p.ID] = p
	}
}

// Get returns the preset for id.
func Get(id string) (Preset, error) {
	p, ok := registry[id]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q", id)
	}
	return p, nil
}

// MustGet is Get for catalog entries known at compile time.
func MustGet(id string) Preset {
	p, err := Get(id)
	if err != nil {
		panic(err)
	}
	return p
}

// List returns all presets ordered by id.
func List() []Preset {
	ids := lo.Keys(registry)
	sort.Strings(ids)
	return lo.Map(ids, func(id string, _ int) Preset { return registry[id] })
}

// Cards returns the wire representation of the whole catalog.
func Cards() []types.Model {
	return lo.Map(List(), func(p Preset, _ int) types.Model { return p.Card() })
}
