package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/samber/lo"

	"sqlcoderd/internal/common/fsutil"
)

// Deployment is one record in the deployments file.
type Deployment struct {
	App         string `json:"app"`
	Preset      string `json:"preset"`
	ContainerID string `json:"container_id"`
	Image       string `json:"image"`
	HostPort    int    `json:"host_port"`
	Endpoint    string `json:"endpoint"`
	CreatedUnix int64  `json:"created_unix"`
}

// StateStore persists deployments as a JSON file keyed by app name.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore opens (or will create on first save) the deployments file at
// path. A leading '~' is expanded.
func NewStateStore(path string) (*StateStore, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return &StateStore{path: p}, nil
}

// Put inserts or replaces the record for d.App.
func (s *StateStore) Put(d Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	data[d.App] = d
	return s.save(data)
}

// Get returns the record for app and whether it exists.
func (s *StateStore) Get(app string) (Deployment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return Deployment{}, false, err
	}
	d, ok := data[app]
	return d, ok, nil
}

// Remove deletes the record for app. Removing an absent app is not an error.
func (s *StateStore) Remove(app string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[app]; !ok {
		return nil
	}
	delete(data, app)
	return s.save(data)
}

// List returns all records sorted by app name.
func (s *StateStore) List() ([]Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	apps := lo.Keys(data)
	sort.Strings(apps)
	return lo.Map(apps, func(app string, _ int) Deployment { return data[app] }), nil
}

func (s *StateStore) load() (map[string]Deployment, error) {
	data := map[string]Deployment{}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return data, nil
}

func (s *StateStore) save(data map[string]Deployment) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileDir(s.path, b, 0o755, 0o644)
}
