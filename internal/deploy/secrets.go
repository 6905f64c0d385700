package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"sqlcoderd/internal/common/fsutil"
)

// SecretHuggingFace is the secret name deploy reads the hub token from. The
// token is materialized in the container as the HUGGING_FACE_HUB_TOKEN
// environment variable.
const SecretHuggingFace = "huggingface"

// SecretStore persists named secrets as a mode-0600 JSON file.
type SecretStore struct {
	mu   sync.Mutex
	path string
}

// NewSecretStore opens (or will create on first save) the secrets file at
// path. A leading '~' is expanded.
func NewSecretStore(path string) (*SecretStore, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return &SecretStore{path: p}, nil
}

// Set stores value under name.
func (s *SecretStore) Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	data[name] = value
	return s.save(data)
}

// Get returns the secret value and whether it is set.
func (s *SecretStore) Get(name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[name]
	return v, ok, nil
}

// Delete removes the secret. Deleting an absent secret is not an error.
func (s *SecretStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[name]; !ok {
		return nil
	}
	delete(data, name)
	return s.save(data)
}

func (s *SecretStore) load() (map[string]string, error) {
	data := map[string]string{}
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

func (s *SecretStore) save(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	// Tokens only: keep the file owner-readable.
	return fsutil.WriteFileDir(s.path, b, 0o700, 0o600)
}
