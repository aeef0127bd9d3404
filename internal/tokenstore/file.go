package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	configDirName = "storefront"
	tokenFileName = "tokens.yaml"
)

// FileBackend stores tokens in a YAML file readable only by the current user.
// The file holds one section per namespace (the API base URL), so several
// backends can share it without seeing each other's tokens.
type FileBackend struct {
	mu        sync.Mutex
	path      string
	namespace string
}

// DefaultTokenFilePath returns ~/.config/storefront/tokens.yaml
func DefaultTokenFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, tokenFileName), nil
}

// NewFileBackend creates a file backend scoped to namespace at path, or at
// the default path when empty
func NewFileBackend(path, namespace string) (*FileBackend, error) {
	if path == "" {
		p, err := DefaultTokenFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &FileBackend{path: path, namespace: namespace}, nil
}

// Path returns the file location
func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) load() (map[string]map[string]string, error) {
	sections := map[string]map[string]string{}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sections, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if sections == nil {
		sections = map[string]map[string]string{}
	}
	return sections, nil
}

func (f *FileBackend) save(sections map[string]map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := yaml.Marshal(sections)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (f *FileBackend) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sections, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := sections[f.namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileBackend) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sections, err := f.load()
	if err != nil {
		return err
	}
	if sections[f.namespace] == nil {
		sections[f.namespace] = map[string]string{}
	}
	sections[f.namespace][key] = value
	return f.save(sections)
}

func (f *FileBackend) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sections, err := f.load()
	if err != nil {
		return err
	}
	values, ok := sections[f.namespace]
	if !ok {
		return nil
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		delete(sections, f.namespace)
	}
	return f.save(sections)
}
