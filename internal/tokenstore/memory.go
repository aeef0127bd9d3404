package tokenstore

import "sync"

// MemoryBackend keeps values in process memory. Used by tests and by
// one-shot commands that must not touch durable storage.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend, optionally seeded
func NewMemoryBackend(seed map[string]string) *MemoryBackend {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryBackend{values: values}
}

func (m *MemoryBackend) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Keys returns a copy of the stored keys
func (m *MemoryBackend) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}
