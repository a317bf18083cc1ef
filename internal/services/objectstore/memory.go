package objectstore

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store used by tests and local dry runs. Optional
// hooks allow tests to inject failures and observe per-key timing.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutHook, when set, runs before each stored put with the key. Returning
	// an error fails the put without storing anything.
	PutHook func(ctx context.Context, key string) error
	// ListErr, when set, fails every List call.
	ListErr error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, key string, body io.Reader, contentType, cacheControl string) error {
	if hook := m.PutHook; hook != nil {
		if err := hook(ctx, key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Object, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []Object
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, Object{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *Memory) Head(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Get returns a stored object's bytes for test assertions.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// Seed stores an object directly, bypassing hooks.
func (m *Memory) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// Keys returns every stored key in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ Store = (*Memory)(nil)
