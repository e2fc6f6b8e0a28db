package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memoryObject struct {
	body        []byte
	contentType string
}

// MemoryStore keeps objects in process memory. Used by tests and local runs.
type MemoryStore struct {
	mutex   sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.objects[key] = memoryObject{body: append([]byte(nil), body...), contentType: contentType}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return append([]byte(nil), obj.body...), nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, ok := m.objects[key]
	return ok, nil
}

// ContentType returns the content type an object was written with.
func (m *MemoryStore) ContentType(key string) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.objects[key].contentType
}

// Keys lists stored keys with the given prefix, sorted.
func (m *MemoryStore) Keys(prefix string) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
