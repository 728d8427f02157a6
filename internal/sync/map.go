// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"maps"
	"slices"
	"sync"
)

// Map is a map guarded by a single read/write mutex. It suits small registries
// with infrequent writes.
type Map[K comparable, V any] struct {
	m     map[K]V
	mutex *sync.RWMutex
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m:     make(map[K]V),
		mutex: &sync.RWMutex{},
	}
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	value, ok := m.m[key]
	return value, ok
}

func (m *Map[K, V]) Set(key K, value V) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.m[key] = value
}

// LoadAndDelete removes the key from the map, returning the previous value if
// any. Only one of concurrent callers for the same key will get loaded=true.
func (m *Map[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	value, loaded = m.m[key]
	if loaded {
		delete(m.m, key)
	}
	return value, loaded
}

func (m *Map[K, V]) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.m)
}

// Keys returns an unordered snapshot of the keys in the map.
func (m *Map[K, V]) Keys() []K {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return slices.Collect(maps.Keys(m.m))
}

func (m *Map[K, V]) GetMap() map[K]V {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	result := make(map[K]V, len(m.m))
	maps.Copy(result, m.m)
	return result
}
