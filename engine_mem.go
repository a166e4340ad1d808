package canonkv

import (
	"bytes"
	"slices"
	"sort"
	"sync"
)

// memEngine is a transient in-memory OrderedEngine, grounded on the
// teacher's storage_mem.go memBucket: a single slice kept sorted by key,
// located via sort.Search. Used by the package's tests; it keeps nothing
// on disk, so it is not durable storage.
type memEngine struct {
	mu    sync.RWMutex
	items []KV // sorted by Key
}

// newMemEngine returns an empty in-memory OrderedEngine.
func newMemEngine() OrderedEngine {
	return &memEngine{}
}

func (e *memEngine) find(key []byte) (idx int, ok bool) {
	items := e.items
	i := sort.Search(len(items), func(i int) bool {
		return bytes.Compare(items[i].Key, key) >= 0
	})
	if i < len(items) && bytes.Equal(items[i].Key, key) {
		return i, true
	}
	return i, false
}

func (e *memEngine) Put(key, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	key = slices.Clone(key)
	value = slices.Clone(value)
	i, ok := e.find(key)
	if ok {
		e.items[i].Value = value
		return nil
	}
	e.items = slices.Insert(e.items, i, KV{Key: key, Value: value})
	return nil
}

func (e *memEngine) Get(key []byte) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.find(key)
	if !ok {
		return nil, nil
	}
	return slices.Clone(e.items[i].Value), nil
}

func (e *memEngine) Delete(key []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.find(key)
	if !ok {
		return nil
	}
	e.items = slices.Delete(e.items, i, i+1)
	return nil
}

func (e *memEngine) Range(start, end []byte, limit int) ([]KV, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	items := e.items
	i := sort.Search(len(items), func(i int) bool {
		return bytes.Compare(items[i].Key, start) >= 0
	})
	var out []KV
	for ; i < len(items); i++ {
		if !rangeUpperBound(items[i].Key, end) {
			break
		}
		out = append(out, KV{Key: slices.Clone(items[i].Key), Value: slices.Clone(items[i].Value)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (e *memEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = nil
	return nil
}
