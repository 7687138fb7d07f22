package cache

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mogaika/scene_composer/logger"
)

const DEFAULT_MAX_ENTRIES = 100

type entry[T any] struct {
	value      T
	lastAccess uint64
}

type TableStats struct {
	Kind      string `json:"kind"`
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Table is a path addressed store bounded to maxEntries live values.
// Each access takes a tick from clock, the entry with the oldest tick is evicted first.
type Table[T any] struct {
	kind       string
	maxEntries int
	clock      *atomic.Uint64

	flight singleflight.Group

	mu        sync.Mutex
	entries   map[string]*entry[T]
	hits      uint64
	misses    uint64
	evictions uint64
}

func NewTable[T any](kind string, maxEntries int, clock *atomic.Uint64) *Table[T] {
	if maxEntries <= 0 {
		maxEntries = DEFAULT_MAX_ENTRIES
	}
	if clock == nil {
		clock = new(atomic.Uint64)
	}
	return &Table[T]{
		kind:       kind,
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry[T]),
	}
}

// GetOrCreate returns the cached value for path or stores the result of create.
// Concurrent callers for the same path share one create call; other paths are
// not blocked while it runs. Failed creations are not cached.
func (t *Table[T]) GetOrCreate(path string, create func() (T, error)) (T, error) {
	if value, ok := t.lookup(path); ok {
		return value, nil
	}

	v, err, _ := t.flight.Do(path, func() (interface{}, error) {
		// an earlier flight may have stored it after our lookup
		if value, ok := t.lookup(path); ok {
			return value, nil
		}
		t.mu.Lock()
		t.misses++
		t.mu.Unlock()

		value, err := create()
		if err != nil {
			return nil, err
		}
		t.store(path, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := v.(T)
	return value, nil
}

func (t *Table[T]) lookup(path string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[path]; ok {
		e.lastAccess = t.clock.Add(1)
		t.hits++
		return e.value, true
	}
	var zero T
	return zero, false
}

func (t *Table[T]) store(path string, value T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[path] = &entry[T]{value: value, lastAccess: t.clock.Add(1)}
	if len(t.entries) > t.maxEntries {
		t.evictOldest()
	}
}

func (t *Table[T]) evictOldest() {
	var oldestPath string
	var oldest uint64
	first := true
	for path, e := range t.entries {
		if first || e.lastAccess < oldest {
			oldestPath, oldest = path, e.lastAccess
			first = false
		}
	}
	delete(t.entries, oldestPath)
	t.evictions++
	logger.Named("cache").Debug("Evicted entry", zap.String("kind", t.kind), zap.String("path", oldestPath))
}

func (t *Table[T]) Contains(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[path]
	return ok
}

func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table[T]) Stats() TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TableStats{
		Kind:      t.kind,
		Entries:   len(t.entries),
		Hits:      t.hits,
		Misses:    t.misses,
		Evictions: t.evictions,
	}
}
