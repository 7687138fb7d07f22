package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_composer/records"
)

// TrimHandlePath strips the "|prefix|" handle annotation the game prepends to some resolved paths.
func TrimHandlePath(path string) string {
	if strings.HasPrefix(path, "|") {
		if end := strings.Index(path[1:], "|"); end >= 0 {
			path = path[end+2:]
		}
	}
	return strings.TrimSpace(path)
}

// DirLoader reads game paths relative to an unpacked data directory.
// Rooted paths (modded files) are read as is.
type DirLoader struct {
	Root string
}

func (l DirLoader) LoadBytes(path string) ([]byte, error) {
	path = TrimHandlePath(path)
	full := path
	if !filepath.IsAbs(path) {
		rel := filepath.Clean(filepath.FromSlash(path))
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, errors.Errorf("Path %q escapes the data directory", path)
		}
		full = filepath.Join(l.Root, rel)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(records.ErrNotFound, "Failed to find %q", path)
		}
		return nil, errors.Wrapf(err, "Failed to read %q", full)
	}
	return data, nil
}

// MapLoader serves files from memory.
type MapLoader struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMapLoader(files map[string][]byte) *MapLoader {
	l := &MapLoader{files: make(map[string][]byte, len(files))}
	for path, data := range files {
		l.files[path] = data
	}
	return l
}

func (l *MapLoader) Add(path string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[path] = data
}

func (l *MapLoader) LoadBytes(path string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, ok := l.files[TrimHandlePath(path)]
	if !ok {
		return nil, errors.Wrapf(records.ErrNotFound, "Failed to find %q", path)
	}
	return data, nil
}
