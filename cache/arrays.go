package cache

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/records"
)

const ARRAY_TEXTURES_DIR = "array_textures"

// ArrayTextures loads the shared array textures once per process.
type ArrayTextures struct {
	load   func(path string) (*records.Texture, error)
	export func(path string, rec *records.Texture) error
	paths  []string

	mu       sync.Mutex
	done     bool
	err      error
	textures map[string]*records.Texture
}

func NewArrayTextures(paths []string, load func(string) (*records.Texture, error), export func(string, *records.Texture) error) *ArrayTextures {
	return &ArrayTextures{
		load:   load,
		export: export,
		paths:  paths,
	}
}

func (a *ArrayTextures) ensureLoaded() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return a.err
	}
	a.done = true

	log := logger.Named("cache")
	a.textures = make(map[string]*records.Texture, len(a.paths))
	for _, p := range a.paths {
		rec, err := a.load(p)
		if err != nil {
			// missing arrays only fail the materials that sample them
			log.Warn("Failed to load array texture", zap.String("path", p), zap.Error(err))
			continue
		}
		a.textures[p] = rec
		if a.export != nil {
			if err := a.export(p, rec); err != nil {
				a.err = errors.Wrapf(err, "Failed to export array texture %q", p)
				return a.err
			}
		}
	}
	log.Debug("Array textures loaded", zap.Int("count", len(a.textures)))
	return nil
}

// Get returns a preloaded array texture. Paths outside of the preload list are not served.
func (a *ArrayTextures) Get(p string) (*records.Texture, error) {
	if err := a.ensureLoaded(); err != nil {
		return nil, err
	}
	if rec, ok := a.textures[p]; ok {
		return rec, nil
	}
	return nil, errors.Wrapf(records.ErrNotFound, "Array texture %q is not loaded", p)
}

// ArrayLayerName is the mirror name of one exported layer: "array_textures/{dir}/{name}.{i}".
func ArrayLayerName(texPath string, layer int) string {
	dir := path.Base(path.Dir(texPath))
	name := strings.TrimSuffix(path.Base(texPath), path.Ext(texPath))
	return fmt.Sprintf("%s/%s/%s.%d", ARRAY_TEXTURES_DIR, dir, name, layer)
}
