// Package cache keeps decoded resources in bounded path addressed tables and mirrors
// them to disk for exported scenes.
package cache

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/config"
	"github.com/mogaika/scene_composer/deform"
	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/synth"
	"github.com/mogaika/scene_composer/texture"
)

const SHADER_PACKAGE_DIR = "shader/sm5/shpk/"

type Options struct {
	Dir                 string
	MaxEntries          int
	TextureFormat       config.TextureFormat
	ExportArrayTextures bool
	// also mirror raw material files so they can be referenced from material extras
	MirrorMaterials bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:                 cfg.Cache.Dir,
		MaxEntries:          cfg.Cache.MaxEntries,
		TextureFormat:       cfg.Cache.TextureFormat,
		ExportArrayTextures: cfg.Cache.ExportArrayTextures,
		MirrorMaterials:     true,
	}
}

// CachedMaterial is a decoded material together with its mirrored raw file.
type CachedMaterial struct {
	Material  *records.Material
	CachePath string
}

type Cache struct {
	loader  records.Loader
	decoder records.Decoder
	mirror  *Mirror
	opts    Options

	clock          atomic.Uint64
	models         *Table[*records.Model]
	materials      *Table[*CachedMaterial]
	shaderPackages *Table[*records.ShaderPackage]
	deformers      *Table[*deform.Pbd]
	textures       *Table[*records.Texture]
	mirrored       *Table[string]
	arrays         *ArrayTextures
}

var _ synth.Resources = (*Cache)(nil)

func New(loader records.Loader, decoder records.Decoder, opts Options) *Cache {
	c := &Cache{
		loader:  loader,
		decoder: decoder,
		mirror:  &Mirror{Dir: opts.Dir, Format: opts.TextureFormat},
		opts:    opts,
	}
	c.models = NewTable[*records.Model]("model", opts.MaxEntries, &c.clock)
	c.materials = NewTable[*CachedMaterial]("material", opts.MaxEntries, &c.clock)
	c.shaderPackages = NewTable[*records.ShaderPackage]("shader_package", opts.MaxEntries, &c.clock)
	c.deformers = NewTable[*deform.Pbd]("deformer", opts.MaxEntries, &c.clock)
	c.textures = NewTable[*records.Texture]("texture", opts.MaxEntries, &c.clock)
	c.mirrored = NewTable[string]("mirrored_texture", opts.MaxEntries, &c.clock)

	var export func(string, *records.Texture) error
	if opts.ExportArrayTextures {
		export = c.exportArrayTexture
	}
	c.arrays = NewArrayTextures(
		[]string{synth.SphereArrayPath, synth.DetailDiffuseArrayPath, synth.DetailNormalArrayPath},
		c.loadTexture, export)
	return c
}

func (c *Cache) Mirror() *Mirror { return c.mirror }

func (c *Cache) load(path string) ([]byte, error) {
	data, err := c.loader.LoadBytes(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load %q", path)
	}
	return data, nil
}

func (c *Cache) Model(path string) (*records.Model, error) {
	return c.models.GetOrCreate(path, func() (*records.Model, error) {
		data, err := c.load(path)
		if err != nil {
			return nil, err
		}
		return c.decoder.DecodeModel(path, data)
	})
}

func (c *Cache) Material(path string) (*CachedMaterial, error) {
	return c.materials.GetOrCreate(path, func() (*CachedMaterial, error) {
		data, err := c.load(path)
		if err != nil {
			return nil, err
		}
		mtrl, err := c.decoder.DecodeMaterial(path, data)
		if err != nil {
			return nil, err
		}
		result := &CachedMaterial{Material: mtrl}
		if c.opts.MirrorMaterials {
			cachePath, err := c.mirror.CacheFile(path, data)
			if err != nil {
				logger.Named("cache").Warn("Failed to mirror material", zap.String("path", path), zap.Error(err))
			} else {
				result.CachePath = cachePath
			}
		}
		return result, nil
	})
}

// ShaderPackage resolves a package by its file name, e.g. "character.shpk".
func (c *Cache) ShaderPackage(name string) (*records.ShaderPackage, error) {
	path := SHADER_PACKAGE_DIR + name
	return c.shaderPackages.GetOrCreate(path, func() (*records.ShaderPackage, error) {
		data, err := c.load(path)
		if err != nil {
			return nil, err
		}
		shpk, err := c.decoder.DecodeShaderPackage(path, data)
		if err != nil {
			return nil, err
		}
		if shpk.Name == "" {
			shpk.Name = name
		}
		return shpk, nil
	})
}

// Deformer loads a pbd file, an empty path selects the player race table.
func (c *Cache) Deformer(path string) (*deform.Pbd, error) {
	if path == "" {
		path = deform.DEFAULT_PBD_PATH
	}
	return c.deformers.GetOrCreate(path, func() (*deform.Pbd, error) {
		data, err := c.load(path)
		if err != nil {
			return nil, err
		}
		pbd, err := deform.Parse(data)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse deformer %q", path)
		}
		return pbd, nil
	})
}

func (c *Cache) loadTexture(path string) (*records.Texture, error) {
	return c.textures.GetOrCreate(path, func() (*records.Texture, error) {
		data, err := c.load(path)
		if err != nil {
			return nil, err
		}
		return c.decoder.DecodeTexture(path, data)
	})
}

func sourcePath(path records.TexturePath) string {
	if path.FullPath != "" {
		return path.FullPath
	}
	return path.GamePath
}

// Texture loads from the resolved path, falling back to the game path.
func (c *Cache) Texture(path records.TexturePath) (*records.Texture, error) {
	return c.loadTexture(sourcePath(path))
}

func (c *Cache) ArrayTexture(path string) (*records.Texture, error) {
	return c.arrays.Get(path)
}

func (c *Cache) CacheTexture(tex *texture.Texture, name string) (*texture.Cached, error) {
	return c.mirror.CacheTexture(tex, name)
}

// MirrorTexture writes the first layer of a source texture as png and returns its path
// relative to the mirror root.
func (c *Cache) MirrorTexture(path records.TexturePath) (string, error) {
	src := sourcePath(path)
	return c.mirrored.GetOrCreate(src, func() (string, error) {
		rec, err := c.loadTexture(src)
		if err != nil {
			return "", err
		}
		if len(rec.Layers) == 0 {
			return "", errors.Errorf("Texture %q has no layers", src)
		}
		cachePath, err := c.mirror.CacheImage(rec.Layers[0], src)
		if err != nil {
			return "", err
		}
		return c.mirror.Relative(cachePath), nil
	})
}

func (c *Cache) exportArrayTexture(path string, rec *records.Texture) error {
	for i, layer := range rec.Layers {
		if _, err := c.mirror.CacheImage(layer, ArrayLayerName(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Stats() []TableStats {
	return []TableStats{
		c.models.Stats(),
		c.materials.Stats(),
		c.shaderPackages.Stats(),
		c.deformers.Stats(),
		c.textures.Stats(),
		c.mirrored.Stats(),
	}
}
