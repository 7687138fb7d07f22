package composer

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mogaika/scene_composer/material"
	"github.com/mogaika/scene_composer/mesh"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/scene"
	"github.com/mogaika/scene_composer/synth"
)

// materialContext carries the per instance inputs of a material.
type materialContext struct {
	stain     *mgl32.Vec3
	character *records.CharacterInfo
}

func resourcePath(p records.ResourcePath) string {
	if p.FullPath != "" {
		return p.FullPath
	}
	return p.GamePath
}

// composeMaterials resolves the materials of one model concurrently. Any failure
// fails the whole model.
func (c *Composer) composeMaterials(ctx context.Context, s *scene.Scene, infos []records.MaterialInfo, mc materialContext) ([]mesh.MaterialRef, error) {
	refs := make([]mesh.MaterialRef, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.ParallelMaterials)
	for i := range infos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ref, err := c.composeMaterial(s, &infos[i], mc)
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *Composer) composeMaterial(s *scene.Scene, info *records.MaterialInfo, mc materialContext) (mesh.MaterialRef, error) {
	path := resourcePath(info.Path)
	cached, err := c.cache.Material(path)
	if err != nil {
		return mesh.MaterialRef{}, errors.Wrapf(err, "Failed to load material %q", path)
	}
	mtrl := cached.Material

	shpk, err := c.cache.ShaderPackage(mtrl.ShaderPackageName)
	if err != nil {
		return mesh.MaterialRef{}, errors.Wrapf(err, "Failed to load shader package %q", mtrl.ShaderPackageName)
	}

	var opts []material.Option
	if info.ColorTable != nil {
		opts = append(opts, material.WithColorTable(info.ColorTable))
	}
	if len(info.Textures) != 0 {
		opts = append(opts, material.WithTexturePathOverride(info.Textures))
	}
	if mc.stain != nil {
		opts = append(opts, material.WithStainColor(mc.stain.Vec4(1)))
	}
	if mc.character != nil {
		opts = append(opts, material.WithCustomize(mc.character.CustomizeParameter, mc.character.CustomizeData))
	}

	gamePath := info.Path.GamePath
	if gamePath == "" {
		gamePath = path
	}
	d, err := material.NewDescriptor(gamePath, mtrl, shpk, opts...)
	if err != nil {
		return mesh.MaterialRef{}, err
	}

	out, err := synth.Synthesize(&synth.Input{
		Descriptor:  d,
		Resources:   c.cache,
		Blender:     c.opts.Blender,
		DebugLayers: c.opts.DebugLayers,
		TextureMode: c.opts.TextureMode,
	})
	if err != nil {
		return mesh.MaterialRef{}, err
	}

	if cached.CachePath != "" {
		out.Extras["MtrlCachePath"] = c.cache.Mirror().Relative(cached.CachePath)
	}
	for _, usage := range d.TextureUsages() {
		texPath, _ := d.TexturePath(usage)
		rel, err := c.cache.MirrorTexture(texPath)
		if err != nil {
			c.log.Warn("Failed to mirror texture",
				zap.String("material", gamePath), zap.String("texture", texPath.FullPath), zap.Error(err))
			continue
		}
		out.Extras[usage.String()+"_PngCachePath"] = rel
	}

	idx := s.AddMaterial(&scene.Material{Name: out.Name, Output: out})
	c.log.Debug("Composed material",
		zap.String("material", gamePath), zap.String("name", out.Name), zap.Int("index", idx))

	refName := info.PathFromModel
	if refName == "" {
		refName = gamePath
	}
	return mesh.MaterialRef{Index: idx, Name: fileBase(refName)}, nil
}
