package synth

import (
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/material"
	"github.com/mogaika/scene_composer/records"
)

type TextureMode int

const (
	// TextureBake runs the family synthesizer.
	TextureBake TextureMode = iota
	// TextureRaw caches the source textures of baked families as they are.
	TextureRaw
)

var bakedFamilies = map[material.Family]bool{
	material.FamilyCharacter: true,
	material.FamilyTattoo:    true,
	material.FamilySkin:      true,
	material.FamilyHair:      true,
	material.FamilyIris:      true,
}

func rawTextureName(d *material.Descriptor, gamePath string) string {
	base := path.Base(strings.ReplaceAll(gamePath, "\\", "/"))
	return d.HashStr() + "/" + d.ComputedTextureName(strings.TrimSuffix(base, path.Ext(base)))
}

// synthesizeRaw caches every bound texture under {hash}/{computed name} and binds
// the usages that map to a channel. Missing textures are skipped.
func synthesizeRaw(in *Input) (*Output, error) {
	log := logger.Named("synth")
	d := in.Descriptor
	out := newOutput(d)
	out.VertexPaint = true
	out.IOR = d.ConstantFloatOrDefault(records.ConstGlassIOR, 1)

	threshold := d.ConstantFloatOrDefault(records.ConstAlphaThreshold, 0)
	switch d.Family() {
	case material.FamilyTattoo:
		out.alphaBlend(d.ConstantFloatOrDefault(records.ConstAlphaThreshold, TATTOO_ALPHA_CUTOFF))
	case material.FamilySkin, material.FamilyHair:
		out.alphaMask(threshold)
	default:
		if threshold > 0 {
			out.alphaMask(threshold)
		}
	}

	for _, usage := range d.TextureUsages() {
		texPath, _ := d.TexturePath(usage)
		tex, ok, err := loadUsage(in, usage)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug("Skipping texture", zap.Stringer("usage", usage), zap.String("path", texPath.FullPath))
			continue
		}
		// unmapped usages are cached without a channel
		out.raw(genericChannels[usage], rawTextureName(d, texPath.GamePath), tex)
	}
	if out.hasPending(ChannelEmissive) {
		out.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	}
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
