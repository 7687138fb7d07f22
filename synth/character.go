package synth

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils"
)

func synthesizeCharacter(in *Input) (*Output, error) {
	d := in.Descriptor
	table := d.ColorTable()
	if table == nil {
		return nil, errors.Errorf("Character material %q has no color table", d.MtrlPath)
	}
	if in.Blender == nil {
		return nil, errors.Errorf("Row blender is required for %q", d.MtrlPath)
	}

	textureMode := d.ShaderKeyOrDefault(records.CategoryTextureType, records.TextureModeDefault)
	if textureMode != records.TextureModeDefault && textureMode != records.TextureModeCompatibility {
		return nil, errors.Errorf("Unsupported texture mode %s",
			records.KeyValueName(records.CategoryTextureType, textureMode))
	}

	inputs, err := requireUsages(in, records.UsageNormal, records.UsageMask, records.UsageIndex)
	if err != nil {
		return nil, err
	}
	normal, mask, index := inputs[0], inputs[1], inputs[2]

	var diffuse *texture.Texture
	if textureMode == records.TextureModeCompatibility {
		if diffuse, err = requireUsage(in, records.UsageDiffuse); err != nil {
			return nil, err
		}
	}

	if d.ShaderKeyOrDefault(records.CategoryFlowMapType, records.FlowTypeStandard) == records.FlowTypeFlow {
		if _, err := requireUsage(in, records.UsageFlow); err != nil {
			return nil, err
		}
	}

	ior, err := d.ConstantFloatOrError(records.ConstGlassIOR)
	if err != nil {
		return nil, err
	}

	size := normal.Size()
	mask = mask.Resize(size.Width, size.Height)
	index = index.Resize(size.Width, size.Height)
	if diffuse != nil {
		diffuse = diffuse.Resize(size.Width, size.Height)
	}

	outDiffuse := texture.New(size.Width, size.Height)
	outNormal := texture.New(size.Width, size.Height)
	outEmissive := texture.New(size.Width, size.Height)
	outMetallicRoughness := texture.New(size.Width, size.Height)

	texture.Iterate(size.Width, size.Height, func(x, y int) {
		n := normal.At(x, y)
		m := mask.At(x, y)
		idx := index.At(x, y)

		row := in.Blender.BlendRowPair(table, toByte(idx[0]), toByte(idx[1]))

		c := row.Diffuse.Vec4(n[2])
		if diffuse != nil {
			c = utils.MulVec4(diffuse.At(x, y), c)
			c[3] = n[2]
		}
		outDiffuse.Set(x, y, c)
		outNormal.Set(x, y, flatten(n))
		outEmissive.Set(x, y, row.Emissive.Vec4(1))
		outMetallicRoughness.Set(x, y, mgl32.Vec4{m[1], m[2], 0, 1})
	})

	out := newOutput(d)
	out.IOR = ior
	out.MetallicFactor = 1
	out.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	if threshold := d.ConstantFloatOrDefault(records.ConstAlphaThreshold, 0); threshold > 0 {
		out.alphaMask(threshold)
	}
	out.computed(d, ChannelBaseColor, outDiffuse)
	out.computed(d, ChannelNormal, outNormal)
	out.computed(d, ChannelEmissive, outEmissive)
	out.computed(d, ChannelMetallicRoughness, outMetallicRoughness)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
