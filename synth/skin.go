package synth

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils"
)

const HROTHGAR_HAIR_SCALE = 0.4

func synthesizeSkin(in *Input) (*Output, error) {
	d := in.Descriptor
	param, data := d.Customize()

	inputs, err := requireUsages(in, records.UsageNormal, records.UsageMask, records.UsageDiffuse)
	if err != nil {
		return nil, err
	}
	normal, mask, diffuse := inputs[0], inputs[1], inputs[2]

	skinType := d.ShaderKeyOrDefault(records.CategorySkinType, records.SkinTypeFace)
	diffuseColor := d.ConstantVec3OrDefault(records.ConstDiffuseColor, mgl32.Vec3{1, 1, 1})
	alphaThreshold := d.ConstantFloatOrDefault(records.ConstAlphaThreshold, 0)
	lipRoughnessScale := d.ConstantFloatOrDefault(records.ConstLipRoughnessScale, 0.7)
	alphaMultiplier := float32(1)
	if alphaThreshold != 0 {
		alphaMultiplier = 1 / alphaThreshold
	}
	transparent := d.IsTransparent()

	size := normal.Size()
	mask = mask.Resize(size.Width, size.Height)
	diffuse = diffuse.Resize(size.Width, size.Height)

	outDiffuse := texture.New(size.Width, size.Height)
	outNormal := texture.New(size.Width, size.Height)
	outMetallicRoughness := texture.New(size.Width, size.Height)
	outSss := texture.New(size.Width, size.Height)

	texture.Iterate(size.Width, size.Height, func(x, y int) {
		n := normal.At(x, y)
		m := mask.At(x, y)
		c := diffuse.At(x, y)

		alpha := c[3]
		roughness := m[1]

		sColor := utils.LerpVec3(diffuseColor, param.SkinColor, n[2])
		c = utils.MulVec4(c, sColor.Vec4(1))

		if skinType == records.SkinTypeHrothgar {
			hair := param.MainColor
			if data.Highlights {
				hair = utils.LerpVec3(hair, param.MeshColor, m[3])
			}
			hair = hair.Mul(HROTHGAR_HAIR_SCALE)
			delta := utils.Clamp01(n[3] - n[2])
			c = utils.LerpVec4(c, hair.Vec4(1), delta)
			alpha = 1
		}

		if transparent {
			alpha *= alphaMultiplier
		} else if alpha*alphaMultiplier < 1 {
			alpha = 0
		} else {
			alpha = 1
		}

		if skinType == records.SkinTypeFace {
			if data.LipStick {
				c = utils.LerpVec4(c, param.LipColor, n[3]*param.LipColor[3])
			}
			roughness *= lipRoughnessScale
		}
		c[3] = alpha

		outDiffuse.Set(x, y, c)
		outNormal.Set(x, y, flatten(n))
		outMetallicRoughness.Set(x, y, mgl32.Vec4{1, roughness, 0, 1})
		outSss.Set(x, y, mgl32.Vec4{m[2], m[2], m[2], 1})
	})

	out := newOutput(d)
	out.IOR = d.ConstantFloatOrDefault(records.ConstGlassIOR, 1)
	out.VolumeThickness = 1
	out.alphaMask(alphaThreshold)
	out.computed(d, ChannelBaseColor, outDiffuse)
	out.computed(d, ChannelNormal, outNormal)
	out.computed(d, ChannelMetallicRoughness, outMetallicRoughness)
	out.computed(d, ChannelVolumeThickness, outSss)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
