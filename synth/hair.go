package synth

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils"
)

func synthesizeHair(in *Input) (*Output, error) {
	d := in.Descriptor
	param, _ := d.Customize()

	hairType, err := d.ShaderKeyOrError(records.CategoryHairType)
	if err != nil {
		return nil, err
	}
	inputs, err := requireUsages(in, records.UsageNormal, records.UsageMask)
	if err != nil {
		return nil, err
	}
	normal, mask := inputs[0], inputs[1]

	alphaThreshold, err := d.ConstantFloatOrError(records.ConstAlphaThreshold)
	if err != nil {
		return nil, err
	}
	ior, err := d.ConstantFloatOrError(records.ConstGlassIOR)
	if err != nil {
		return nil, err
	}

	var bonusColor mgl32.Vec3
	switch hairType {
	case records.HairTypeFace:
		bonusColor = param.OptionColor
	case records.HairTypeHair:
		bonusColor = param.MeshColor
	default:
		bonusColor = param.MainColor
	}

	size := normal.Size()
	mask = mask.Resize(size.Width, size.Height)

	outDiffuse := texture.New(size.Width, size.Height)
	outNormal := texture.New(size.Width, size.Height)
	outOcclusion := texture.New(size.Width, size.Height)
	outMetallicRoughness := texture.New(size.Width, size.Height)
	outThickness := texture.New(size.Width, size.Height)

	texture.Iterate(size.Width, size.Height, func(x, y int) {
		n := normal.At(x, y)
		m := mask.At(x, y)

		color := utils.LerpVec3(param.MainColor, bonusColor, n[2])
		occlusion := m[3] * m[3]

		outDiffuse.Set(x, y, color.Vec4(n[3]))
		outNormal.Set(x, y, flatten(n))
		outOcclusion.Set(x, y, mgl32.Vec4{occlusion, occlusion, occlusion, 1})
		outMetallicRoughness.Set(x, y, mgl32.Vec4{1, m[1], 0, 1})
		outThickness.Set(x, y, mgl32.Vec4{m[2], m[2], m[2], 1})
	})

	out := newOutput(d)
	out.IOR = ior
	out.VolumeThickness = 1
	out.alphaMask(alphaThreshold)
	out.computed(d, ChannelBaseColor, outDiffuse)
	out.computed(d, ChannelNormal, outNormal)
	out.computed(d, ChannelOcclusion, outOcclusion)
	out.computed(d, ChannelMetallicRoughness, outMetallicRoughness)
	out.computed(d, ChannelVolumeThickness, outThickness)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
