package synth

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
)

const (
	TATTOO_ALPHA_CUTOFF = 0.5
)

// Tattoo and face paint decals. Cutoff and IOR fall back to defaults when the
// material leaves them out.
func synthesizeTattoo(in *Input) (*Output, error) {
	d := in.Descriptor
	param, _ := d.Customize()

	normal, err := requireUsage(in, records.UsageNormal)
	if err != nil {
		return nil, err
	}

	color := param.OptionColor
	if hairType, ok := d.ShaderKey(records.CategoryHairType); ok && hairType == records.HairTypeHair {
		color = param.MeshColor
	}

	size := normal.Size()
	outDiffuse := texture.New(size.Width, size.Height)
	outNormal := texture.New(size.Width, size.Height)

	texture.Iterate(size.Width, size.Height, func(x, y int) {
		n := normal.At(x, y)
		if n[2] > 0 {
			outDiffuse.Set(x, y, color.Vec4(n[3]))
		} else {
			outDiffuse.Set(x, y, mgl32.Vec4{0, 0, 0, n[3]})
		}
		outNormal.Set(x, y, flatten(n))
	})

	out := newOutput(d)
	out.IOR = d.ConstantFloatOrDefault(records.ConstGlassIOR, 1)
	out.alphaBlend(d.ConstantFloatOrDefault(records.ConstAlphaThreshold, TATTOO_ALPHA_CUTOFF))
	out.computed(d, ChannelBaseColor, outDiffuse)
	out.computed(d, ChannelNormal, outNormal)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
