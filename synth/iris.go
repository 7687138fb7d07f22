package synth

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils"
)

const IRIS_SPECULAR_FACTOR = 0.2

func synthesizeIris(in *Input) (*Output, error) {
	d := in.Descriptor
	param, _ := d.Customize()

	inputs, err := requireUsages(in, records.UsageNormal, records.UsageMask, records.UsageDiffuse)
	if err != nil {
		return nil, err
	}
	normal, mask, diffuse := inputs[0], inputs[1], inputs[2]

	whiteEyeColor, err := d.ConstantVec3OrError(records.ConstWhiteEyeColor)
	if err != nil {
		return nil, err
	}
	sphereIndex, err := d.ConstantFloatOrError(records.ConstSphereMapIndex)
	if err != nil {
		return nil, err
	}
	ior, err := d.ConstantFloatOrError(records.ConstGlassIOR)
	if err != nil {
		return nil, err
	}

	size := normal.Size()
	mask = mask.Resize(size.Width, size.Height)
	diffuse = diffuse.Resize(size.Width, size.Height)

	cube, err := arrayLayer(in, SphereArrayPath, int(sphereIndex))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get sphere map %v", sphereIndex)
	}
	cube = cube.Resize(size.Width, size.Height)

	outDiffuse := texture.New(size.Width, size.Height)
	outNormal := texture.New(size.Width, size.Height)
	outEmissive := texture.New(size.Width, size.Height)
	outSpecular := texture.New(size.Width, size.Height)

	irisColor := param.LeftColor.Vec3().Vec4(1)
	whites := whiteEyeColor.Vec4(1)

	texture.Iterate(size.Width, size.Height, func(x, y int) {
		n := normal.At(x, y)
		m := mask.At(x, y)
		c := diffuse.At(x, y)
		s := cube.At(x, y)

		c = utils.LerpVec4(utils.MulVec4(c, whites), utils.MulVec4(c, irisColor), m[2])
		specular := s[0] * m[1]

		outDiffuse.Set(x, y, c)
		outNormal.Set(x, y, flatten(n))
		outEmissive.Set(x, y, mgl32.Vec4{m[0], m[0], m[0], 1})
		outSpecular.Set(x, y, mgl32.Vec4{specular, specular, specular, 1})
	})

	out := newOutput(d)
	out.IOR = ior
	out.SpecularFactor = IRIS_SPECULAR_FACTOR
	out.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	if threshold := d.ConstantFloatOrDefault(records.ConstAlphaThreshold, 0); threshold > 0 {
		out.alphaMask(threshold)
	}
	out.Extras["leftIrisColor"] = []float32{param.LeftColor[0], param.LeftColor[1], param.LeftColor[2], param.LeftColor[3]}
	out.Extras["rightIrisColor"] = []float32{param.RightColor[0], param.RightColor[1], param.RightColor[2], param.RightColor[3]}

	out.computed(d, ChannelBaseColor, outDiffuse)
	out.computed(d, ChannelNormal, outNormal)
	out.computed(d, ChannelEmissive, outEmissive)
	out.computed(d, ChannelSpecularFactor, outSpecular)
	out.raw(ChannelSpecularColor, "Computed/"+d.ComputedTextureName(string(ChannelSpecularFactor)), outSpecular)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
