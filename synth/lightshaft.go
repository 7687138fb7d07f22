package synth

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils"
)

func synthesizeLightshaft(in *Input) (*Output, error) {
	d := in.Descriptor

	inputs, err := requireUsages(in, records.UsageSampler0, records.UsageSampler1)
	if err != nil {
		return nil, err
	}
	size := texture.MaxSize(inputs[0].Size(), inputs[1].Size())
	t0 := inputs[0].Resize(size.Width, size.Height)
	t1 := inputs[1].Resize(size.Width, size.Height)

	color := d.ConstantVec3OrDefault(records.ConstColor, mgl32.Vec3{1, 1, 1}).Vec4(1)

	outEmissive := texture.New(size.Width, size.Height)
	texture.Iterate(size.Width, size.Height, func(x, y int) {
		outEmissive.Set(x, y, utils.MulVec4(color, utils.MulVec4(t0.At(x, y), t1.At(x, y))))
	})

	out := newOutput(d)
	out.BaseColorFactor = mgl32.Vec4{1, 1, 1, 0}
	out.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	out.alphaMask(d.ConstantFloatOrDefault(records.ConstAlphaThreshold, 0.5))
	out.computed(d, ChannelEmissive, outEmissive)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
