package synth

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_composer/material"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils"
)

const (
	DETAIL_LAYERS           = 32
	DETAIL_DEFAULT_UV_SCALE = 4
)

type bgDetail struct {
	diffuse       *texture.Texture
	normal        *texture.Texture
	color         mgl32.Vec3
	normalScale   float32
	colorUvScale  float32
	normalUvScale float32
}

func loadBgDetail(in *Input) (*bgDetail, error) {
	d := in.Descriptor
	id, ok := d.Constant(records.ConstDetailID)
	if !ok {
		return nil, nil
	}
	layer := int(valueAt(id))
	if layer < 0 || layer >= DETAIL_LAYERS {
		return nil, errors.Errorf("Detail id %d out of range in %q", layer, d.MtrlPath)
	}
	diffuse, err := arrayLayer(in, DetailDiffuseArrayPath, layer)
	if err != nil {
		return nil, err
	}
	normal, err := arrayLayer(in, DetailNormalArrayPath, layer)
	if err != nil {
		return nil, err
	}
	return &bgDetail{
		diffuse:       diffuse,
		normal:        normal,
		color:         d.ConstantVec3OrDefault(records.ConstDetailColor, mgl32.Vec3{1, 1, 1}),
		normalScale:   d.ConstantFloatOrDefault(records.ConstDetailNormalScale, 1),
		colorUvScale:  d.ConstantFloatOrDefault(records.ConstDetailColorUvScale, DETAIL_DEFAULT_UV_SCALE),
		normalUvScale: d.ConstantFloatOrDefault(records.ConstDetailNormalUvScale, DETAIL_DEFAULT_UV_SCALE),
	}, nil
}

func valueAt(values []float32) float32 {
	if len(values) == 0 {
		return 0
	}
	return values[0]
}

func synthesizeBg(in *Input) (*Output, error) {
	d := in.Descriptor

	inputs, err := requireUsages(in, records.UsageColorMap0, records.UsageSpecularMap0, records.UsageNormalMap0)
	if err != nil {
		return nil, err
	}
	color0, specular0, normal0 := inputs[0], inputs[1], inputs[2]

	diffuseAlpha := d.ShaderKeyOrDefault(records.CategoryDiffuseAlpha, records.DiffuseAlphaDefault) ==
		records.DiffuseAlphaUseDiffuseAsOpacity
	var alphaThreshold float32
	if diffuseAlpha {
		if alphaThreshold, err = d.ConstantFloatOrError(records.ConstAlphaThreshold); err != nil {
			return nil, err
		}
	}

	detail, err := loadBgDetail(in)
	if err != nil {
		return nil, err
	}

	diffuseColor := d.ConstantVec3OrDefault(records.ConstDiffuseColor, mgl32.Vec3{1, 1, 1}).Vec4(1)
	colorChanged := false
	if d.Family() == material.FamilyBgColorChange {
		if stain, ok := d.StainColor(); ok && stain.Vec3() != (mgl32.Vec3{}) {
			diffuseColor = stain.Vec3().Vec4(1)
			colorChanged = true
		}
	}
	specularColor := d.ConstantVec3OrDefault(records.ConstSpecularColor, mgl32.Vec3{1, 1, 1}).Vec4(1)

	size := texture.MaxSize(color0.Size(), specular0.Size(), normal0.Size())
	color1, err := optionalUsage(in, records.UsageColorMap1, size, white)
	if err != nil {
		return nil, err
	}
	specular1, err := optionalUsage(in, records.UsageSpecularMap1, size, white)
	if err != nil {
		return nil, err
	}
	normal1, err := optionalUsage(in, records.UsageNormalMap1, size, white)
	if err != nil {
		return nil, err
	}
	color0 = color0.Resize(size.Width, size.Height)
	specular0 = specular0.Resize(size.Width, size.Height)
	normal0 = normal0.Resize(size.Width, size.Height)

	outDiffuse := texture.New(size.Width, size.Height)
	outSpecular := texture.New(size.Width, size.Height)
	outNormal := texture.New(size.Width, size.Height)

	fw, fh := float32(size.Width), float32(size.Height)
	texture.Iterate(size.Width, size.Height, func(x, y int) {
		c := utils.MulVec4(diffuseColor, utils.MulVec4(color0.At(x, y), color1.At(x, y)))
		s := utils.MulVec4(specularColor, utils.MulVec4(specular0.At(x, y), specular1.At(x, y)))
		n := utils.MulVec4(normal0.At(x, y), normal1.At(x, y))

		if detail != nil {
			u, v := (float32(x)+0.5)/fw, (float32(y)+0.5)/fh
			dc := detail.diffuse.Sample(u*detail.colorUvScale, v*detail.colorUvScale)
			dn := detail.normal.Sample(u*detail.normalUvScale, v*detail.normalUvScale)
			tint := utils.LerpVec3(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{
				dc[0] * detail.color[0], dc[1] * detail.color[1], dc[2] * detail.color[2],
			}, 0.5)
			c[0] *= tint[0]
			c[1] *= tint[1]
			c[2] *= tint[2]
			n[0] += (dn[0] - 0.5) * detail.normalScale
			n[1] += (dn[1] - 0.5) * detail.normalScale
		}

		outDiffuse.Set(x, y, c)
		outSpecular.Set(x, y, s)
		outNormal.Set(x, y, n)
	})

	out := newOutput(d)
	out.MetallicFactor = 0
	out.RoughnessFactor = 1
	if diffuseAlpha {
		out.alphaMask(alphaThreshold)
	}
	if colorChanged {
		out.Extras["DiffuseColor"] = []float32{diffuseColor[0], diffuseColor[1], diffuseColor[2]}
	}
	if d.ShaderKeyOrDefault(records.CategoryBgVertexPaint, records.BgVertexPaintOff) == records.BgVertexPaintOn {
		out.VertexPaint = true
		out.Extras["VertexPaint"] = true
	}

	if in.DebugLayers {
		base := d.ComputedTextureName("bg")
		for name, layer := range map[string]*texture.Texture{
			"colorMap0": color0, "colorMap1": color1,
			"specularMap0": specular0, "specularMap1": specular1,
			"normalMap0": normal0, "normalMap1": normal1,
		} {
			out.raw("", "Computed/"+base+"_"+name, layer)
		}
	}
	out.computed(d, ChannelBaseColor, outDiffuse)
	out.computed(d, ChannelMetallicRoughness, outSpecular)
	out.computed(d, ChannelNormal, outNormal)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
