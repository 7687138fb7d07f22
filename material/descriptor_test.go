package material

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_composer/records"
)

const samplerNormalID = 0x100

func testShaderPackage() *records.ShaderPackage {
	return &records.ShaderPackage{
		Name: "character.shpk",
		DefaultKeyValues: map[records.ShaderCategory]uint32{
			records.CategoryTextureType: records.TextureModeDefault,
			records.CategoryFlowMapType: records.FlowTypeStandard,
		},
		MaterialConstants: map[records.ConstantID][]float32{
			records.ConstAlphaThreshold: {0.5},
			records.ConstGlassIOR:       {1.0},
		},
		TextureLookup: map[uint32]records.TextureUsage{
			samplerNormalID: records.UsageNormal,
			0x101:           records.UsageMask,
		},
	}
}

func bits(values ...float32) []uint32 {
	out := make([]uint32, len(values))
	for i, v := range values {
		out[i] = math.Float32bits(v)
	}
	return out
}

func testMaterial() *records.Material {
	return &records.Material{
		ShaderPackageName: "character.shpk",
		ShaderFlags:       records.SHADER_FLAG_ENABLE_TRANSLUCENCY,
		ShaderKeys: []records.ShaderKey{
			{Category: records.CategoryFlowMapType, Value: records.FlowTypeFlow},
		},
		Constants: []records.MaterialConstant{
			{ID: records.ConstDiffuseColor, ValueOffset: 0, ValueSize: 12},
			{ID: records.ConstAlphaThreshold, ValueOffset: 12, ValueSize: 4},
		},
		ShaderValues: bits(0.1, 0.2, 0.3, 0.25),
		Samplers: []records.MaterialSampler{
			{SamplerID: samplerNormalID, TextureIndex: 0},
			{SamplerID: 0x101, TextureIndex: records.SAMPLER_NO_TEXTURE},
			{SamplerID: 0x999, TextureIndex: 1},
		},
		TextureOffsets: []uint16{0, 20},
		TexturePaths: map[uint16]string{
			0:  "chara/equipment/e0001/texture/v01_c0101e0001_top_n.tex",
			20: "chara/equipment/e0001/texture/v01_c0101e0001_top_m.tex",
		},
	}
}

func TestNewDescriptorMerges(t *testing.T) {
	d, err := NewDescriptor("chara/equipment/e0001/material/v0001/mt_c0101e0001_top_a.mtrl",
		testMaterial(), testShaderPackage())
	require.NoError(t, err)

	// material keys override package defaults
	flow, ok := d.ShaderKey(records.CategoryFlowMapType)
	assert.True(t, ok)
	assert.Equal(t, records.FlowTypeFlow, flow)
	assert.Equal(t, records.TextureModeDefault, d.ShaderKeyOrDefault(records.CategoryTextureType, 0))

	// material constants override package constants
	assert.Equal(t, float32(0.25), d.ConstantFloatOrDefault(records.ConstAlphaThreshold, 0))
	assert.Equal(t, float32(1.0), d.ConstantFloatOrDefault(records.ConstGlassIOR, 0))
	assert.Equal(t, mgl32.Vec3{0.1, 0.2, 0.3}, d.ConstantVec3OrDefault(records.ConstDiffuseColor, mgl32.Vec3{}))
	_, err = d.ConstantFloatOrError(records.ConstTileIndex)
	assert.Error(t, err)

	normal, ok := d.TexturePath(records.UsageNormal)
	require.True(t, ok)
	assert.Equal(t, "chara/equipment/e0001/texture/v01_c0101e0001_top_n.tex", normal.GamePath)
	assert.Equal(t, normal.GamePath, normal.FullPath)
	// 0xFF texture index and unknown sampler ids are skipped
	assert.Equal(t, []records.TextureUsage{records.UsageNormal}, d.TextureUsages())

	assert.True(t, d.RenderBackfaces())
	assert.True(t, d.IsTransparent())
	assert.Equal(t, FamilyCharacter, d.Family())
}

func TestNewDescriptorTruncatesOutOfBoundsConstants(t *testing.T) {
	mtrl := testMaterial()
	mtrl.Constants = append(mtrl.Constants, records.MaterialConstant{ID: records.ConstEmissiveColor, ValueOffset: 8, ValueSize: 12})
	d, err := NewDescriptor("a.mtrl", mtrl, testShaderPackage())
	require.NoError(t, err)
	v, ok := d.Constant(records.ConstEmissiveColor)
	require.True(t, ok)
	assert.Equal(t, []float32{0.3, 0.25}, v)
}

func TestNewDescriptorErrors(t *testing.T) {
	for name, mutate := range map[string]func(m *records.Material){
		"texture index": func(m *records.Material) { m.Samplers[0].TextureIndex = 5 },
		"texture offset": func(m *records.Material) {
			m.TextureOffsets[0] = 999
		},
	} {
		mtrl := testMaterial()
		mutate(mtrl)
		d, err := NewDescriptor("bad.mtrl", mtrl, testShaderPackage())
		assert.Error(t, err, name)
		assert.Nil(t, d, name)
		assert.Contains(t, err.Error(), "bad.mtrl", name)
	}
}

func TestTexturePathOverride(t *testing.T) {
	d, err := NewDescriptor("a.mtrl", testMaterial(), testShaderPackage(),
		WithTexturePathOverride([]records.TexturePath{{GamePath: "chara/override_n.tex", FullPath: "C:/mods/override_n.tex"}}))
	require.NoError(t, err)
	p, _ := d.TexturePath(records.UsageNormal)
	assert.Equal(t, records.TexturePath{GamePath: "chara/override_n.tex", FullPath: "C:/mods/override_n.tex"}, p)
}

func TestUidIsDeterministic(t *testing.T) {
	build := func(opts ...Option) *Descriptor {
		d, err := NewDescriptor("chara/mt_c0101e0001_top_a.mtrl", testMaterial(), testShaderPackage(), opts...)
		require.NoError(t, err)
		return d
	}
	a, b := build(), build()
	assert.Equal(t, a.Uid(), b.Uid())
	assert.Len(t, a.HashStr(), 8)

	stained := build(WithStainColor(mgl32.Vec4{1, 0, 0, 1}))
	assert.NotEqual(t, a.Uid(), stained.Uid())

	customized := build(WithCustomize(records.CustomizeParameter{MainColor: mgl32.Vec3{1, 1, 1}}, records.CustomizeData{LipStick: true}))
	assert.NotEqual(t, a.Uid(), customized.Uid())

	assert.Equal(t, "mt_c0101e0001_top_a_character_normal_"+a.HashStr(), a.ComputedTextureName("normal"))
	assert.Equal(t, "mt_c0101e0001_top_a_character_"+a.HashStr(), a.MaterialName())
}

func TestExtras(t *testing.T) {
	d, err := NewDescriptor("a.mtrl", testMaterial(), testShaderPackage(),
		WithStainColor(mgl32.Vec4{1, 0, 0, 1}))
	require.NoError(t, err)
	extras := d.Extras()
	assert.Equal(t, "character.shpk", extras["ShaderPackage"])
	assert.Equal(t, "a.mtrl", extras["Material"])
	assert.Equal(t, []float32{0.25}, extras["g_AlphaThreshold"])
	assert.Equal(t, "chara/equipment/e0001/texture/v01_c0101e0001_top_n.tex", extras["g_SamplerNormal"])
	assert.Contains(t, extras, "g_SamplerNormal_FullPath")
	assert.Equal(t, "Flow", extras["CategoryFlowMapType"])
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, extras["StainColor"])
}

func TestFamilyFor(t *testing.T) {
	for shpk, family := range map[string]Family{
		"character.shpk":          FamilyCharacter,
		"characterlegacy.shpk":    FamilyCharacter,
		"charactertattoo.shpk":    FamilyTattoo,
		"characterocclusion.shpk": FamilyOcclusion,
		"skin.shpk":               FamilySkin,
		"hair.shpk":               FamilyHair,
		"iris.shpk":               FamilyIris,
		"bg.shpk":                 FamilyBg,
		"bgprop.shpk":             FamilyBg,
		"bgcolorchange.shpk":      FamilyBgColorChange,
		"lightshaft.shpk":         FamilyLightshaft,
		"water.shpk":              FamilyGeneric,
		"":                        FamilyGeneric,
	} {
		assert.Equal(t, family, FamilyFor(shpk), shpk)
	}
}
