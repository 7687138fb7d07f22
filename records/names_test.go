package records

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/mogaika/scene_composer/utils"
)

func TestNamedIdsMatchCrc(t *testing.T) {
	for _, tc := range []struct {
		name string
		id   uint32
	}{
		{"g_GlassIOR", uint32(ConstGlassIOR)},
		{"g_AlphaThreshold", uint32(ConstAlphaThreshold)},
		{"g_DetailNormalUvScale", uint32(ConstDetailNormalUvScale)},
		{"g_SamplerNormal", uint32(UsageNormal)},
		{"g_SamplerSphareMapCustum", uint32(UsageSphereMapCustom)},
		{"g_SamplerWrinklesMask", uint32(UsageWrinklesMask)},
	} {
		assert.Equal(t, tc.id, utils.GameCrc32(tc.name), tc.name)
	}
}

func TestIdStrings(t *testing.T) {
	assert.Equal(t, "g_WhiteEyeColor", ConstWhiteEyeColor.String())
	assert.Equal(t, "g_SamplerMask", UsageMask.String())
	assert.Equal(t, "CategoryHairType", CategoryHairType.String())
	assert.Equal(t, "0x00000001", ConstantID(1).String())
	assert.Equal(t, "0xDEADBEEF", TextureUsage(0xDEADBEEF).String())

	assert.Equal(t, "Face", KeyValueName(CategorySkinType, SkinTypeFace))
	assert.Equal(t, "UseDiffuseAlphaAsOpacity", KeyValueName(CategoryDiffuseAlpha, DiffuseAlphaUseDiffuseAsOpacity))
	assert.Equal(t, "0x00000002", KeyValueName(CategorySkinType, 2))
	assert.Equal(t, "0x5CC605B5", KeyValueName(ShaderCategory(7), TextureModeDefault))
}

func TestEnabledValues(t *testing.T) {
	masks := []NamedMask{{Name: "atr_a", ID: 0}, {Name: "atr_b", ID: 3}, {Name: "atr_bad", ID: 70}}
	assert.Equal(t, []string{"atr_a"}, EnabledValues(0b0001, masks))
	assert.Equal(t, []string{"atr_a", "atr_b"}, EnabledValues(0b1001, masks))
	assert.Empty(t, EnabledValues(0, masks))
}

func TestPairRowBlender(t *testing.T) {
	var table ColorTable
	for i := range table.Rows {
		table.Rows[i].Diffuse = mgl32.Vec3{float32(i), 0, 0}
		table.Rows[i].TileIndex = uint16(i)
	}
	var b PairRowBlender

	for _, tc := range []struct {
		index, weight uint8
		diffuse       float32
		tile          uint16
	}{
		{0, 255, 0, 0},
		{0, 0, 1, 1},
		{17, 255, 2, 2},
		{34, 0, 5, 5},
		{255, 255, 30, 30},
	} {
		row := b.BlendRowPair(&table, tc.index, tc.weight)
		assert.InDelta(t, tc.diffuse, row.Diffuse[0], 1e-5, "index %d weight %d", tc.index, tc.weight)
		assert.Equal(t, tc.tile, row.TileIndex, "index %d weight %d", tc.index, tc.weight)
	}
}

func TestTransformNormalizedAndMatrix(t *testing.T) {
	var zero Transform
	n := zero.Normalized()
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, n.Scale)
	assert.Equal(t, mgl32.QuatIdent(), n.Rotation)
	assert.True(t, zero.Matrix().ApproxEqual(mgl32.Ident4()))

	tr := IdentityTransform()
	tr.Translation = mgl32.Vec3{1, 2, 3}
	tr.Scale = mgl32.Vec3{2, 2, 2}
	back, ok := TransformFromMatrix(tr.Matrix())
	require.True(t, ok)
	assert.True(t, back.Translation.ApproxEqual(tr.Translation))
	assert.True(t, back.Scale.ApproxEqualThreshold(tr.Scale, 1e-5))
}

func TestDecodeSceneDescription(t *testing.T) {
	data := []byte("name: test\n" +
		"instances:\n" +
		"  - id: 1\n" +
		"    type: BgPart\n" +
		"    path: bg/ffxiv/fst_f1/common/bgparts/f1c1_b0_rock01.mdl\n" +
		"  - id: 2\n" +
		"    type: Character\n" +
		"    name: Caf\xe9\n" +
		"    kind: Pc\n")
	scene, err := DecodeSceneDescription(data, charmap.Windows1252)
	require.NoError(t, err)
	assert.Equal(t, "test", scene.Name)
	require.Len(t, scene.Instances, 2)
	assert.Equal(t, InstanceBgPart, scene.Instances[0].Type)
	assert.Equal(t, "Café", scene.Instances[1].Name)

	_, err = DecodeSceneDescription([]byte("instances:\n  - \n"), nil)
	assert.Error(t, err)
}
