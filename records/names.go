package records

import (
	"fmt"

	"github.com/mogaika/scene_composer/utils"
)

// Constant and sampler ids are GameCrc32 of their shader-side names.
type ConstantID uint32
type TextureUsage uint32
type ShaderCategory uint32

const (
	ConstAlphaThreshold       ConstantID = 0x29AC0223
	ConstShaderID             ConstantID = 0x59BDA0B1
	ConstDiffuseColor         ConstantID = 0x2C2A34DD
	ConstSpecularColor        ConstantID = 0x141722D5
	ConstSpecularColorMask    ConstantID = 0xCB0338DC
	ConstLipRoughnessScale    ConstantID = 0x3632401A
	ConstWhiteEyeColor        ConstantID = 0x11C90091
	ConstSphereMapIndex       ConstantID = 0x074953E9
	ConstEmissiveColor        ConstantID = 0x38A64362
	ConstSSAOMask             ConstantID = 0xB7FA33E2
	ConstTileIndex            ConstantID = 0x4255F2F4
	ConstTileScale            ConstantID = 0x2E60B071
	ConstTileAlpha            ConstantID = 0x12C6AC9F
	ConstNormalScale          ConstantID = 0xB5545FBB
	ConstSheenRate            ConstantID = 0x800EE35F
	ConstIrisRingColor        ConstantID = 0x50E36D56
	ConstIrisThickness        ConstantID = 0x66C93D3E
	ConstAlphaAperture        ConstantID = 0xD62BF368
	ConstAlphaOffset          ConstantID = 0xD07A6A65
	ConstGlassIOR             ConstantID = 0x7801E004
	ConstOutlineColor         ConstantID = 0x623CC4FE
	ConstOutlineWidth         ConstantID = 0x8870C938
	ConstColor                ConstantID = 0xD27C58B9
	ConstShadowAlphaThreshold ConstantID = 0xD925FF32
	ConstDetailID             ConstantID = 0x8981D4D9
	ConstDetailNormalScale    ConstantID = 0x9F42EDA2
	ConstDetailColorUvScale   ConstantID = 0xC63D9716
	ConstDetailColor          ConstantID = 0xDD93D839
	ConstDetailNormalUvScale  ConstantID = 0x025A9BEE
)

const (
	UsageNormal          TextureUsage = 0x0C5EC1F1
	UsageMask            TextureUsage = 0x8A4E82B6
	UsageIndex           TextureUsage = 0x565F8FD8
	UsageDiffuse         TextureUsage = 0x115306BE
	UsageFlow            TextureUsage = 0xA7E197F6
	UsageColorMap0       TextureUsage = 0x1E6FEF9C
	UsageNormalMap0      TextureUsage = 0xAAB4D9E9
	UsageSpecularMap0    TextureUsage = 0x1BBC2F12
	UsageColorMap1       TextureUsage = 0x6968DF0A
	UsageNormalMap1      TextureUsage = 0xDDB3E97F
	UsageSpecularMap1    TextureUsage = 0x6CBB1F84
	UsageSpecular        TextureUsage = 0x2B99E025
	UsageColorMap        TextureUsage = 0x6E1DF4A2
	UsageNormalMap       TextureUsage = 0xBE95B65E
	UsageSpecularMap     TextureUsage = 0xBD8A6965
	UsageEnvMap          TextureUsage = 0xF8D7957A
	UsageSphereMapCustom TextureUsage = 0xD7837FCE
	UsageSampler0        TextureUsage = 0x213CB439
	UsageSampler1        TextureUsage = 0x563B84AF
	UsageCatchlight      TextureUsage = 0xFEA0F3D2
	UsageSampler         TextureUsage = 0x88408C04
	UsageNormal2         TextureUsage = 0x0261CDCB
	UsageWrinklesMask    TextureUsage = 0xB3F13975
)

const (
	CategorySkinType      ShaderCategory = 0x380CAED0
	CategoryHairType      ShaderCategory = 0x24826489
	CategoryTextureType   ShaderCategory = 0xB616DC5A
	CategorySpecularType  ShaderCategory = 0xC8BD1DEF
	CategoryFlowMapType   ShaderCategory = 0x40D1481E
	CategoryDiffuseAlpha  ShaderCategory = 0xA9A3EE25
	CategoryBgVertexPaint ShaderCategory = 0x4F4F0636
)

// shader key values
const (
	SkinTypeBody     uint32 = 0x2BDB45F1
	SkinTypeFace     uint32 = 0xF5673524
	SkinTypeHrothgar uint32 = 0x57FF3B64

	HairTypeFace uint32 = 0x6E5B8F10
	HairTypeHair uint32 = 0xF7B8956E

	FlowTypeStandard uint32 = 0x337C6BC4
	FlowTypeFlow     uint32 = 0x71ADA939

	TextureModeDefault       uint32 = 0x5CC605B5
	TextureModeCompatibility uint32 = 0x600EF9DF
	TextureModeSimple        uint32 = 0x22A4AABF

	SpecularModeMask    uint32 = 0xA02F4828
	SpecularModeDefault uint32 = 0x198D11CD

	DiffuseAlphaDefault             uint32 = 0x0
	DiffuseAlphaUseDiffuseAsOpacity uint32 = 0x72AAA9AE

	BgVertexPaintOff uint32 = 0x7C6FA05B
	BgVertexPaintOn  uint32 = 0xBD94649A
)

var constantNames = []string{
	"g_AlphaThreshold", "g_ShaderID", "g_DiffuseColor", "g_SpecularColor",
	"g_SpecularColorMask", "g_LipRoughnessScale", "g_WhiteEyeColor",
	"g_SphereMapIndex", "g_EmissiveColor", "g_SSAOMask", "g_TileIndex",
	"g_TileScale", "g_TileAlpha", "g_NormalScale", "g_SheenRate",
	"g_IrisRingColor", "g_IrisThickness", "g_AlphaAperture", "g_AlphaOffset",
	"g_GlassIOR", "g_OutlineColor", "g_OutlineWidth", "g_Color",
	"g_ShadowAlphaThreshold", "g_DetailID", "g_DetailNormalScale",
	"g_DetailColorUvScale", "g_DetailColor", "g_DetailNormalUvScale",
}

var usageNames = []string{
	"g_SamplerNormal", "g_SamplerMask", "g_SamplerIndex", "g_SamplerDiffuse",
	"g_SamplerFlow", "g_SamplerColorMap0", "g_SamplerNormalMap0",
	"g_SamplerSpecularMap0", "g_SamplerColorMap1", "g_SamplerNormalMap1",
	"g_SamplerSpecularMap1", "g_SamplerSpecular", "g_SamplerColorMap",
	"g_SamplerNormalMap", "g_SamplerSpecularMap", "g_SamplerEnvMap",
	"g_SamplerSphareMapCustum", "g_Sampler0", "g_Sampler1",
	"g_SamplerCatchlight", "g_Sampler", "g_SamplerNormal2",
	"g_SamplerWrinklesMask",
}

var categoryNames = map[ShaderCategory]string{
	CategorySkinType:      "CategorySkinType",
	CategoryHairType:      "CategoryHairType",
	CategoryTextureType:   "CategoryTextureType",
	CategorySpecularType:  "CategorySpecularType",
	CategoryFlowMapType:   "CategoryFlowMapType",
	CategoryDiffuseAlpha:  "CategoryDiffuseAlpha",
	CategoryBgVertexPaint: "CategoryBgVertexPaint",
}

var keyValueNames = map[ShaderCategory]map[uint32]string{
	CategorySkinType: {
		SkinTypeBody: "Body", SkinTypeFace: "Face", SkinTypeHrothgar: "Hrothgar",
	},
	CategoryHairType: {
		HairTypeFace: "Face", HairTypeHair: "Hair",
	},
	CategoryTextureType: {
		TextureModeDefault: "Default", TextureModeCompatibility: "Compatibility", TextureModeSimple: "Simple",
	},
	CategorySpecularType: {
		SpecularModeMask: "Mask", SpecularModeDefault: "Default",
	},
	CategoryFlowMapType: {
		FlowTypeStandard: "Standard", FlowTypeFlow: "Flow",
	},
	CategoryDiffuseAlpha: {
		DiffuseAlphaDefault: "Default", DiffuseAlphaUseDiffuseAsOpacity: "UseDiffuseAlphaAsOpacity",
	},
	CategoryBgVertexPaint: {
		BgVertexPaintOff: "Off", BgVertexPaintOn: "On",
	},
}

var constantsByCrc map[ConstantID]string
var usagesByCrc map[TextureUsage]string

func init() {
	constantsByCrc = make(map[ConstantID]string, len(constantNames))
	for _, name := range constantNames {
		constantsByCrc[ConstantID(utils.GameCrc32(name))] = name
	}
	usagesByCrc = make(map[TextureUsage]string, len(usageNames))
	for _, name := range usageNames {
		usagesByCrc[TextureUsage(utils.GameCrc32(name))] = name
	}
}

func hexName(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}

func (c ConstantID) String() string {
	if name, ok := constantsByCrc[c]; ok {
		return name
	}
	return hexName(uint32(c))
}

func (u TextureUsage) String() string {
	if name, ok := usagesByCrc[u]; ok {
		return name
	}
	return hexName(uint32(u))
}

func (c ShaderCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return hexName(uint32(c))
}

// KeyValueName resolves a shader key value to its known name within the category.
func KeyValueName(c ShaderCategory, value uint32) string {
	if values, ok := keyValueNames[c]; ok {
		if name, ok := values[value]; ok {
			return name
		}
	}
	return hexName(value)
}
