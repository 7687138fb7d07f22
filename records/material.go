package records

const (
	SHADER_FLAG_HIDE_BACKFACES      = 0x1
	SHADER_FLAG_ENABLE_TRANSLUCENCY = 0x10

	SAMPLER_NO_TEXTURE = 0xFF
)

// ResourcePath pairs the path the game requested with the path the data was resolved from
// (these differ for redirected or modded files).
type ResourcePath struct {
	GamePath string `yaml:"game_path"`
	FullPath string `yaml:"full_path"`
}

type TexturePath = ResourcePath

type MaterialConstant struct {
	ID          ConstantID `yaml:"id"`
	ValueOffset uint16     `yaml:"value_offset"`
	ValueSize   uint16     `yaml:"value_size"`
}

type MaterialSampler struct {
	SamplerID    uint32 `yaml:"sampler_id"`
	Flags        uint32 `yaml:"flags"`
	TextureIndex uint8  `yaml:"texture_index"`
}

type ShaderKey struct {
	Category ShaderCategory `yaml:"category"`
	Value    uint32         `yaml:"value"`
}

// Material is a decoded material file. ShaderValues holds raw 32-bit words
// that constants reference by byte offset.
type Material struct {
	ShaderPackageName string             `yaml:"shader_package"`
	ShaderFlags       uint32             `yaml:"shader_flags"`
	ShaderKeys        []ShaderKey        `yaml:"shader_keys"`
	Constants         []MaterialConstant `yaml:"constants"`
	ShaderValues      []uint32           `yaml:"shader_values"`
	Samplers          []MaterialSampler  `yaml:"samplers"`
	TextureOffsets    []uint16           `yaml:"texture_offsets"`
	TexturePaths      map[uint16]string  `yaml:"texture_paths"`
	ColorTable        *ColorTable        `yaml:"color_table,omitempty"`
}

func (m *Material) RenderBackfaces() bool {
	return m.ShaderFlags&SHADER_FLAG_HIDE_BACKFACES == 0
}

func (m *Material) IsTransparent() bool {
	return m.ShaderFlags&SHADER_FLAG_ENABLE_TRANSLUCENCY != 0
}

type ShaderPackage struct {
	Name              string                    `yaml:"name"`
	DefaultKeyValues  map[ShaderCategory]uint32 `yaml:"default_key_values"`
	MaterialConstants map[ConstantID][]float32  `yaml:"material_constants"`
	// sampler id to the usage it is bound to
	TextureLookup map[uint32]TextureUsage `yaml:"texture_lookup"`
}
