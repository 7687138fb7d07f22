package records

import "github.com/go-gl/mathgl/mgl32"

const MAX_BLEND_INFLUENCES = 8

type Vertex struct {
	Position     mgl32.Vec3                    `yaml:"position"`
	Normal       mgl32.Vec3                    `yaml:"normal"`
	UV           [2]mgl32.Vec2                 `yaml:"uv"`
	Color        mgl32.Vec4                    `yaml:"color"`
	BlendIndices [MAX_BLEND_INFLUENCES]uint8   `yaml:"blend_indices"`
	BlendWeights [MAX_BLEND_INFLUENCES]float32 `yaml:"blend_weights"`
}

type Submesh struct {
	IndexOffset int      `yaml:"index_offset"`
	IndexCount  int      `yaml:"index_count"`
	Attributes  []string `yaml:"attributes"`
}

type Mesh struct {
	MaterialIndex int `yaml:"material_index"`
	// blend indices of vertices point into this table
	BoneTable []string  `yaml:"bone_table,omitempty"`
	Vertices  []Vertex  `yaml:"vertices"`
	Indices   []uint32  `yaml:"indices"`
	Submeshes []Submesh `yaml:"submeshes,omitempty"`
}

// ShapeValue replaces the vertex referenced by Indices[BaseIndex] with Vertices[ReplacingVertex].
type ShapeValue struct {
	BaseIndex       int `yaml:"base_index"`
	ReplacingVertex int `yaml:"replacing_vertex"`
}

type ShapeMesh struct {
	MeshIndex int          `yaml:"mesh_index"`
	Values    []ShapeValue `yaml:"values"`
}

type Shape struct {
	Name   string      `yaml:"name"`
	Meshes []ShapeMesh `yaml:"meshes"`
}

type NamedMask struct {
	Name string `yaml:"name"`
	ID   int    `yaml:"id"`
}

type ShapeAttributeGroup struct {
	EnabledShapeMask     uint64      `yaml:"enabled_shape_mask"`
	EnabledAttributeMask uint64      `yaml:"enabled_attribute_mask"`
	ShapeMasks           []NamedMask `yaml:"shape_masks"`
	AttributeMasks       []NamedMask `yaml:"attribute_masks"`
}

type Model struct {
	Path          string   `yaml:"path"`
	MaterialPaths []string `yaml:"materials"`
	Meshes        []Mesh   `yaml:"meshes"`
	Shapes        []Shape  `yaml:"shapes,omitempty"`
	// nil when every shape and attribute is considered enabled
	ShapeAttributes *ShapeAttributeGroup `yaml:"shape_attributes,omitempty"`
}

// EnabledValues returns names whose bit is set in mask.
func EnabledValues(mask uint64, masks []NamedMask) []string {
	result := make([]string, 0, len(masks))
	for _, m := range masks {
		if m.ID < 0 || m.ID >= 64 {
			continue
		}
		if (uint64(1)<<uint(m.ID))&mask != 0 {
			result = append(result, m.Name)
		}
	}
	return result
}
