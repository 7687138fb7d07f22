package records

import "github.com/go-gl/mathgl/mgl32"

type InstanceType string

const (
	InstanceUnsupported InstanceType = "Unsupported"
	InstanceSharedGroup InstanceType = "SharedGroup"
	InstanceHousing     InstanceType = "Housing"
	InstanceBgPart      InstanceType = "BgPart"
	InstanceLight       InstanceType = "Light"
	InstanceCharacter   InstanceType = "Character"
)

const (
	ATTACH_EXECUTE_NONE      = -1
	ATTACH_EXECUTE_ROOT      = 0
	ATTACH_EXECUTE_ACCESSORY = 3
	ATTACH_EXECUTE_WEAPON    = 4
)

// Attach places a child skeleton relative to a bone of its owner.
type Attach struct {
	ExecuteType          int       `yaml:"execute_type"`
	Transform            Transform `yaml:"transform"`
	PartialSkeletonIndex int       `yaml:"partial_skeleton_index"`
	BoneIndex            int       `yaml:"bone_index"`
}

type DeformerInfo struct {
	PbdPath    string `yaml:"pbd_path"`
	DeformerID uint16 `yaml:"deformer_id"`
	RaceSexID  uint16 `yaml:"race_sex_id"`
}

type MaterialInfo struct {
	Path ResourcePath `yaml:"path"`
	// path the model references the material by
	PathFromModel string        `yaml:"path_from_model"`
	ColorTable    *ColorTable   `yaml:"color_table,omitempty"`
	Textures      []TexturePath `yaml:"textures,omitempty"`
}

type ModelInfo struct {
	Path              ResourcePath         `yaml:"path"`
	PathFromCharacter string               `yaml:"path_from_character"`
	Deformer          *DeformerInfo        `yaml:"deformer,omitempty"`
	ShapeAttributes   *ShapeAttributeGroup `yaml:"shape_attributes,omitempty"`
	Materials         []MaterialInfo       `yaml:"materials"`
}

type AttachedChild struct {
	Name      string         `yaml:"name"`
	Attach    Attach         `yaml:"attach"`
	Character *CharacterInfo `yaml:"character"`
}

type CharacterInfo struct {
	Models             []ModelInfo        `yaml:"models"`
	Skeleton           *Skeleton          `yaml:"skeleton"`
	CustomizeData      CustomizeData      `yaml:"customize_data"`
	CustomizeParameter CustomizeParameter `yaml:"customize_parameter"`
	GenderRace         uint16             `yaml:"gender_race"`
	Attaches           []AttachedChild    `yaml:"attaches,omitempty"`
}

type Light struct {
	Color mgl32.Vec4 `yaml:"color"`
	Range float32    `yaml:"range"`
}

type Instance struct {
	ID        uint64       `yaml:"id"`
	Type      InstanceType `yaml:"type"`
	Transform Transform    `yaml:"transform"`
	// set for path instances (bg parts, housing, shared groups loaded from a file)
	Path     string      `yaml:"path,omitempty"`
	Children []*Instance `yaml:"children,omitempty"`

	Name      string         `yaml:"name,omitempty"`
	Kind      string         `yaml:"kind,omitempty"`
	Character *CharacterInfo `yaml:"character,omitempty"`
	Stain     *mgl32.Vec3    `yaml:"stain,omitempty"`
	Light     *Light         `yaml:"light,omitempty"`
}

// Flatten returns the instance and all descendants depth-first.
func (i *Instance) Flatten() []*Instance {
	list := []*Instance{i}
	for _, child := range i.Children {
		list = append(list, child.Flatten()...)
	}
	return list
}
