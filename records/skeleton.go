package records

import (
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/scene_composer/utils"
)

type Transform struct {
	Translation mgl32.Vec3 `yaml:"translation"`
	Rotation    mgl32.Quat `yaml:"rotation"`
	Scale       mgl32.Vec3 `yaml:"scale"`
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Normalized fills a zero scale or zero rotation (omitted in scene files) with identity values.
func (t Transform) Normalized() Transform {
	if t.Scale == (mgl32.Vec3{}) {
		t.Scale = mgl32.Vec3{1, 1, 1}
	}
	if t.Rotation == (mgl32.Quat{}) {
		t.Rotation = mgl32.QuatIdent()
	}
	return t
}

// Matrix composes translation * rotation * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	t = t.Normalized()
	return mgl32.Translate3D(t.Translation.Elem()).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.Elem()))
}

// TransformFromMatrix decomposes an affine matrix, failing on singular or non-finite input.
func TransformFromMatrix(m mgl32.Mat4) (Transform, bool) {
	translation, rotation, scale, ok := utils.DecomposeMatrix(m)
	if !ok {
		return Transform{}, false
	}
	return Transform{Translation: translation, Rotation: rotation, Scale: scale}, true
}

type PartialSkeleton struct {
	// identity of the owning resource handle, never empty for a loaded fragment
	Handle             string        `yaml:"handle"`
	BoneNames          []string      `yaml:"bone_names"`
	BoneParents        []int         `yaml:"bone_parents"`
	ReferencePose      []Transform   `yaml:"reference_pose"`
	ConnectedBoneIndex int           `yaml:"connected_bone_index"`
	Poses              [][]Transform `yaml:"poses,omitempty"`
}

// UnmarshalYAML defaults ConnectedBoneIndex to -1, a fragment connected to nothing.
func (p *PartialSkeleton) UnmarshalYAML(value *yaml.Node) error {
	type plain PartialSkeleton
	raw := plain{ConnectedBoneIndex: -1}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = PartialSkeleton(raw)
	return nil
}

type Skeleton struct {
	Transform        Transform         `yaml:"transform"`
	PartialSkeletons []PartialSkeleton `yaml:"partial_skeletons"`
}
