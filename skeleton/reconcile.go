package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/records"
)

type PoseMode int

const (
	PoseNone PoseMode = iota
	PoseLocalScaleOnly
	PoseLocal
	PoseModelSpace
)

var poseModeNames = map[string]PoseMode{
	"none":             PoseNone,
	"local_scale_only": PoseLocalScaleOnly,
	"local":            PoseLocal,
	"model_space":      PoseModelSpace,
}

func ParsePoseMode(s string) (PoseMode, error) {
	if m, ok := poseModeNames[s]; ok {
		return m, nil
	}
	return PoseNone, errors.Errorf("Unknown pose mode %q", s)
}

func (m PoseMode) String() string {
	for name, mode := range poseModeNames {
		if mode == m {
			return name
		}
	}
	return "unknown"
}

type ReconcileOptions struct {
	PoseMode PoseMode
}

// BuildForest merges the partial skeletons in order. Bones already declared by an
// earlier fragment (case-insensitive) are shared instead of duplicated.
func BuildForest(sk *records.Skeleton, opts ReconcileOptions) (*Forest, error) {
	f := &Forest{}
	byFolded := make(map[string]BoneID)
	for partialIdx := range sk.PartialSkeletons {
		partial := &sk.PartialSkeletons[partialIdx]
		if len(partial.BoneNames) == 0 {
			continue
		}

		local := make([]BoneID, len(partial.BoneNames))
		for i := range local {
			local[i] = NoBone
		}

		for i, name := range partial.BoneNames {
			if name == "" {
				continue
			}
			folded := foldName(name)
			if dupe, ok := byFolded[folded]; ok {
				local[i] = dupe
				continue
			}
			if partial.ConnectedBoneIndex == i {
				return nil, errors.Errorf("Bone %q on %d is connected to a skeleton that should have been declared already", name, i)
			}
			if partial.Handle == "" {
				return nil, errors.Errorf("No handle path for %q [%d,%d]", name, partialIdx, i)
			}

			transform := records.IdentityTransform()
			if i < len(partial.ReferencePose) {
				transform = partial.ReferencePose[i].Normalized()
			}

			parent := NoBone
			if i < len(partial.BoneParents) {
				if parentIdx := partial.BoneParents[i]; parentIdx >= 0 {
					if parentIdx >= len(local) {
						return nil, errors.Errorf("Bone %q parent index %d out of range", name, parentIdx)
					}
					parent = local[parentIdx]
					if parent == NoBone {
						return nil, errors.Errorf("Bone %q parent %d is not declared before it", name, parentIdx)
					}
				}
			}

			id := f.AddBone(name, parent, transform)
			node := f.Node(id)
			node.BoneIndex = i
			node.PartialHandle = partial.Handle
			node.PartialIndex = partialIdx
			local[i] = id
			byFolded[folded] = id
		}
	}

	if err := f.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Armature is invalid")
	}

	if opts.PoseMode != PoseNone {
		f.applyPose(sk, opts.PoseMode)
	}
	return f, nil
}

// poseTransform returns the first pose frame of a bone, with the skeleton scale
// applied to fragment roots.
func (f *Forest) poseTransform(sk *records.Skeleton, id BoneID) (records.Transform, bool) {
	node := f.Node(id)
	if node == nil || node.BoneIndex < 0 || node.PartialIndex >= len(sk.PartialSkeletons) {
		return records.Transform{}, false
	}
	partial := &sk.PartialSkeletons[node.PartialIndex]
	if len(partial.Poses) == 0 || node.BoneIndex >= len(partial.Poses[0]) {
		return records.Transform{}, false
	}
	t := partial.Poses[0][node.BoneIndex].Normalized()
	if node.Parent == NoBone {
		s := sk.Transform.Normalized().Scale
		t.Scale = mgl32.Vec3{t.Scale[0] * s[0], t.Scale[1] * s[1], t.Scale[2] * s[2]}
	}
	return t, true
}

func (f *Forest) applyPose(sk *records.Skeleton, mode PoseMode) {
	log := logger.Named("skeleton")

	// model space poses need every parent pose before the children are rewritten
	var models map[BoneID]mgl32.Mat4
	if mode == PoseModelSpace {
		models = make(map[BoneID]mgl32.Mat4, len(f.Nodes))
		for i := range f.Nodes {
			if pose, ok := f.poseTransform(sk, BoneID(i)); ok {
				models[BoneID(i)] = pose.Matrix()
			}
		}
	}

	for _, id := range f.FlattenAll() {
		node := &f.Nodes[id]
		pose, ok := f.poseTransform(sk, id)
		if !ok {
			continue
		}
		switch mode {
		case PoseLocalScaleOnly:
			node.Local.Scale = pose.Scale
		case PoseLocal:
			node.Local = pose
		case PoseModelSpace:
			model := models[id]
			if node.Parent != NoBone {
				parentModel, ok := models[node.Parent]
				if !ok {
					continue
				}
				if parentModel.Det() == 0 {
					log.Warn("Singular parent pose, keeping reference transform", zap.String("bone", node.Name))
					continue
				}
				model = parentModel.Inv().Mul4(model)
			}
			local, ok := records.TransformFromMatrix(model)
			if !ok {
				log.Warn("Failed to decompose pose, keeping reference transform", zap.String("bone", node.Name))
				continue
			}
			node.Local = local
		}
	}
}
