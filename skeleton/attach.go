package skeleton

import (
	"strconv"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_composer/records"
)

// SuffixCounter hands out attach suffixes shared by all attaches of one compose run.
type SuffixCounter struct {
	n atomic.Int64
}

func NewSuffixCounter() *SuffixCounter {
	return &SuffixCounter{}
}

func (c *SuffixCounter) Next() int {
	return int(c.n.Add(1))
}

type AttachResult struct {
	// Root is the id of the grafted child root inside the parent forest
	Root           BoneID
	BoneName       string
	AttachedToRoot bool
	World          mgl32.Mat4
	remap          map[BoneID]BoneID
}

// RemapBone translates a child forest id to the parent forest.
func (r *AttachResult) RemapBone(id BoneID) (BoneID, bool) {
	mapped, ok := r.remap[id]
	return mapped, ok
}

func attachBoneName(parentSkel *records.Skeleton, attach records.Attach) (string, error) {
	if parentSkel == nil {
		return "", errors.Errorf("Attach has no parent skeleton")
	}
	if attach.PartialSkeletonIndex < 0 || attach.PartialSkeletonIndex >= len(parentSkel.PartialSkeletons) {
		return "", errors.Errorf("Partial skeleton index %d out of range (%d)",
			attach.PartialSkeletonIndex, len(parentSkel.PartialSkeletons))
	}
	names := parentSkel.PartialSkeletons[attach.PartialSkeletonIndex].BoneNames
	if attach.BoneIndex < 0 || attach.BoneIndex >= len(names) {
		return "", errors.Errorf("Bone index %d out of range (%d)", attach.BoneIndex, len(names))
	}
	return names[attach.BoneIndex], nil
}

// Attach grafts the preferred root subtree of child under the attach bone in parent.
// The child forest is renamed and its root transform replaced by the attach offset.
func Attach(parent *Forest, parentSkel *records.Skeleton, child *Forest, attach records.Attach, counter *SuffixCounter) (*AttachResult, error) {
	switch attach.ExecuteType {
	case records.ATTACH_EXECUTE_ROOT, records.ATTACH_EXECUTE_ACCESSORY, records.ATTACH_EXECUTE_WEAPON:
	default:
		return nil, errors.Errorf("Unsupported attach execute type %d", attach.ExecuteType)
	}

	boneName, err := attachBoneName(parentSkel, attach)
	if err != nil {
		return nil, err
	}

	childRoot, err := child.PreferredRoot()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to attach to %q", boneName)
	}
	child.SetSuffixRecursively(childRoot, strconv.Itoa(counter.Next()))
	child.Nodes[childRoot].Local = attach.Transform.Normalized()
	child.Nodes[childRoot].Bind = child.Nodes[childRoot].Local

	result := &AttachResult{
		BoneName: boneName,
		remap:    make(map[BoneID]BoneID),
	}
	target, ok := parent.ByName(boneName)
	if !ok {
		target = NoBone
		result.AttachedToRoot = true
	}

	subtree := child.Flatten(childRoot)
	for k, id := range subtree {
		result.remap[id] = BoneID(len(parent.Nodes) + k)
	}
	for _, id := range subtree {
		src := child.Nodes[id]
		node := src
		node.ID = result.remap[id]
		node.Children = make([]BoneID, len(src.Children))
		for i, c := range src.Children {
			node.Children[i] = result.remap[c]
		}
		if id == childRoot {
			node.Parent = target
		} else {
			node.Parent = result.remap[src.Parent]
		}
		parent.Nodes = append(parent.Nodes, node)
	}

	result.Root = result.remap[childRoot]
	if target == NoBone {
		parent.Roots = append(parent.Roots, result.Root)
	} else {
		parent.Nodes[target].Children = append(parent.Nodes[target].Children, result.Root)
	}
	result.World = parent.WorldMatrix(result.Root)
	return result, nil
}
