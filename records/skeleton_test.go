package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPartialSkeletonConnectedBoneDefault(t *testing.T) {
	var sk Skeleton
	require.NoError(t, yaml.Unmarshal([]byte(`
partial_skeletons:
  - handle: chara/human/c0101/skeleton/base/b0001/skl_c0101b0001.sklb
    bone_names: [n_root, j_kosi]
    bone_parents: [-1, 0]
  - handle: chara/human/c0101/skeleton/face/f0001/skl_c0101f0001.sklb
    bone_names: [j_kosi, j_kao]
    bone_parents: [-1, 0]
    connected_bone_index: 0
`), &sk))

	require.Len(t, sk.PartialSkeletons, 2)
	assert.Equal(t, -1, sk.PartialSkeletons[0].ConnectedBoneIndex)
	assert.Equal(t, 0, sk.PartialSkeletons[1].ConnectedBoneIndex)
	assert.Equal(t, []string{"n_root", "j_kosi"}, sk.PartialSkeletons[0].BoneNames)
}
