package composer

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_composer/cache"
	"github.com/mogaika/scene_composer/config"
	"github.com/mogaika/scene_composer/deform"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/skeleton"
	"github.com/mogaika/scene_composer/synth"
)

const (
	rockModel    = "bg/ffxiv/fst_f1/common/bgparts/f1c1_b0_rock01.mdl"
	rockMaterial = "bg/ffxiv/fst_f1/common/material/f1c1_b0_rock01.mtrl"
	bodyModel    = "chara/human/c0101/obj/body/b0001/model/c0101b0001_top.mdl"
	bodyMaterial = "chara/human/c0101/obj/body/b0001/material/v0001/mt_c0101b0001_a.mtrl"
	weaponModel  = "chara/weapon/w0101/obj/body/b0001/model/w0101b0001.mdl"
	weaponMtrl   = "chara/weapon/w0101/obj/body/b0001/material/v0001/mt_w0101b0001_a.mtrl"
)

const rigidModelYAML = `
materials: [` + rockMaterial + `]
meshes:
  - material_index: 0
    vertices:
      - {position: [0, 0, 0]}
      - {position: [1, 0, 0]}
      - {position: [0, 1, 0]}
    indices: [0, 1, 2]
`

func skinnedModelYAML(material string, bones string) string {
	return `
materials: [` + material + `]
meshes:
  - material_index: 0
    bone_table: [` + bones + `]
    vertices:
      - {position: [0, 0, 0], blend_indices: [0, 0, 0, 0, 0, 0, 0, 0], blend_weights: [1, 0, 0, 0, 0, 0, 0, 0]}
      - {position: [1, 0, 0], blend_indices: [1, 0, 0, 0, 0, 0, 0, 0], blend_weights: [1, 0, 0, 0, 0, 0, 0, 0]}
      - {position: [0, 1, 0], blend_indices: [1, 0, 0, 0, 0, 0, 0, 0], blend_weights: [1, 0, 0, 0, 0, 0, 0, 0]}
    indices: [0, 1, 2]
`
}

func testFiles() map[string][]byte {
	generic := []byte("shader_package: water.shpk\n")
	return map[string][]byte{
		cache.SHADER_PACKAGE_DIR + "water.shpk": []byte("name: water.shpk\n"),
		rockModel:                               []byte(rigidModelYAML),
		rockMaterial:                            generic,
		bodyModel:                               []byte(skinnedModelYAML(bodyMaterial, "n_root, j_kao")),
		bodyMaterial:                            generic,
		weaponModel:                             []byte(skinnedModelYAML(weaponMtrl, "n_root, n_buki")),
		weaponMtrl:                              generic,
	}
}

func newTestComposer(t *testing.T, opts Options, progress ProgressFunc) *Composer {
	return newTestComposerWith(t, opts, progress, nil)
}

func newTestComposerWith(t *testing.T, opts Options, progress ProgressFunc, extra map[string][]byte) *Composer {
	files := testFiles()
	for path, data := range extra {
		files[path] = data
	}
	c := cache.New(cache.NewMapLoader(files), records.YAMLDecoder{}, cache.Options{
		Dir:             t.TempDir(),
		MirrorMaterials: true,
	})
	return New(opts, c, progress)
}

// racePbd converts 101 to 1401 by moving j_kosi one unit along x
func racePbd() []byte {
	const deformerOffset = 4 + 2*deform.HEADER_SIZE + 2*deform.LINK_SIZE
	var buf bytes.Buffer
	write := func(v interface{}) { binary.Write(&buf, binary.LittleEndian, v) }
	write(int32(2))
	write([]deform.Header{
		{ID: 101, DeformerID: 0},
		{ID: 1401, DeformerID: 1, Offset: deformerOffset},
	})
	write([]deform.Link{
		{Parent: deform.LINK_NULL, FirstChild: 1, NextSibling: deform.LINK_NULL, HeaderIdx: 0},
		{Parent: 0, FirstChild: deform.LINK_NULL, NextSibling: deform.LINK_NULL, HeaderIdx: 1},
	})
	// bone count, name offset, padding, matrix, name
	write(int32(1))
	write(int16(4 + 2 + 2 + 48))
	write(uint16(0))
	write(deform.Matrix{{1, 0, 0, 1}, {0, 1, 0, 0}, {0, 0, 1, 0}})
	buf.WriteString("j_kosi\x00")
	return buf.Bytes()
}

func identities(n int) []records.Transform {
	result := make([]records.Transform, n)
	for i := range result {
		result[i] = records.IdentityTransform()
	}
	return result
}

func translated(x, y, z float32) records.Transform {
	t := records.IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

// body skeleton whose face fragment declares j_kosi again with different casing
func bodySkeleton() *records.Skeleton {
	pose := identities(3)
	pose[0] = translated(0, 1, 0)
	return &records.Skeleton{
		Transform: records.IdentityTransform(),
		PartialSkeletons: []records.PartialSkeleton{
			{
				Handle:             "chara/human/c0101/skeleton/base/b0001/skl_c0101b0001.sklb",
				BoneNames:          []string{"n_root", "j_kosi", "j_sebo_a"},
				BoneParents:        []int{-1, 0, 1},
				ReferencePose:      pose,
				ConnectedBoneIndex: -1,
			},
			{
				Handle:             "chara/human/c0101/skeleton/face/f0001/skl_c0101f0001.sklb",
				BoneNames:          []string{"J_Kosi", "j_kao"},
				BoneParents:        []int{-1, 0},
				ReferencePose:      identities(2),
				ConnectedBoneIndex: 0,
			},
		},
	}
}

func weaponCharacter() *records.CharacterInfo {
	return &records.CharacterInfo{
		Skeleton: &records.Skeleton{
			Transform: records.IdentityTransform(),
			PartialSkeletons: []records.PartialSkeleton{{
				Handle:             "chara/weapon/w0101/skeleton/base/b0001/skl_w0101b0001.sklb",
				BoneNames:          []string{"n_root", "n_buki"},
				BoneParents:        []int{-1, 0},
				ReferencePose:      identities(2),
				ConnectedBoneIndex: -1,
			}},
		},
		Models: []records.ModelInfo{{
			Path:              records.ResourcePath{GamePath: weaponModel, FullPath: weaponModel},
			PathFromCharacter: weaponModel,
		}},
	}
}

func bodyModelInfo() records.ModelInfo {
	return records.ModelInfo{
		Path:              records.ResourcePath{GamePath: bodyModel, FullPath: bodyModel},
		PathFromCharacter: bodyModel,
		Materials: []records.MaterialInfo{{
			Path:          records.ResourcePath{GamePath: bodyMaterial, FullPath: bodyMaterial},
			PathFromModel: "/mt_c0101b0001_a.mtrl",
		}},
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, synth.TextureBake, opts.TextureMode)
	assert.Equal(t, skeleton.PoseLocal, opts.PoseMode)

	cfg.Compose.TextureMode = config.TextureModeRaw
	opts, err = OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, synth.TextureRaw, opts.TextureMode)

	cfg.Compose.PoseMode = "sideways"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

func TestComposeRigidBgPart(t *testing.T) {
	c := newTestComposer(t, Options{}, nil)
	s, err := c.Compose(context.Background(), []*records.Instance{{
		ID:        7,
		Type:      records.InstanceBgPart,
		Path:      rockModel,
		Transform: translated(1, 2, 3),
	}})
	require.NoError(t, err)
	require.Len(t, s.Nodes, 1)

	root := s.Nodes[0]
	assert.Equal(t, "BgPart_f1c1_b0_rock01", root.Name)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, root.Transform.Translation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, root.Transform.Scale)
	assert.Nil(t, root.Skeleton)

	require.Len(t, root.Children, 1)
	node := root.Children[0]
	assert.Equal(t, "f1c1_b0_rock01_0_f1c1_b0_rock01", node.Name)
	require.NotNil(t, node.Mesh)
	assert.False(t, node.Mesh.Skinned())
	assert.Nil(t, node.Skin)

	require.Len(t, s.Materials, 1)
	assert.Equal(t, 0, node.Mesh.MaterialIndex)
	extras := s.Materials[0].Output.Extras
	assert.Equal(t, rockMaterial, extras["MtrlCachePath"])
	assert.Equal(t, "water.shpk", extras["ShaderPackage"])
}

func TestComposeCharacter(t *testing.T) {
	c := newTestComposer(t, Options{PlayerNameOverride: "Someone"}, nil)
	missing := "chara/equipment/e0001/model/c0101e0001_met.mdl"
	s, err := c.Compose(context.Background(), []*records.Instance{{
		ID:   1,
		Type: records.InstanceCharacter,
		Name: "Real Name",
		Kind: "Pc",
		Character: &records.CharacterInfo{
			Skeleton:   bodySkeleton(),
			GenderRace: 101,
			Models: []records.ModelInfo{
				bodyModelInfo(),
				{Path: records.ResourcePath{GamePath: missing, FullPath: missing}, PathFromCharacter: missing},
				{Path: records.ResourcePath{GamePath: rockModel}, PathFromCharacter: "chara/human/c0101/obj/body/b0003/model/c0101b0003_top.mdl"},
			},
		},
	}})
	require.NoError(t, err)
	require.Len(t, s.Nodes, 1)

	root := s.Nodes[0]
	assert.Equal(t, "Character_Pc_Someone", root.Name)
	require.NotNil(t, root.Skeleton)
	forest := root.Skeleton.Forest
	// shared j_kosi is declared once
	assert.Equal(t, 4, forest.Len())
	assert.NoError(t, forest.Validate())

	// missing and hidden models produce nothing
	require.Len(t, root.Children, 1)
	node := root.Children[0]
	assert.Equal(t, "c0101b0001_top_0_mt_c0101b0001_a", node.Name)
	require.NotNil(t, node.Mesh)
	assert.True(t, node.Mesh.Skinned())
	assert.Same(t, root.Skeleton, node.Skin)

	rootBone, _ := forest.ByName("n_root")
	kao, _ := forest.ByName("j_kao")
	assert.Equal(t, []skeleton.BoneID{rootBone, kao}, node.Mesh.Joints)
}

func composeBody(t *testing.T, genderRace uint16, pbd []byte) ([]mgl32.Vec3, error) {
	c := newTestComposerWith(t, Options{}, nil, map[string][]byte{deform.DEFAULT_PBD_PATH: pbd})
	s, err := c.Compose(context.Background(), []*records.Instance{{
		ID:   1,
		Type: records.InstanceCharacter,
		Name: "Body",
		Kind: "EventNpc",
		Character: &records.CharacterInfo{
			Skeleton:   bodySkeleton(),
			GenderRace: genderRace,
			Models:     []records.ModelInfo{bodyModelInfo()},
		},
	}})
	require.Len(t, s.Nodes, 1)
	var positions []mgl32.Vec3
	for _, child := range s.Nodes[0].Children {
		for _, v := range child.Mesh.Vertices {
			positions = append(positions, v.Position)
		}
	}
	return positions, err
}

func TestComposeDeformsOtherRaces(t *testing.T) {
	original := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	positions, err := composeBody(t, 101, racePbd())
	require.NoError(t, err)
	assert.Equal(t, original, positions, "own race is not deformed")

	// j_kao inherits the j_kosi deformation, n_root has none
	positions, err = composeBody(t, 1401, racePbd())
	require.NoError(t, err)
	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {2, 0, 0}, {1, 1, 0}}, positions)
}

func TestComposeFailsUnresolvableDeform(t *testing.T) {
	positions, err := composeBody(t, 1401, []byte{0, 0, 0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Instance 1 (Character)")
	assert.Contains(t, err.Error(), "Failed to resolve deformer")
	assert.Empty(t, positions, "the model is not emitted undeformed")
}

func TestComposeWeaponAttaches(t *testing.T) {
	attach := records.Attach{
		ExecuteType:          records.ATTACH_EXECUTE_WEAPON,
		Transform:            translated(1, 0, 0),
		PartialSkeletonIndex: 0,
		BoneIndex:            2,
	}
	c := newTestComposer(t, Options{}, nil)
	s, err := c.Compose(context.Background(), []*records.Instance{{
		ID:   2,
		Type: records.InstanceCharacter,
		Name: "Warrior",
		Kind: "BattleNpc",
		Character: &records.CharacterInfo{
			Skeleton:   bodySkeleton(),
			GenderRace: 101,
			Models:     []records.ModelInfo{bodyModelInfo()},
			Attaches: []records.AttachedChild{
				{Name: "MainHand", Attach: attach, Character: weaponCharacter()},
				{Name: "OffHand", Attach: attach, Character: weaponCharacter()},
			},
		},
	}})
	require.NoError(t, err)
	require.Len(t, s.Nodes, 1)

	root := s.Nodes[0]
	assert.Equal(t, "Character_BattleNpc_Warrior", root.Name)
	require.NotNil(t, root.Skeleton)
	forest := root.Skeleton.Forest
	assert.Equal(t, 8, forest.Len())
	assert.NoError(t, forest.Validate())

	sebo, _ := forest.ByName("j_sebo_a")
	for _, suffix := range []string{"_1", "_2"} {
		weaponRoot, ok := forest.ByName("n_root" + suffix)
		require.True(t, ok, suffix)
		assert.Equal(t, sebo, forest.Node(weaponRoot).Parent)
		// includes the translated n_root of the body
		world := forest.WorldMatrix(weaponRoot).Col(3).Vec3()
		assert.True(t, world.ApproxEqual(mgl32.Vec3{1, 1, 0}), "%v", world)
		_, ok = forest.ByName("n_buki" + suffix)
		assert.True(t, ok, suffix)
	}

	require.Len(t, root.Children, 3)
	for i, suffix := range []string{"_1", "_2"} {
		node := root.Children[i+1]
		require.NotNil(t, node.Mesh)
		assert.Same(t, root.Skeleton, node.Skin)

		weaponRoot, _ := forest.ByName("n_root" + suffix)
		buki, _ := forest.ByName("n_buki" + suffix)
		assert.Equal(t, []skeleton.BoneID{weaponRoot, buki}, node.Mesh.Joints)
		pos := node.Mesh.Vertices[0].Position
		assert.True(t, pos.ApproxEqual(mgl32.Vec3{1, 1, 0}), "%v", pos)
	}
	// the two weapons share one material
	assert.Len(t, s.Materials, 2)
}

func TestComposeCollectsErrors(t *testing.T) {
	brokenModel := "bg/ffxiv/fst_f1/common/bgparts/f1c1_b0_broken.mdl"
	c := newTestComposer(t, Options{}, nil)
	c.cache = cache.New(cache.NewMapLoader(map[string][]byte{
		brokenModel: []byte("materials: [bg/missing.mtrl]\nmeshes: []\n"),
	}), records.YAMLDecoder{}, cache.Options{Dir: t.TempDir()})

	s, err := c.Compose(context.Background(), []*records.Instance{
		{ID: 1, Type: records.InstanceBgPart, Path: brokenModel},
		{ID: 2, Type: records.InstanceLight, Light: &records.Light{Range: 5}},
		{ID: 3, Type: records.InstanceUnsupported},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Instance 1 (BgPart)")

	// the failed bg part keeps its node, the unsupported instance has none
	require.Len(t, s.Nodes, 2)
	assert.Equal(t, "BgPart_f1c1_b0_broken", s.Nodes[0].Name)
	assert.Empty(t, s.Nodes[0].Children)
	light := s.Nodes[1]
	assert.Equal(t, "Light_2", light.Name)
	assert.Equal(t, float32(5), light.Extras["Light"].(map[string]interface{})["Range"])
}

func TestComposeSharedGroup(t *testing.T) {
	var events []ProgressEvent
	c := newTestComposer(t, Options{}, func(ev ProgressEvent) { events = append(events, ev) })
	s, err := c.Compose(context.Background(), []*records.Instance{{
		ID:   10,
		Type: records.InstanceSharedGroup,
		Path: "bg/ffxiv/fst_f1/common/sgb/f1c1_sg_rocks.sgb",
		Children: []*records.Instance{
			{ID: 11, Type: records.InstanceBgPart, Path: rockModel},
			{ID: 12, Type: records.InstanceUnsupported},
			{ID: 13, Type: records.InstanceBgPart, Path: rockModel, Transform: translated(0, 0, 5)},
		},
	}})
	require.NoError(t, err)
	require.Len(t, s.Nodes, 1)

	group := s.Nodes[0]
	assert.Equal(t, "SharedGroup_f1c1_sg_rocks", group.Name)
	require.Len(t, group.Children, 2)
	assert.Equal(t, mgl32.Vec3{0, 0, 5}, group.Children[1].Transform.Translation)
	// identical materials are registered once
	assert.Len(t, s.Materials, 1)

	require.NotEmpty(t, events)
	assert.Equal(t, ProgressEvent{Name: "Export", Progress: 0, Total: 1}, events[0])
	assert.Equal(t, ProgressEvent{Name: "Export", Progress: 1, Total: 1}, events[len(events)-1])
	var children int
	for _, ev := range events {
		if ev.Child != nil {
			assert.Equal(t, "Shared Instance", ev.Name)
			assert.Equal(t, group.Name, ev.Child.Name)
			children++
		}
	}
	assert.Equal(t, 3, children)
}

func TestComposeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestComposer(t, Options{}, nil)
	s, err := c.Compose(ctx, []*records.Instance{{ID: 1, Type: records.InstanceBgPart, Path: rockModel}})
	require.NoError(t, err)
	assert.Empty(t, s.Nodes)
}

func TestRootNames(t *testing.T) {
	c := newTestComposer(t, Options{PlayerNameOverride: "  "}, nil)
	for _, tc := range []struct {
		inst *records.Instance
		name string
	}{
		{&records.Instance{ID: 3, Type: records.InstanceCharacter, Kind: "Pc", Name: "A B"}, "Character_Pc_A B"},
		{&records.Instance{ID: 4, Type: records.InstanceHousing, Path: "bgcommon/hou/indoor/general/0001/asset/fun_b0_m0001.sgb"}, "Housing_fun_b0_m0001"},
		{&records.Instance{ID: 5, Type: records.InstanceSharedGroup}, "SharedGroup_5"},
		{&records.Instance{ID: 6, Type: records.InstanceLight, Path: "ignored.lgb"}, "Light_6"},
	} {
		assert.Equal(t, tc.name, c.rootName(tc.inst))
	}

	unnamed := c.rootName(&records.Instance{Type: records.InstanceCharacter, Kind: "EventNpc"})
	assert.Regexp(t, `^Character_EventNpc_.+`, unnamed)
}
