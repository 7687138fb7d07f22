package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_composer/mesh"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/skeleton"
	"github.com/mogaika/scene_composer/synth"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils/gltfutils"
)

func writePng(t *testing.T, path string) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func translated(x, y, z float32) records.Transform {
	t := records.IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

func triangle() []records.Vertex {
	v := make([]records.Vertex, 3)
	v[0].Position = mgl32.Vec3{0, 0, 0}
	v[1].Position = mgl32.Vec3{1, 0, 0}
	v[2].Position = mgl32.Vec3{0, 1, 0}
	for i := range v {
		v[i].Normal = mgl32.Vec3{0, 0, 1}
		v[i].BlendIndices[0] = 1
		v[i].BlendWeights[0] = 1
	}
	return v
}

func testScene(t *testing.T) *Scene {
	texPath := filepath.Join(t.TempDir(), "Computed", "body_diffuse.png")
	writePng(t, texPath)

	s := New()
	matIdx := s.AddMaterial(&Material{
		Name: "mt_body_a_skin.shpk",
		Output: &synth.Output{
			Name:            "mt_body_a_skin.shpk",
			BaseColorFactor: mgl32.Vec4{1, 1, 1, 1},
			RoughnessFactor: 1,
			AlphaMode:       synth.AlphaMask,
			AlphaCutoff:     0.5,
			IOR:             1.2,
			Textures: map[synth.Channel]*texture.Cached{
				synth.ChannelBaseColor:       {Name: "Computed/body_diffuse", Path: texPath},
				synth.ChannelVolumeThickness: {Name: "Computed/body_diffuse", Path: texPath},
			},
			Extras: map[string]interface{}{"ShaderPackage": "skin.shpk"},
		},
	})

	forest := &skeleton.Forest{}
	root := forest.AddBone("n_root", skeleton.NoBone, records.IdentityTransform())
	forest.AddBone("j_kosi", root, translated(0, 1, 0))
	skin := &Skin{Name: "Character_Player_Test", Forest: forest}

	character := NewNode("Character_Player_Test", translated(5, 0, 0))
	character.Skeleton = skin
	character.AddChild(&Node{
		Name:      "c0101b0001_top_0_mt_body_a",
		Transform: records.IdentityTransform(),
		Mesh: &mesh.Mesh{
			Name:          "c0101b0001_top_0_mt_body_a",
			MaterialIndex: matIdx,
			Vertices:      triangle(),
			Indices:       []uint32{0, 1, 2},
			Joints:        []skeleton.BoneID{root, 1},
			Targets: []mesh.MorphTarget{{
				Name:           "shp_a",
				PositionDeltas: []mgl32.Vec3{{0, 0, 1}, {}, {}},
			}},
			MorphWeights: []float32{1},
		},
		Skin: skin,
	})
	s.AddNode(character)
	return s
}

func TestAddMaterialDeduplicatesByName(t *testing.T) {
	s := New()
	a := s.AddMaterial(&Material{Name: "a"})
	b := s.AddMaterial(&Material{Name: "b"})
	again := s.AddMaterial(&Material{Name: "a"})
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, a, again)
	assert.Len(t, s.Materials, 2)
}

func TestFindAndWalk(t *testing.T) {
	s := testScene(t)
	require.NotNil(t, s.Find("c0101b0001_top_0_mt_body_a"))
	assert.Nil(t, s.Find("missing"))

	depths := make(map[string]int)
	s.Walk(func(n *Node, depth int) { depths[n.Name] = depth })
	assert.Equal(t, map[string]int{
		"Character_Player_Test":      0,
		"c0101b0001_top_0_mt_body_a": 1,
	}, depths)
}

func TestExportGLTF(t *testing.T) {
	doc, err := testScene(t).ExportGLTF()
	require.NoError(t, err)

	// character, two bones, mesh node
	require.Len(t, doc.Nodes, 4)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
	assert.Equal(t, "Character_Player_Test", doc.Nodes[0].Name)
	assert.Equal(t, [3]float32{5, 0, 0}, doc.Nodes[0].Translation)
	assert.Equal(t, []uint32{1, 3}, doc.Nodes[0].Children)
	assert.Equal(t, "n_root", doc.Nodes[1].Name)
	assert.Equal(t, []uint32{2}, doc.Nodes[1].Children)

	require.Len(t, doc.Skins, 1)
	assert.Equal(t, []uint32{1, 2}, doc.Skins[0].Joints)
	require.NotNil(t, doc.Skins[0].InverseBindMatrices)

	meshNode := doc.Nodes[3]
	require.NotNil(t, meshNode.Mesh)
	require.NotNil(t, meshNode.Skin)
	assert.Equal(t, uint32(0), *meshNode.Skin)

	require.Len(t, doc.Meshes, 1)
	primitive := doc.Meshes[0].Primitives[0]
	assert.Contains(t, primitive.Attributes, "JOINTS_0")
	assert.Contains(t, primitive.Attributes, "WEIGHTS_0")
	assert.NotContains(t, primitive.Attributes, "JOINTS_1")
	assert.Len(t, primitive.Targets, 1)
	assert.Equal(t, []float32{1}, doc.Meshes[0].Weights)
	require.NotNil(t, primitive.Material)

	// both channels share one cached file
	assert.Len(t, doc.Images, 1)
	assert.Len(t, doc.Textures, 1)

	require.Len(t, doc.Materials, 1)
	mat := doc.Materials[0]
	require.NotNil(t, mat.PBRMetallicRoughness.BaseColorTexture)
	require.NotNil(t, mat.AlphaCutoff)
	assert.Equal(t, float32(0.5), *mat.AlphaCutoff)
	extras := mat.Extras.(map[string]interface{})
	assert.Equal(t, float32(1.2), extras["ior"])
	assert.Equal(t, "skin.shpk", extras["ShaderPackage"])
	assert.Contains(t, extras["textures"], "sss")
}

func TestExportBinary(t *testing.T) {
	doc, err := testScene(t).ExportGLTF()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gltfutils.ExportBinary(&buf, doc))
	require.Greater(t, buf.Len(), 12)
	assert.Equal(t, []byte("glTF"), buf.Bytes()[:4])
}

func TestExportSkinWithoutSkeletonFails(t *testing.T) {
	s := testScene(t)
	s.Nodes[0].Skeleton = nil
	_, err := s.ExportGLTF()
	require.Error(t, err)
}
