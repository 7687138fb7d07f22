package scene

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/scene_composer/mesh"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/skeleton"
	"github.com/mogaika/scene_composer/synth"
	"github.com/mogaika/scene_composer/utils/gltfutils"
)

type GLTFTextureExported struct {
	TextureIndex uint32
	ImageIndex   uint32
}

type GLTFSkinExported struct {
	SkinIndex  uint32
	JointNodes []uint32
}

type exporter struct {
	cacher    *gltfutils.GLTFCacher
	sampler   uint32
	materials []uint32
	skins     map[*Skin]*GLTFSkinExported
	meshNodes []meshNode
}

type meshNode struct {
	index uint32
	node  *Node
}

// ExportGLTF builds a document with one glTF node per scene node and per bone.
// Images are embedded from the mirrored png files.
func (s *Scene) ExportGLTF() (*gltf.Document, error) {
	e := &exporter{
		cacher: gltfutils.NewCacher(),
		skins:  make(map[*Skin]*GLTFSkinExported),
	}
	doc := e.cacher.Doc

	e.sampler = uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		MagFilter: gltf.MagLinear,
		MinFilter: gltf.MinLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})

	for _, m := range s.Materials {
		idx, err := e.exportMaterial(m)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to export material %q", m.Name)
		}
		e.materials = append(e.materials, idx)
	}

	for _, n := range s.Nodes {
		idx, err := e.exportNode(n)
		if err != nil {
			return nil, err
		}
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, idx)
	}

	// meshes go last, every skin they reference is complete by now
	for _, mn := range e.meshNodes {
		if err := e.exportMesh(mn); err != nil {
			return nil, errors.Wrapf(err, "Failed to export mesh %q", mn.node.Mesh.Name)
		}
	}
	return doc, nil
}

func transformNode(name string, t records.Transform) *gltf.Node {
	t = t.Normalized()
	q := t.Rotation
	return &gltf.Node{
		Name:        name,
		Translation: t.Translation,
		Rotation:    [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       t.Scale,
	}
}

func (e *exporter) addNode(n *gltf.Node) uint32 {
	doc := e.cacher.Doc
	idx := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, n)
	return idx
}

func (e *exporter) exportNode(n *Node) (uint32, error) {
	node := transformNode(n.Name, n.Transform)
	if len(n.Extras) != 0 {
		node.Extras = n.Extras
	}
	idx := e.addNode(node)

	if n.Skeleton != nil {
		roots, err := e.exportSkeleton(n.Skeleton)
		if err != nil {
			return 0, errors.Wrapf(err, "Failed to export skeleton of %q", n.Name)
		}
		node.Children = append(node.Children, roots...)
	}
	if n.Mesh != nil {
		e.meshNodes = append(e.meshNodes, meshNode{index: idx, node: n})
	}
	for _, c := range n.Children {
		cidx, err := e.exportNode(c)
		if err != nil {
			return 0, err
		}
		node.Children = append(node.Children, cidx)
	}
	return idx, nil
}

func (e *exporter) exportSkeleton(sk *Skin) ([]uint32, error) {
	if _, ok := e.skins[sk]; ok {
		return nil, errors.Errorf("Skeleton %q is exported twice", sk.Name)
	}
	doc := e.cacher.Doc
	f := sk.Forest

	gse := &GLTFSkinExported{JointNodes: make([]uint32, f.Len())}
	for i := range f.Nodes {
		gse.JointNodes[i] = e.addNode(transformNode(f.Nodes[i].Name, f.Nodes[i].Local))
	}
	for i := range f.Nodes {
		node := doc.Nodes[gse.JointNodes[i]]
		for _, c := range f.Nodes[i].Children {
			node.Children = append(node.Children, gse.JointNodes[c])
		}
	}

	inverseBind := make([][4][4]float32, f.Len())
	for i := range f.Nodes {
		inverseBind[i] = gltfutils.Mat4(f.BindMatrix(skeleton.BoneID(i)).Inv())
	}

	skin := &gltf.Skin{
		Name:                sk.Name,
		Joints:              gse.JointNodes,
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, inverseBind)),
	}
	gse.SkinIndex = uint32(len(doc.Skins))
	doc.Skins = append(doc.Skins, skin)
	e.skins[sk] = gse

	roots := make([]uint32, len(f.Roots))
	for i, r := range f.Roots {
		roots[i] = gse.JointNodes[r]
	}
	return roots, nil
}

func (e *exporter) exportTexture(name, path string) (*GLTFTextureExported, error) {
	v, err := e.cacher.GetCachedOr("texture:"+path, func() (interface{}, error) {
		doc := e.cacher.Doc
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read cached texture %q", path)
		}
		gte := &GLTFTextureExported{}
		gte.ImageIndex, err = modeler.WriteImage(doc, name, "image/png", bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to write gltf image")
		}
		gte.TextureIndex = uint32(len(doc.Textures))
		doc.Textures = append(doc.Textures, &gltf.Texture{
			Name:    name,
			Sampler: gltf.Index(e.sampler),
			Source:  gltf.Index(gte.ImageIndex),
		})
		return gte, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*GLTFTextureExported), nil
}

var alphaModes = map[synth.AlphaMode]gltf.AlphaMode{
	synth.AlphaOpaque: gltf.AlphaOpaque,
	synth.AlphaMask:   gltf.AlphaMask,
	synth.AlphaBlend:  gltf.AlphaBlend,
}

func (e *exporter) exportMaterial(m *Material) (uint32, error) {
	out := m.Output
	bc := [4]float32(out.BaseColorFactor)
	gm := &gltf.Material{
		Name:        m.Name,
		DoubleSided: out.DoubleSided,
		AlphaMode:   alphaModes[out.AlphaMode],
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &bc,
			MetallicFactor:  gltfutils.Float(out.MetallicFactor),
			RoughnessFactor: gltfutils.Float(out.RoughnessFactor),
		},
		EmissiveFactor: out.EmissiveFactor,
	}
	if out.AlphaMode == synth.AlphaMask {
		gm.AlphaCutoff = gltfutils.Float(out.AlphaCutoff)
	}

	extras := make(map[string]interface{}, len(out.Extras)+4)
	for k, v := range out.Extras {
		extras[k] = v
	}
	extras["ior"] = out.IOR
	extras["specularFactor"] = out.SpecularFactor
	extras["volumeThickness"] = out.VolumeThickness
	extras["vertexPaint"] = out.VertexPaint

	channels := make([]string, 0, len(out.Textures))
	for ch := range out.Textures {
		channels = append(channels, string(ch))
	}
	sort.Strings(channels)

	extraTextures := make(map[string]uint32)
	for _, name := range channels {
		ch := synth.Channel(name)
		cached := out.Textures[ch]
		gte, err := e.exportTexture(cached.Name, cached.Path)
		if err != nil {
			return 0, err
		}
		switch ch {
		case synth.ChannelBaseColor:
			gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: gte.TextureIndex}
		case synth.ChannelMetallicRoughness:
			gm.PBRMetallicRoughness.MetallicRoughnessTexture = &gltf.TextureInfo{Index: gte.TextureIndex}
		case synth.ChannelNormal:
			gm.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(gte.TextureIndex), Scale: gltfutils.Float(1)}
		case synth.ChannelOcclusion:
			gm.OcclusionTexture = &gltf.OcclusionTexture{Index: gltf.Index(gte.TextureIndex), Strength: gltfutils.Float(1)}
		case synth.ChannelEmissive:
			gm.EmissiveTexture = &gltf.TextureInfo{Index: gte.TextureIndex}
		default:
			extraTextures[name] = gte.TextureIndex
		}
	}
	if len(extraTextures) != 0 {
		extras["textures"] = extraTextures
	}
	gm.Extras = extras

	doc := e.cacher.Doc
	idx := uint32(len(doc.Materials))
	doc.Materials = append(doc.Materials, gm)
	return idx, nil
}

func (e *exporter) exportMesh(mn meshNode) error {
	doc := e.cacher.Doc
	m := mn.node.Mesh
	count := len(m.Vertices)

	positions := make([][3]float32, count)
	normals := make([][3]float32, count)
	uv0 := make([][2]float32, count)
	uv1 := make([][2]float32, count)
	colors := make([][4]uint8, count)
	for i, v := range m.Vertices {
		positions[i] = v.Position
		n := v.Normal
		if n.Len() > 0.5 {
			n = n.Normalize()
		}
		normals[i] = n
		uv0[i] = v.UV[0]
		uv1[i] = v.UV[1]
		for c := 0; c < 4; c++ {
			colors[i][c] = toByte(v.Color[c])
		}
	}

	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(doc, positions),
		"NORMAL":     modeler.WriteNormal(doc, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(doc, uv0),
		"TEXCOORD_1": modeler.WriteTextureCoord(doc, uv1),
		"COLOR_0":    modeler.WriteColor(doc, colors),
	}

	node := doc.Nodes[mn.index]
	if mn.node.Skin != nil && m.Skinned() {
		gse, ok := e.skins[mn.node.Skin]
		if !ok {
			return errors.Errorf("Skin %q has no skeleton node", mn.node.Skin.Name)
		}
		if err := writeSkinning(doc, m, attributes); err != nil {
			return err
		}
		node.Skin = gltf.Index(gse.SkinIndex)
	}

	primitive := &gltf.Primitive{
		Indices:    gltf.Index(modeler.WriteIndices(doc, m.Indices)),
		Attributes: attributes,
	}
	if m.MaterialIndex >= 0 && m.MaterialIndex < len(e.materials) {
		primitive.Material = gltf.Index(e.materials[m.MaterialIndex])
	}

	gmesh := &gltf.Mesh{
		Name:       m.Name,
		Primitives: []*gltf.Primitive{primitive},
	}
	if len(m.Targets) != 0 {
		names := make([]string, len(m.Targets))
		for i, target := range m.Targets {
			deltas := make([][3]float32, len(target.PositionDeltas))
			for j, d := range target.PositionDeltas {
				deltas[j] = d
			}
			primitive.Targets = append(primitive.Targets, map[string]uint32{
				"POSITION": modeler.WritePosition(doc, deltas),
			})
			names[i] = target.Name
		}
		gmesh.Weights = append([]float32(nil), m.MorphWeights...)
		gmesh.Extras = map[string]interface{}{"targetNames": names}
	}

	node.Mesh = gltf.Index(uint32(len(doc.Meshes)))
	doc.Meshes = append(doc.Meshes, gmesh)
	return nil
}

// writeSkinning maps blend indices through the mesh joint table into forest ids,
// which are also the joint order of the exported skin.
func writeSkinning(doc *gltf.Document, m *mesh.Mesh, attributes map[string]uint32) error {
	count := len(m.Vertices)
	joints := [2][][4]uint16{make([][4]uint16, count), make([][4]uint16, count)}
	weights := [2][][4]float32{make([][4]float32, count), make([][4]float32, count)}
	usesSecondSet := false

	for i, v := range m.Vertices {
		for k := 0; k < records.MAX_BLEND_INFLUENCES; k++ {
			w := v.BlendWeights[k]
			if w == 0 {
				continue
			}
			local := int(v.BlendIndices[k])
			if local >= len(m.Joints) {
				return errors.Errorf("Blend index %d out of range of %d joints", local, len(m.Joints))
			}
			set, slot := k/4, k%4
			joints[set][i][slot] = uint16(m.Joints[local])
			weights[set][i][slot] = w
			if set == 1 {
				usesSecondSet = true
			}
		}
	}

	sets := 1
	if usesSecondSet {
		sets = 2
	}
	for set := 0; set < sets; set++ {
		attributes[fmt.Sprintf("JOINTS_%d", set)] = modeler.WriteJoints(doc, joints[set])
		attributes[fmt.Sprintf("WEIGHTS_%d", set)] = modeler.WriteWeights(doc, weights[set])
	}
	return nil
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
