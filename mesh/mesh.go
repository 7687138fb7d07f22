// Package mesh turns decoded models into skinned or rigid scene meshes.
package mesh

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/deform"
	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/skeleton"
)

type BoneLookup interface {
	Lookup(name string) (skeleton.BoneID, bool)
}

type MaterialRef struct {
	Index int
	Name  string
}

// DeformContext converts vertices between body types before skinning.
type DeformContext struct {
	Deformer *deform.RaceDeformer
	Chain    []*deform.Deformer
}

type MorphTarget struct {
	Name           string
	PositionDeltas []mgl32.Vec3
}

type Mesh struct {
	Name          string
	MaterialIndex int
	Vertices      []records.Vertex
	Indices       []uint32
	// blend indices of vertices point into Joints
	Joints       []skeleton.BoneID
	Targets      []MorphTarget
	MorphWeights []float32
	Attributes   []string
}

func (m *Mesh) Skinned() bool {
	return len(m.Joints) != 0
}

// RemapJoints rewrites joint ids, used after the owning forest was grafted elsewhere.
func (m *Mesh) RemapJoints(remap func(skeleton.BoneID) (skeleton.BoneID, bool)) error {
	for i, id := range m.Joints {
		mapped, ok := remap(id)
		if !ok {
			return errors.Errorf("Joint %d of %q has no mapping", id, m.Name)
		}
		m.Joints[i] = mapped
	}
	return nil
}

// ApplyMatrix moves the mesh into another space. Normals and shape deltas only take
// the linear part.
func (m *Mesh) ApplyMatrix(mat mgl32.Mat4) {
	normalMat := mat.Mat3().Inv().Transpose()
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mgl32.TransformCoordinate(v.Position, mat)
		if n := normalMat.Mul3x1(v.Normal); n.Len() > 0 {
			v.Normal = n.Normalize()
		}
	}
	for t := range m.Targets {
		deltas := m.Targets[t].PositionDeltas
		for i := range deltas {
			deltas[i] = mgl32.TransformNormal(deltas[i], mat)
		}
	}
}

func baseName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func enabledSet(mask uint64, masks []records.NamedMask) map[string]bool {
	set := make(map[string]bool)
	for _, name := range records.EnabledValues(mask, masks) {
		set[name] = true
	}
	return set
}

func deformVertices(m *records.Mesh, dc *DeformContext) []records.Vertex {
	vertices := make([]records.Vertex, len(m.Vertices))
	copy(vertices, m.Vertices)
	if dc == nil || dc.Deformer == nil || len(dc.Chain) == 0 || len(m.BoneTable) == 0 {
		return vertices
	}

	names := make([]string, records.MAX_BLEND_INFLUENCES)
	weights := make([]float32, records.MAX_BLEND_INFLUENCES)
	for i := range vertices {
		v := &vertices[i]
		for j := 0; j < records.MAX_BLEND_INFLUENCES; j++ {
			names[j] = ""
			weights[j] = v.BlendWeights[j]
			if idx := int(v.BlendIndices[j]); idx < len(m.BoneTable) {
				names[j] = m.BoneTable[idx]
			} else {
				weights[j] = 0
			}
		}
		v.Position = dc.Deformer.DeformVertex(dc.Chain, v.Position, names, weights)
	}
	return vertices
}

type indexRange struct {
	offset, count int
	attributes    []string
	name          string
}

// Build produces one mesh per submesh, or one per model mesh without submeshes.
// Submeshes with any disabled attribute are left out.
func Build(model *records.Model, materials []MaterialRef, bones BoneLookup, dc *DeformContext) ([]*Mesh, error) {
	log := logger.Named("mesh")
	modelName := baseName(model.Path)

	var enabledShapes, enabledAttributes map[string]bool
	if sa := model.ShapeAttributes; sa != nil {
		enabledShapes = enabledSet(sa.EnabledShapeMask, sa.ShapeMasks)
		enabledAttributes = enabledSet(sa.EnabledAttributeMask, sa.AttributeMasks)
	}

	var result []*Mesh
	for meshIdx := range model.Meshes {
		m := &model.Meshes[meshIdx]
		if m.MaterialIndex < 0 || m.MaterialIndex >= len(materials) {
			return nil, errors.Errorf("Material index %d out of range in %q", m.MaterialIndex, model.Path)
		}
		material := materials[m.MaterialIndex]

		var joints []skeleton.BoneID
		if len(m.BoneTable) != 0 {
			joints = make([]skeleton.BoneID, len(m.BoneTable))
			for i, name := range m.BoneTable {
				id, ok := bones.Lookup(name)
				if !ok {
					return nil, errors.Errorf("Bone %q on %q not found in bone map", name, model.Path)
				}
				joints[i] = id
			}
		}

		vertices := deformVertices(m, dc)

		var ranges []indexRange
		if len(m.Submeshes) == 0 {
			ranges = append(ranges, indexRange{
				offset: 0,
				count:  len(m.Indices),
				name:   fmt.Sprintf("%s_%d_%s", modelName, meshIdx, material.Name),
			})
		}
		for i, sub := range m.Submeshes {
			name := fmt.Sprintf("%s_%d_%s.%d", modelName, meshIdx, material.Name, i)
			if len(sub.Attributes) != 0 {
				name += ";" + strings.Join(sub.Attributes, ";")
			}
			ranges = append(ranges, indexRange{
				offset:     sub.IndexOffset,
				count:      sub.IndexCount,
				attributes: sub.Attributes,
				name:       name,
			})
		}

		for _, r := range ranges {
			if r.offset < 0 || r.count < 0 || r.offset+r.count > len(m.Indices) {
				return nil, errors.Errorf("Submesh %q index range %d+%d out of bounds (%d)",
					r.name, r.offset, r.count, len(m.Indices))
			}
			if enabledAttributes != nil && !allEnabled(r.attributes, enabledAttributes) {
				log.Debug("Skipping submesh with disabled attributes", zap.String("submesh", r.name))
				continue
			}
			out, err := buildRange(model, meshIdx, m, vertices, r, enabledShapes)
			if err != nil {
				return nil, err
			}
			out.MaterialIndex = material.Index
			out.Joints = append([]skeleton.BoneID(nil), joints...)
			result = append(result, out)
		}
	}
	return result, nil
}

func allEnabled(attributes []string, enabled map[string]bool) bool {
	for _, a := range attributes {
		if !enabled[a] {
			return false
		}
	}
	return true
}

func buildRange(model *records.Model, meshIdx int, m *records.Mesh, vertices []records.Vertex, r indexRange, enabledShapes map[string]bool) (*Mesh, error) {
	out := &Mesh{
		Name:       r.name,
		Indices:    make([]uint32, r.count),
		Attributes: r.attributes,
	}

	remap := make(map[uint32]uint32)
	for i := 0; i < r.count; i++ {
		src := m.Indices[r.offset+i]
		if int(src) >= len(vertices) {
			return nil, errors.Errorf("Index %d out of range in %q", src, r.name)
		}
		dst, ok := remap[src]
		if !ok {
			dst = uint32(len(out.Vertices))
			remap[src] = dst
			out.Vertices = append(out.Vertices, vertices[src])
		}
		out.Indices[i] = dst
	}

	for _, shape := range model.Shapes {
		var deltas []mgl32.Vec3
		for _, sm := range shape.Meshes {
			if sm.MeshIndex != meshIdx {
				continue
			}
			for _, value := range sm.Values {
				if value.BaseIndex < r.offset || value.BaseIndex >= r.offset+r.count {
					continue
				}
				if value.ReplacingVertex < 0 || value.ReplacingVertex >= len(vertices) {
					return nil, errors.Errorf("Shape %q replacing vertex %d out of range", shape.Name, value.ReplacingVertex)
				}
				src := m.Indices[value.BaseIndex]
				if deltas == nil {
					deltas = make([]mgl32.Vec3, len(out.Vertices))
				}
				deltas[remap[src]] = vertices[value.ReplacingVertex].Position.Sub(vertices[src].Position)
			}
		}
		if deltas == nil {
			continue
		}
		weight := float32(0)
		if enabledShapes == nil || enabledShapes[shape.Name] {
			weight = 1
		}
		out.Targets = append(out.Targets, MorphTarget{Name: shape.Name, PositionDeltas: deltas})
		out.MorphWeights = append(out.MorphWeights, weight)
	}
	return out, nil
}

// EnsureBonesExist adds bones referenced by the model but missing in the forest
// under its preferred root.
func EnsureBonesExist(model *records.Model, forest *skeleton.Forest) error {
	log := logger.Named("mesh")
	for _, m := range model.Meshes {
		for _, name := range m.BoneTable {
			if _, ok := forest.ByName(name); ok {
				continue
			}
			root, err := forest.PreferredRoot()
			if err != nil {
				return errors.Wrapf(err, "Failed to add bone %q for %q", name, model.Path)
			}
			log.Debug("Adding missing bone", zap.String("bone", name), zap.String("model", model.Path))
			forest.AddBone(name, root, records.IdentityTransform())
		}
	}
	return nil
}
