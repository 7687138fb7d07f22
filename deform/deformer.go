package deform

import (
	"github.com/go-gl/mathgl/mgl32"
)

// BoneLookup exposes the bone hierarchy deformations fall back through.
type BoneLookup interface {
	ParentBone(name string) (string, bool)
}

type RaceDeformer struct {
	Pbd   *Pbd
	bones BoneLookup
}

func New(pbd *Pbd, bones BoneLookup) *RaceDeformer {
	return &RaceDeformer{Pbd: pbd, bones: bones}
}

// Resolve returns the deformation of bone, inheriting from the closest parent
// the deformer knows. Bones without a known ancestor are not deformed.
func (r *RaceDeformer) Resolve(d *Deformer, bone string) Matrix {
	for depth := 0; depth < 1024; depth++ {
		if m, ok := d.Matrix(bone); ok {
			return m
		}
		parent, ok := r.bones.ParentBone(bone)
		if !ok {
			break
		}
		bone = parent
	}
	return IdentityMatrix()
}

func TransformCoordinate(v mgl32.Vec3, m Matrix) mgl32.Vec3 {
	return mgl32.Vec3{
		v[0]*m[0][0] + v[1]*m[0][1] + v[2]*m[0][2] + m[0][3],
		v[0]*m[1][0] + v[1]*m[1][1] + v[2]*m[1][2] + m[1][3],
		v[0]*m[2][0] + v[1]*m[2][1] + v[2]*m[2][2] + m[2][3],
	}
}

// DeformVertex applies every step of chain to pos, blending the bone matrices by weight.
func (r *RaceDeformer) DeformVertex(chain []*Deformer, pos mgl32.Vec3, boneNames []string, weights []float32) mgl32.Vec3 {
	for _, step := range chain {
		var deformed mgl32.Vec3
		for i, weight := range weights {
			if weight == 0 || i >= len(boneNames) {
				continue
			}
			m := r.Resolve(step, boneNames[i])
			deformed = deformed.Add(TransformCoordinate(pos, m).Mul(weight))
		}
		pos = deformed
	}
	return pos
}
