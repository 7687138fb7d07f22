package utils

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const decomposeEpsilon = 1e-8

func IsFinite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

func Clamp01(f float32) float32 {
	if f < 0 || math32.IsNaN(f) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func LerpVec4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

// MulVec4 is a component-wise product.
func MulVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// DecomposeMatrix splits an affine matrix into translation, rotation and scale.
// Returns false for non-finite or singular input.
func DecomposeMatrix(m mgl32.Mat4) (translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3, ok bool) {
	for _, v := range m {
		if !IsFinite(v) {
			return translation, rotation, scale, false
		}
	}

	translation = m.Col(3).Vec3()
	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	for i := range cols {
		scale[i] = cols[i].Len()
		if scale[i] < decomposeEpsilon {
			return translation, rotation, scale, false
		}
	}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}

	var rot mgl32.Mat4
	for i := range cols {
		rot.SetCol(i, cols[i].Mul(1/scale[i]).Vec4(0))
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})

	rotation = mgl32.Mat4ToQuat(rot).Normalize()
	for _, v := range rotation.V {
		if !IsFinite(v) {
			return translation, rotation, scale, false
		}
	}
	return translation, rotation, scale, true
}
