package records

import "github.com/go-gl/mathgl/mgl32"

// CustomizeParameter holds the character creator colours. Colours are squared RGB.
type CustomizeParameter struct {
	SkinColor             mgl32.Vec3 `yaml:"skin_color"`
	MuscleTone            float32    `yaml:"muscle_tone"`
	SkinFresnelValue0     mgl32.Vec4 `yaml:"skin_fresnel_value0"`
	LipColor              mgl32.Vec4 `yaml:"lip_color"` // w is lip opacity
	MainColor             mgl32.Vec3 `yaml:"main_color"`
	FacePaintUVMultiplier float32    `yaml:"face_paint_uv_multiplier"`
	HairFresnelValue0     mgl32.Vec3 `yaml:"hair_fresnel_value0"`
	MeshColor             mgl32.Vec3 `yaml:"mesh_color"`
	FacePaintUVOffset     float32    `yaml:"face_paint_uv_offset"`
	LeftColor             mgl32.Vec4 `yaml:"left_color"`  // w is limbal ring intensity
	RightColor            mgl32.Vec4 `yaml:"right_color"` // w is limbal ring intensity
	OptionColor           mgl32.Vec3 `yaml:"option_color"`
}

type CustomizeData struct {
	LipStick   bool `yaml:"lipstick"`
	Highlights bool `yaml:"highlights"`
}
