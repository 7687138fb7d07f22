package records

import "github.com/go-gl/mathgl/mgl32"

const ColorTableRows = 32

type ColorTableRow struct {
	Diffuse          mgl32.Vec3 `yaml:"diffuse"`
	Specular         mgl32.Vec3 `yaml:"specular"`
	Emissive         mgl32.Vec3 `yaml:"emissive"`
	MaterialRepeat   mgl32.Vec2 `yaml:"material_repeat"`
	MaterialSkew     mgl32.Vec2 `yaml:"material_skew"`
	SpecularStrength float32    `yaml:"specular_strength"`
	GlossStrength    float32    `yaml:"gloss_strength"`
	TileIndex        uint16     `yaml:"tile_index"`
}

type DyeRow struct {
	Template         uint16 `yaml:"template"`
	Diffuse          bool   `yaml:"diffuse"`
	Specular         bool   `yaml:"specular"`
	Emissive         bool   `yaml:"emissive"`
	Gloss            bool   `yaml:"gloss"`
	SpecularStrength bool   `yaml:"specular_strength"`
}

type ColorTable struct {
	Rows     [ColorTableRows]ColorTableRow `yaml:"rows"`
	DyeTable *[ColorTableRows]DyeRow       `yaml:"dye_table,omitempty"`
}

// RowPairBlender resolves the colour table row for a pixel of the index texture.
// The packing of index and weight into the texture differs between game versions,
// so implementations live outside of this module.
type RowPairBlender interface {
	BlendRowPair(table *ColorTable, index, weight uint8) ColorTableRow
}

// LerpRows linearly interpolates every blendable value of two rows.
func LerpRows(a, b *ColorTableRow, t float32) ColorTableRow {
	lerp3 := func(x, y mgl32.Vec3) mgl32.Vec3 { return x.Add(y.Sub(x).Mul(t)) }
	lerp2 := func(x, y mgl32.Vec2) mgl32.Vec2 { return x.Add(y.Sub(x).Mul(t)) }
	r := ColorTableRow{
		Diffuse:          lerp3(a.Diffuse, b.Diffuse),
		Specular:         lerp3(a.Specular, b.Specular),
		Emissive:         lerp3(a.Emissive, b.Emissive),
		MaterialRepeat:   lerp2(a.MaterialRepeat, b.MaterialRepeat),
		MaterialSkew:     lerp2(a.MaterialSkew, b.MaterialSkew),
		SpecularStrength: a.SpecularStrength + (b.SpecularStrength-a.SpecularStrength)*t,
		GlossStrength:    a.GlossStrength + (b.GlossStrength-a.GlossStrength)*t,
		TileIndex:        a.TileIndex,
	}
	if t >= 0.5 {
		r.TileIndex = b.TileIndex
	}
	return r
}

// PairRowBlender handles 32 row tables: the index channel selects a row pair
// in steps of 17 and the weight channel blends from the second row to the first.
type PairRowBlender struct{}

func (PairRowBlender) BlendRowPair(table *ColorTable, index, weight uint8) ColorTableRow {
	pair := (int(index) + 8) / 17
	if pair > ColorTableRows/2-1 {
		pair = ColorTableRows/2 - 1
	}
	a, b := &table.Rows[pair*2], &table.Rows[pair*2+1]
	return LerpRows(b, a, float32(weight)/255)
}
