package material

// Family selects the texture synthesizer for a shader package.
type Family int

const (
	FamilyGeneric Family = iota
	FamilyCharacter
	FamilyTattoo
	FamilyOcclusion
	FamilySkin
	FamilyHair
	FamilyIris
	FamilyBg
	FamilyBgColorChange
	FamilyLightshaft
)

var familyByShaderPackage = map[string]Family{
	"character.shpk":          FamilyCharacter,
	"characterlegacy.shpk":    FamilyCharacter,
	"charactertattoo.shpk":    FamilyTattoo,
	"characterocclusion.shpk": FamilyOcclusion,
	"skin.shpk":               FamilySkin,
	"hair.shpk":               FamilyHair,
	"iris.shpk":               FamilyIris,
	"bg.shpk":                 FamilyBg,
	"bgprop.shpk":             FamilyBg,
	"bgcolorchange.shpk":      FamilyBgColorChange,
	"lightshaft.shpk":         FamilyLightshaft,
}

func FamilyFor(shpkName string) Family {
	if f, ok := familyByShaderPackage[shpkName]; ok {
		return f
	}
	return FamilyGeneric
}

func (f Family) String() string {
	switch f {
	case FamilyCharacter:
		return "Character"
	case FamilyTattoo:
		return "Tattoo"
	case FamilyOcclusion:
		return "Occlusion"
	case FamilySkin:
		return "Skin"
	case FamilyHair:
		return "Hair"
	case FamilyIris:
		return "Iris"
	case FamilyBg:
		return "Bg"
	case FamilyBgColorChange:
		return "BgColorChange"
	case FamilyLightshaft:
		return "Lightshaft"
	default:
		return "Generic"
	}
}
