package utils

import "testing"

var hashTests = []struct {
	in_str  string
	out_crc uint32
}{
	{"", 0x0},
	{"a", 984961486},
	{"g_AlphaThreshold", 0x29AC0223},
	{"g_SamplerNormal", 0x0C5EC1F1},
	{"g_SphereMapIndex", 0x074953E9},
	{"chara/human/c0101/obj/body/b0001/texture", 1185458654},
	{"bgcommon/hou/indoor", 3362618304},
}

func TestGameCrc32(t *testing.T) {
	for _, test := range hashTests {
		result := GameCrc32(test.in_str)
		if result != test.out_crc {
			t.Errorf("GameCrc32(%q)=%#x; expected %#x", test.in_str, result, test.out_crc)
		}
	}
}
