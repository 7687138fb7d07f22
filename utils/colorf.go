package utils

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorFloat is a straight (not premultiplied) RGBA colour in 0..1 range.
type ColorFloat mgl32.Vec4

func (c ColorFloat) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

func (c ColorFloat) NRGBA() color.NRGBA {
	const mf = 255
	return color.NRGBA{
		R: uint8(Clamp01(c[0])*mf + 0.5),
		G: uint8(Clamp01(c[1])*mf + 0.5),
		B: uint8(Clamp01(c[2])*mf + 0.5),
		A: uint8(Clamp01(c[3])*mf + 0.5),
	}
}

func ColorFloatFrom(c color.Color) ColorFloat {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return ColorFloat{float32(n.R) / 255, float32(n.G) / 255, float32(n.B) / 255, float32(n.A) / 255}
}
