// Package texture holds floating point RGBA buffers used while synthesizing material channels.
package texture

import (
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/anthonynsimon/bild/transform"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"

	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/utils"
)

type Size struct {
	Width  int
	Height int
}

// MaxSize returns the per-axis maximum of sizes.
func MaxSize(sizes ...Size) Size {
	var s Size
	for _, o := range sizes {
		if o.Width > s.Width {
			s.Width = o.Width
		}
		if o.Height > s.Height {
			s.Height = o.Height
		}
	}
	return s
}

// Iterate calls fn for every pixel, splitting rows between goroutines.
// fn must only write to pixels at (x, y).
func Iterate(width, height int, fn func(x, y int)) {
	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				fn(x, y)
			}
		}
	})
}

// Texture is a row-major buffer of straight alpha RGBA values in 0..1 range.
type Texture struct {
	Width  int
	Height int
	Pix    []mgl32.Vec4
}

func New(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pix:    make([]mgl32.Vec4, width*height),
	}
}

func NewFilled(width, height int, c mgl32.Vec4) *Texture {
	t := New(width, height)
	for i := range t.Pix {
		t.Pix[i] = c
	}
	return t
}

func FromImage(img image.Image) *Texture {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	t := New(b.Dx(), b.Dy())
	Iterate(t.Width, t.Height, func(x, y int) {
		c := nrgba.NRGBAAt(x, y)
		t.Pix[y*t.Width+x] = mgl32.Vec4(utils.ColorFloatFrom(c))
	})
	return t
}

// FromRecord converts one layer of a decoded texture.
func FromRecord(rec *records.Texture, layer int) (*Texture, error) {
	if layer < 0 || layer >= len(rec.Layers) {
		return nil, errors.Errorf("Layer %d out of range for %q with %d layers", layer, rec.Path, len(rec.Layers))
	}
	return FromImage(rec.Layers[layer]), nil
}

func (t *Texture) Size() Size {
	return Size{Width: t.Width, Height: t.Height}
}

func (t *Texture) At(x, y int) mgl32.Vec4 {
	return t.Pix[y*t.Width+x]
}

func (t *Texture) Set(x, y int, c mgl32.Vec4) {
	t.Pix[y*t.Width+x] = c
}

// Sample reads the nearest pixel for uv coordinates, wrapping outside of 0..1.
func (t *Texture) Sample(u, v float32) mgl32.Vec4 {
	x := wrap(int(math32.Floor(u*float32(t.Width))), t.Width)
	y := wrap(int(math32.Floor(v*float32(t.Height))), t.Height)
	return t.At(x, y)
}

func wrap(v, size int) int {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

func (t *Texture) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	Iterate(t.Width, t.Height, func(x, y int) {
		img.SetNRGBA(x, y, utils.ColorFloat(t.At(x, y)).NRGBA())
	})
	return img
}

// Resize returns the texture scaled to the given size. Upscaling uses Catmull-Rom,
// downscaling is bilinear. The receiver is returned when the size already matches.
func (t *Texture) Resize(width, height int) *Texture {
	if t.Width == width && t.Height == height {
		return t
	}
	src := t.Image()
	if width <= t.Width && height <= t.Height {
		return FromImage(transform.Resize(src, width, height, transform.Linear))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return FromImage(dst)
}

func (t *Texture) Clone() *Texture {
	c := &Texture{Width: t.Width, Height: t.Height, Pix: make([]mgl32.Vec4, len(t.Pix))}
	copy(c.Pix, t.Pix)
	return c
}
