package records

import "image"

// Texture is a decoded texture resource; array textures carry one image per layer.
type Texture struct {
	Path   string
	Layers []image.Image
}

func (t *Texture) Width() int {
	if len(t.Layers) == 0 {
		return 0
	}
	return t.Layers[0].Bounds().Dx()
}

func (t *Texture) Height() int {
	if len(t.Layers) == 0 {
		return 0
	}
	return t.Layers[0].Bounds().Dy()
}
