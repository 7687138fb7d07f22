// Package synth bakes shader family specific texture logic into PBR channel textures.
package synth

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_composer/material"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/texture"
)

var ErrMissingTexture = errors.New("missing texture")

type Channel string

const (
	ChannelBaseColor         Channel = "diffuse"
	ChannelNormal            Channel = "normal"
	ChannelMetallicRoughness Channel = "metallicRoughness"
	ChannelOcclusion         Channel = "occlusion"
	ChannelEmissive          Channel = "emissive"
	ChannelSpecularColor     Channel = "specularColor"
	ChannelSpecularFactor    Channel = "specular"
	ChannelVolumeThickness   Channel = "sss"
)

type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

const (
	SphereArrayPath = "chara/common/texture/sphere_d_array.tex"
	DetailDiffuseArrayPath = "bgcommon/nature/detail/texture/detail_d_array.tex"
	DetailNormalArrayPath  = "bgcommon/nature/detail/texture/detail_n_array.tex"
)

// Resources is what synthesizers need from the resource cache.
type Resources interface {
	// Texture returns an error wrapping records.ErrNotFound when the file does not exist.
	Texture(path records.TexturePath) (*records.Texture, error)
	// ArrayTexture loads shared array textures once per process.
	ArrayTexture(path string) (*records.Texture, error)
	CacheTexture(tex *texture.Texture, name string) (*texture.Cached, error)
}

type Input struct {
	Descriptor *material.Descriptor
	Resources  Resources
	// required by the character family
	Blender records.RowPairBlender
	// also cache unmodified background layers
	DebugLayers bool
	TextureMode TextureMode
}

type Output struct {
	Name            string
	BaseColorFactor mgl32.Vec4
	MetallicFactor  float32
	RoughnessFactor float32
	EmissiveFactor  mgl32.Vec3
	AlphaMode       AlphaMode
	AlphaCutoff     float32
	DoubleSided     bool
	IOR             float32
	SpecularFactor  float32
	VolumeThickness float32
	VertexPaint     bool
	Textures        map[Channel]*texture.Cached
	Extras          map[string]interface{}

	pending []pendingTexture
}

type pendingTexture struct {
	channel Channel
	name    string
	tex     *texture.Texture
}

func newOutput(d *material.Descriptor) *Output {
	return &Output{
		Name:            d.MaterialName(),
		BaseColorFactor: mgl32.Vec4{1, 1, 1, 1},
		MetallicFactor:  0,
		RoughnessFactor: 1,
		IOR:             1,
		DoubleSided:     d.RenderBackfaces(),
		Textures:        make(map[Channel]*texture.Cached),
		Extras:          d.Extras(),
	}
}

// computed queues a synthesized texture under Computed/{ComputedTextureName(channel)}.
func (o *Output) computed(d *material.Descriptor, channel Channel, tex *texture.Texture) {
	o.pending = append(o.pending, pendingTexture{
		channel: channel,
		name:    "Computed/" + d.ComputedTextureName(string(channel)),
		tex:     tex,
	})
}

func (o *Output) raw(channel Channel, name string, tex *texture.Texture) {
	o.pending = append(o.pending, pendingTexture{channel: channel, name: name, tex: tex})
}

// flush writes queued textures. Nothing is written before every input was validated.
func (o *Output) flush(res Resources) error {
	written := make(map[string]*texture.Cached)
	for _, p := range o.pending {
		cached, ok := written[p.name]
		if !ok {
			var err error
			cached, err = res.CacheTexture(p.tex, p.name)
			if err != nil {
				return errors.Wrapf(err, "Failed to cache texture %q", p.name)
			}
			written[p.name] = cached
		}
		if p.channel != "" {
			o.Textures[p.channel] = cached
		}
	}
	o.pending = nil
	return nil
}

func (o *Output) alphaMask(cutoff float32) {
	o.AlphaMode = AlphaMask
	o.AlphaCutoff = cutoff
}

func (o *Output) alphaBlend(cutoff float32) {
	o.AlphaMode = AlphaBlend
	o.AlphaCutoff = cutoff
}

type Synthesizer interface {
	Synthesize(in *Input) (*Output, error)
}

type SynthesizerFunc func(in *Input) (*Output, error)

func (f SynthesizerFunc) Synthesize(in *Input) (*Output, error) {
	return f(in)
}

func For(family material.Family) Synthesizer {
	switch family {
	case material.FamilyCharacter:
		return SynthesizerFunc(synthesizeCharacter)
	case material.FamilyTattoo:
		return SynthesizerFunc(synthesizeTattoo)
	case material.FamilyOcclusion:
		return SynthesizerFunc(synthesizeOcclusion)
	case material.FamilySkin:
		return SynthesizerFunc(synthesizeSkin)
	case material.FamilyHair:
		return SynthesizerFunc(synthesizeHair)
	case material.FamilyIris:
		return SynthesizerFunc(synthesizeIris)
	case material.FamilyBg, material.FamilyBgColorChange:
		return SynthesizerFunc(synthesizeBg)
	case material.FamilyLightshaft:
		return SynthesizerFunc(synthesizeLightshaft)
	default:
		return SynthesizerFunc(synthesizeGeneric)
	}
}

// Synthesize dispatches on the descriptor family. In raw mode baked families keep
// their source textures.
func Synthesize(in *Input) (*Output, error) {
	s := For(in.Descriptor.Family())
	if in.TextureMode == TextureRaw && bakedFamilies[in.Descriptor.Family()] {
		s = SynthesizerFunc(synthesizeRaw)
	}
	out, err := s.Synthesize(in)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to synthesize %q (%s)", in.Descriptor.MtrlPath, in.Descriptor.ShpkName)
	}
	return out, nil
}

func loadUsage(in *Input, usage records.TextureUsage) (*texture.Texture, bool, error) {
	path, ok := in.Descriptor.TexturePath(usage)
	if !ok {
		return nil, false, nil
	}
	rec, err := in.Resources.Texture(path)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "Failed to load %v %q", usage, path.FullPath)
	}
	tex, err := texture.FromRecord(rec, 0)
	if err != nil {
		return nil, false, err
	}
	return tex, true, nil
}

func requireUsage(in *Input, usage records.TextureUsage) (*texture.Texture, error) {
	tex, ok, err := loadUsage(in, usage)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrMissingTexture, "%v", usage)
	}
	return tex, nil
}

// requireUsages loads every usage before anything is computed.
func requireUsages(in *Input, usages ...records.TextureUsage) ([]*texture.Texture, error) {
	result := make([]*texture.Texture, len(usages))
	for i, usage := range usages {
		tex, err := requireUsage(in, usage)
		if err != nil {
			return nil, err
		}
		result[i] = tex
	}
	return result, nil
}

// optionalUsage returns a texture filled with def when the usage is absent.
func optionalUsage(in *Input, usage records.TextureUsage, size texture.Size, def mgl32.Vec4) (*texture.Texture, error) {
	tex, ok, err := loadUsage(in, usage)
	if err != nil {
		return nil, err
	}
	if !ok {
		return texture.NewFilled(size.Width, size.Height, def), nil
	}
	return tex.Resize(size.Width, size.Height), nil
}

func arrayLayer(in *Input, path string, layer int) (*texture.Texture, error) {
	rec, err := in.Resources.ArrayTexture(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load array texture %q", path)
	}
	return texture.FromRecord(rec, layer)
}

var white = mgl32.Vec4{1, 1, 1, 1}

func flatten(normal mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{normal[0], normal[1], 1, 1}
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
