package synth

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/records"
)

var genericChannels = map[records.TextureUsage]Channel{
	records.UsageDiffuse:      ChannelBaseColor,
	records.UsageColorMap0:    ChannelBaseColor,
	records.UsageColorMap1:    ChannelBaseColor,
	records.UsageColorMap:     ChannelBaseColor,
	records.UsageNormal:       ChannelNormal,
	records.UsageNormalMap0:   ChannelNormal,
	records.UsageNormalMap1:   ChannelNormal,
	records.UsageNormalMap:    ChannelNormal,
	records.UsageNormal2:      ChannelNormal,
	records.UsageMask:         ChannelSpecularFactor,
	records.UsageSpecular:     ChannelSpecularColor,
	records.UsageSpecularMap0: ChannelSpecularColor,
	records.UsageSpecularMap1: ChannelSpecularColor,
	records.UsageSpecularMap:  ChannelSpecularColor,
	records.UsageCatchlight:   ChannelEmissive,
}

// applyGeneric binds raw textures to channels without touching pixels.
func applyGeneric(in *Input, out *Output) {
	log := logger.Named("synth")
	d := in.Descriptor
	for _, usage := range d.TextureUsages() {
		channel, ok := genericChannels[usage]
		if !ok {
			continue
		}
		path, _ := d.TexturePath(usage)
		if strings.Contains(path.GamePath, "dummy_") {
			continue
		}
		if out.hasPending(channel) {
			continue
		}
		tex, ok, err := loadUsage(in, usage)
		if err != nil || !ok {
			log.Debug("Skipping texture", zap.Stringer("usage", usage),
				zap.String("path", path.FullPath), zap.Error(err))
			continue
		}
		out.raw(channel, path.GamePath, tex)
	}
	if out.hasPending(ChannelEmissive) {
		out.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	}
}

func (o *Output) hasPending(channel Channel) bool {
	for _, p := range o.pending {
		if p.channel == channel {
			return true
		}
	}
	return false
}

func synthesizeGeneric(in *Input) (*Output, error) {
	d := in.Descriptor
	out := newOutput(d)
	applyGeneric(in, out)
	out.VertexPaint = true
	if threshold := d.ConstantFloatOrDefault(records.ConstAlphaThreshold, 0); threshold > 0 {
		out.alphaMask(threshold)
	}
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}

func synthesizeOcclusion(in *Input) (*Output, error) {
	d := in.Descriptor
	ior, err := d.ConstantFloatOrError(records.ConstGlassIOR)
	if err != nil {
		return nil, err
	}
	out := newOutput(d)
	applyGeneric(in, out)
	out.IOR = ior
	out.BaseColorFactor = mgl32.Vec4{1, 1, 1, 0}
	out.alphaBlend(0.5)
	if err := out.flush(in.Resources); err != nil {
		return nil, err
	}
	return out, nil
}
