package records

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/png"
	"strings"
	"unicode/utf8"

	_ "github.com/ftrvxmtrx/tga"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/encoding"
	"gopkg.in/yaml.v3"
)

// YAMLDecoder reads records that were dumped by an external parser as YAML documents.
// Textures are expected as regular png, tga or webp images; array textures
// ("_array" in the path) are stored as square layers stacked vertically.
type YAMLDecoder struct{}

func decodeYAML(path string, data []byte, v interface{}) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "Failed to unmarshal %q", path)
	}
	return nil
}

func (YAMLDecoder) DecodeModel(path string, data []byte) (*Model, error) {
	var m Model
	if err := decodeYAML(path, data, &m); err != nil {
		return nil, err
	}
	if m.Path == "" {
		m.Path = path
	}
	return &m, nil
}

func (YAMLDecoder) DecodeMaterial(path string, data []byte) (*Material, error) {
	var m Material
	if err := decodeYAML(path, data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (YAMLDecoder) DecodeShaderPackage(path string, data []byte) (*ShaderPackage, error) {
	var s ShaderPackage
	if err := decodeYAML(path, data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (YAMLDecoder) DecodeTexture(path string, data []byte) (*Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode texture %q", path)
	}
	tex := &Texture{Path: path}

	b := img.Bounds()
	if strings.Contains(path, "_array") && b.Dx() > 0 && b.Dy() > b.Dx() && b.Dy()%b.Dx() == 0 {
		size := b.Dx()
		for y := b.Min.Y; y < b.Max.Y; y += size {
			layer := image.NewNRGBA(image.Rect(0, 0, size, size))
			draw.Draw(layer, layer.Bounds(), img, image.Pt(b.Min.X, y), draw.Src)
			tex.Layers = append(tex.Layers, layer)
		}
	} else {
		tex.Layers = []image.Image{img}
	}
	return tex, nil
}

type SceneDescription struct {
	Name      string      `yaml:"name"`
	Instances []*Instance `yaml:"instances"`
}

// DecodeSceneDescription parses a scene file. Files that are not valid UTF-8 are
// first converted from the legacy encoding names.
func DecodeSceneDescription(data []byte, names encoding.Encoding) (*SceneDescription, error) {
	if !utf8.Valid(data) && names != nil {
		converted, err := names.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to convert scene encoding")
		}
		data = converted
	}

	var scene SceneDescription
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal scene")
	}
	for i, inst := range scene.Instances {
		if inst == nil {
			return nil, errors.Errorf("Instance %d is empty", i)
		}
	}
	return &scene, nil
}
