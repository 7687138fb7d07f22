package gltfutils

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// GLTFCacher remembers what was already written into Doc, keyed by resource name.
type GLTFCacher struct {
	Doc   *gltf.Document
	cache map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   gltf.NewDocument(),
		cache: make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(key string, value interface{}) {
	gc.cache[key] = value
}

func (gc *GLTFCacher) GetCached(key string) (interface{}, bool) {
	v, ok := gc.cache[key]
	return v, ok
}

// GetCachedOr returns the cached value for key or stores the result of create.
func (gc *GLTFCacher) GetCachedOr(key string, create func() (interface{}, error)) (interface{}, error) {
	if v, ok := gc.cache[key]; ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	gc.cache[key] = v
	return v, nil
}

// Mat4 converts a column major matrix into accessor layout.
func Mat4(m mgl32.Mat4) [4][4]float32 {
	var r [4][4]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			r[col][row] = m[col*4+row]
		}
	}
	return r
}

func Float(v float32) *float32 {
	return &v
}

// ExportBinary writes doc as a single .glb stream.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
