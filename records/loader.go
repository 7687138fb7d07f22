package records

import "github.com/pkg/errors"

var ErrNotFound = errors.New("resource not found")

// Loader resolves a game or rooted filesystem path to raw bytes.
// Missing resources must be reported as ErrNotFound (possibly wrapped).
type Loader interface {
	LoadBytes(path string) ([]byte, error)
}

// Decoder turns raw bytes into records. Game formats are decoded outside of this module.
type Decoder interface {
	DecodeModel(path string, data []byte) (*Model, error)
	DecodeMaterial(path string, data []byte) (*Material, error)
	DecodeShaderPackage(path string, data []byte) (*ShaderPackage, error)
	DecodeTexture(path string, data []byte) (*Texture, error)
}
