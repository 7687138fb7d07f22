package cache

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/config"
	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/texture"
	"github.com/mogaika/scene_composer/utils"
)

const (
	MAX_PATH_CHARACTERS = 255
	// room for a suffix such as ".png"
	PATH_SUFFIX_RESERVE = 5
	MODDED_DIR          = "modded"
)

// Mirror writes resources below a cache directory so exported scenes can reference them.
type Mirror struct {
	Dir    string
	Format config.TextureFormat
}

// CacheFilePath maps a game or rooted path into the mirror. Rooted paths go to a
// separate "modded" directory with the volume stripped. Paths that would exceed
// MAX_PATH_CHARACTERS have their directory replaced by its crc.
func (m *Mirror) CacheFilePath(fullPath string) string {
	clean := TrimHandlePath(fullPath)
	rooted := filepath.IsAbs(clean) || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "\\") || hasDriveLetter(clean)

	base := m.Dir
	if rooted {
		volume := filepath.VolumeName(clean)
		if volume == "" && hasDriveLetter(clean) {
			volume = clean[:2]
		}
		clean = clean[len(volume):]
		clean = strings.TrimLeft(clean, "/\\")
		base = filepath.Join(m.Dir, MODDED_DIR)
	}
	clean = confine(strings.ReplaceAll(clean, "\\", "/"))

	available := MAX_PATH_CHARACTERS - len(base)
	if l := len(clean) + PATH_SUFFIX_RESERVE; l >= available {
		dir, file := "", clean
		if i := strings.LastIndex(clean, "/"); i >= 0 {
			dir, file = clean[:i], clean[i+1:]
		}
		trimmed := fmt.Sprintf("%d/%s", utils.GameCrc32(dir), file)
		logger.Named("cache").Debug("Cache path too long, using hash",
			zap.Int("length", l), zap.Int("available", available),
			zap.String("trimmed", trimmed), zap.String("path", fullPath))
		clean = trimmed
	}
	return filepath.Join(base, filepath.FromSlash(clean))
}

// confine resolves ".." segments against a virtual root so the result never
// leaves the directory it is joined to.
func confine(slashPath string) string {
	return strings.TrimLeft(filepath.ToSlash(filepath.Clean("/"+slashPath)), "/")
}

func hasDriveLetter(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0] | 0x20
	return c >= 'a' && c <= 'z'
}

// Relative returns path relative to the mirror root, using forward slashes.
func (m *Mirror) Relative(path string) string {
	rel, err := filepath.Rel(m.Dir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// writeAtomic creates path through a temporary file so concurrent writers
// never observe a partial file.
func writeAtomic(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "Failed to create directory for %q", path)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "Failed to create temporary file for %q", path)
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "Failed to write %q", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "Failed to close %q", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "Failed to rename into %q", path)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CacheFile stores raw bytes of fullPath. Existing files are kept.
func (m *Mirror) CacheFile(fullPath string, data []byte) (string, error) {
	path := m.CacheFilePath(fullPath)
	if exists(path) {
		return path, nil
	}
	err := writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	return path, err
}

// CacheImage writes img as "{cachepath}.png", plus a copy in the configured
// alternative format. Existing files are kept.
func (m *Mirror) CacheImage(img image.Image, name string) (string, error) {
	path := m.CacheFilePath(name) + ".png"
	if !exists(path) {
		if err := writeAtomic(path, func(w io.Writer) error { return png.Encode(w, img) }); err != nil {
			return "", err
		}
	}

	var encode func(w io.Writer) error
	switch m.Format {
	case config.TextureFormatTGA:
		encode = func(w io.Writer) error { return tga.Encode(w, img) }
	case config.TextureFormatWebP:
		encode = func(w io.Writer) error { return nativewebp.Encode(w, img, nil) }
	}
	if encode != nil {
		alt := strings.TrimSuffix(path, ".png") + "." + string(m.Format)
		if !exists(alt) {
			if err := writeAtomic(alt, encode); err != nil {
				return "", err
			}
		}
	}
	return path, nil
}

func (m *Mirror) CacheTexture(tex *texture.Texture, name string) (*texture.Cached, error) {
	path, err := m.CacheImage(tex.Image(), name)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to cache texture %q", name)
	}
	return &texture.Cached{Name: name, Path: path, Size: tex.Size()}, nil
}
