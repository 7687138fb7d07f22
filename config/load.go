package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads configuration with priority defaults < file. An empty path returns defaults.
// Flags are applied by the caller on top of the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "Failed to load config from %q", path)
		}
	}
	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges the file into cfg. The format is picked by extension.
func loadFromFile(cfg *Config, path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	default:
		return errors.Errorf("Unknown config format %q", filepath.Ext(path))
	}
}

// Prepare expands home relative paths and validates values.
func (cfg *Config) Prepare() error {
	for _, p := range []*string{&cfg.Cache.DataDir, &cfg.Cache.Dir, &cfg.Logging.File} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.Wrapf(err, "Failed to expand path %q", *p)
		}
		*p = expanded
	}

	if cfg.Cache.MaxEntries <= 0 {
		return errors.Errorf("cache.max_entries must be positive, got %d", cfg.Cache.MaxEntries)
	}
	switch cfg.Cache.TextureFormat {
	case TextureFormatPNG, TextureFormatTGA, TextureFormatWebP:
	default:
		return errors.Errorf("Unknown cache.texture_format %q", cfg.Cache.TextureFormat)
	}
	switch cfg.Compose.TextureMode {
	case "":
		cfg.Compose.TextureMode = TextureModeBake
	case TextureModeBake, TextureModeRaw:
	default:
		return errors.Errorf("Unknown compose.texture_mode %q", cfg.Compose.TextureMode)
	}
	if cfg.Compose.ParallelMaterials <= 0 {
		cfg.Compose.ParallelMaterials = 1
	}
	if cfg.Encoding != "" {
		if err := SetEncoding(cfg.Encoding); err != nil {
			return err
		}
	}
	return nil
}

// Watch reloads the file on every write and passes the new config to onChange.
// Reload errors go to onError. Blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrapf(err, "Failed to create watcher")
	}
	defer watcher.Close()

	// editors replace files on save, so the directory is watched
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "Failed to watch %q", path)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				onError(err)
				continue
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)
		}
	}
}
