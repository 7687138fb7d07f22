package config

import (
	"sync"
)

type TextureFormat string

const (
	TextureFormatPNG  TextureFormat = "png"
	TextureFormatTGA  TextureFormat = "tga"
	TextureFormatWebP TextureFormat = "webp"
)

// TextureMode picks between baking family shaders into PBR channels and exporting
// the source textures as they are.
type TextureMode string

const (
	TextureModeBake TextureMode = "bake"
	TextureModeRaw  TextureMode = "raw"
)

type Config struct {
	Encoding string        `yaml:"encoding" toml:"encoding"`
	Cache    CacheConfig   `yaml:"cache" toml:"cache"`
	Compose  ComposeConfig `yaml:"compose" toml:"compose"`
	Logging  LoggingConfig `yaml:"logging" toml:"logging"`
	Web      WebConfig     `yaml:"web" toml:"web"`
}

type CacheConfig struct {
	// root of the unpacked game data
	DataDir             string        `yaml:"data_dir" toml:"data_dir"`
	Dir                 string        `yaml:"dir" toml:"dir"`
	MaxEntries          int           `yaml:"max_entries" toml:"max_entries"`
	TextureFormat       TextureFormat `yaml:"texture_format" toml:"texture_format"`
	ExportArrayTextures bool          `yaml:"export_array_textures" toml:"export_array_textures"`
}

type ComposeConfig struct {
	PoseMode           string      `yaml:"pose_mode" toml:"pose_mode"`
	ParallelMaterials  int         `yaml:"parallel_materials" toml:"parallel_materials"`
	PlayerNameOverride string      `yaml:"player_name_override" toml:"player_name_override"`
	TextureMode        TextureMode `yaml:"texture_mode" toml:"texture_mode"`
	// also cache unmodified background layers
	DebugLayers bool `yaml:"debug_layers" toml:"debug_layers"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

type WebConfig struct {
	// empty disables the status server
	Addr string `yaml:"addr" toml:"addr"`
}

func Default() *Config {
	return &Config{
		Encoding: "Windows 1252",
		Cache: CacheConfig{
			DataDir:       ".",
			Dir:           "~/.cache/scene_composer",
			MaxEntries:    100,
			TextureFormat: TextureFormatPNG,
		},
		Compose: ComposeConfig{
			PoseMode:          "local",
			ParallelMaterials: 4,
			TextureMode:       TextureModeBake,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

var (
	currentLock sync.RWMutex
	current     = Default()
)

func Get() *Config {
	currentLock.RLock()
	defer currentLock.RUnlock()
	return current
}

func Set(cfg *Config) {
	currentLock.Lock()
	defer currentLock.Unlock()
	current = cfg
}
