package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/cache"
	"github.com/mogaika/scene_composer/composer"
	"github.com/mogaika/scene_composer/config"
	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/status"
	"github.com/mogaika/scene_composer/utils/gltfutils"
	"github.com/mogaika/scene_composer/web"
)

func main() {
	var configPath, scenePath, out, dataDir, cacheDir, logLevel, addr string
	var watch, wait bool
	flag.StringVar(&configPath, "config", "", "Path to yaml or toml config")
	flag.StringVar(&scenePath, "scene", "", "Path to scene description")
	flag.StringVar(&out, "out", "", "Output .glb path, defaults to scene name")
	flag.StringVar(&dataDir, "data", "", "Path to unpacked game data override")
	flag.StringVar(&cacheDir, "cache", "", "Cache directory override")
	flag.StringVar(&logLevel, "log-level", "", "Log level override")
	flag.StringVar(&addr, "i", "", "Address of status server, empty to disable")
	flag.BoolVar(&watch, "watch", false, "Reload config on change")
	flag.BoolVar(&wait, "wait", false, "Keep status server running after export")
	flag.Parse()

	if scenePath == "" {
		flag.PrintDefaults()
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if dataDir != "" {
		cfg.Cache.DataDir = dataDir
	}
	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if addr != "" {
		cfg.Web.Addr = addr
	}
	if err := cfg.Prepare(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	config.Set(cfg)

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, configPath, scenePath, out, watch, wait); err != nil {
		log.Error("Compose failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// applyConfig publishes a reloaded config. Load has already switched the encoding.
func applyConfig(next *config.Config) {
	config.Set(next)
	logger.SetLevel(next.Logging.Level)
}

func outputPath(out, scenePath string, desc *records.SceneDescription) string {
	if out != "" {
		return out
	}
	name := desc.Name
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
	}
	return filepath.Join(filepath.Dir(scenePath), name+".glb")
}

func run(ctx context.Context, cfg *config.Config, configPath, scenePath, out string, watch, wait bool) error {
	log := logger.Named("main")

	data, err := os.ReadFile(scenePath)
	if err != nil {
		return errors.Wrapf(err, "Failed to read scene %q", scenePath)
	}
	desc, err := records.DecodeSceneDescription(data, config.GetEncoding())
	if err != nil {
		return errors.Wrapf(err, "Failed to decode scene %q", scenePath)
	}

	c := cache.New(cache.DirLoader{Root: cfg.Cache.DataDir}, records.YAMLDecoder{}, cache.OptionsFromConfig(cfg))
	hub := status.NewHub()

	var output atomic.Value
	output.Store("")

	serverDone := make(chan struct{})
	if cfg.Web.Addr != "" {
		srv := &web.Server{
			Hub:    hub,
			Stats:  c.Stats,
			Output: func() string { return output.Load().(string) },
		}
		go func() {
			defer close(serverDone)
			if err := web.StartServer(ctx, cfg.Web.Addr, srv); err != nil {
				log.Error("Status server stopped", zap.Error(err))
			}
		}()
	} else {
		close(serverDone)
	}

	if watch && configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config) {
				applyConfig(next)
				log.Info("Config reloaded", zap.String("path", configPath), zap.String("level", next.Logging.Level))
			}, func(err error) {
				log.Warn("Failed to reload config", zap.Error(err))
			})
			if err != nil {
				log.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	opts, err := composer.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	log.Info("Composing scene", zap.String("scene", desc.Name), zap.Int("instances", len(desc.Instances)))
	s, composeErr := composer.New(opts, c, hub.Progress).Compose(ctx, desc.Instances)
	if composeErr != nil {
		for _, e := range multierr.Errors(composeErr) {
			log.Warn("Instance failed", zap.Error(e))
		}
		hub.Error("%d instances failed", len(multierr.Errors(composeErr)))
	}

	doc, err := s.ExportGLTF()
	if err != nil {
		return errors.Wrapf(err, "Failed to export scene")
	}
	path := outputPath(out, scenePath, desc)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", path)
	}
	if err := gltfutils.ExportBinary(f, doc); err != nil {
		f.Close()
		return errors.Wrapf(err, "Failed to write %q", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "Failed to close %q", path)
	}
	output.Store(path)
	hub.Info("Exported %s", path)
	log.Info("Exported scene", zap.String("path", path))

	if wait && cfg.Web.Addr != "" {
		<-ctx.Done()
		<-serverDone
	}
	return nil
}
