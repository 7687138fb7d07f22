// Package composer rebuilds scene instances into a scene graph with skinned meshes
// and synthesized materials.
package composer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/cache"
	"github.com/mogaika/scene_composer/config"
	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/mesh"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/scene"
	"github.com/mogaika/scene_composer/skeleton"
	"github.com/mogaika/scene_composer/synth"
	"github.com/mogaika/scene_composer/utils"
)

const DEFAULT_PARALLEL_MATERIALS = 4

// ProgressEvent reports how far a compose run is. Child describes the step inside
// the current instance.
type ProgressEvent struct {
	Name     string         `json:"name"`
	Progress int            `json:"progress"`
	Total    int            `json:"total"`
	Child    *ProgressEvent `json:"child,omitempty"`
}

type ProgressFunc func(ProgressEvent)

type Options struct {
	PoseMode          skeleton.PoseMode
	ParallelMaterials int
	// replaces the name of player characters in node names
	PlayerNameOverride string
	Blender            records.RowPairBlender
	DebugLayers        bool
	TextureMode        synth.TextureMode
}

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := skeleton.ParsePoseMode(cfg.Compose.PoseMode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		PoseMode:           mode,
		ParallelMaterials:  cfg.Compose.ParallelMaterials,
		PlayerNameOverride: cfg.Compose.PlayerNameOverride,
		Blender:            records.PairRowBlender{},
		DebugLayers:        cfg.Compose.DebugLayers,
		TextureMode:        textureMode(cfg.Compose.TextureMode),
	}, nil
}

func textureMode(mode config.TextureMode) synth.TextureMode {
	if mode == config.TextureModeRaw {
		return synth.TextureRaw
	}
	return synth.TextureBake
}

type Composer struct {
	opts     Options
	cache    *cache.Cache
	progress ProgressFunc
	log      *zap.Logger
	names    utils.RandomNameGenerator

	total int
	done  atomic.Int64
}

func New(opts Options, c *cache.Cache, progress ProgressFunc) *Composer {
	if opts.ParallelMaterials <= 0 {
		opts.ParallelMaterials = DEFAULT_PARALLEL_MATERIALS
	}
	if opts.Blender == nil {
		opts.Blender = records.PairRowBlender{}
	}
	return &Composer{
		opts:     opts,
		cache:    c,
		progress: progress,
		log:      logger.Named("composer"),
	}
}

func (c *Composer) emit(ev ProgressEvent) {
	if c.progress != nil {
		c.progress(ev)
	}
}

func (c *Composer) emitChild(name string, child ProgressEvent) {
	c.emit(ProgressEvent{Name: name, Progress: int(c.done.Load()), Total: c.total, Child: &child})
}

// Compose builds one root node per instance. Failing instances are logged and
// their errors returned together while siblings are still composed. A cancelled
// context stops the run and returns what was composed so far without error.
func (c *Composer) Compose(ctx context.Context, instances []*records.Instance) (*scene.Scene, error) {
	s := scene.New()
	c.total = len(instances)
	c.done.Store(0)
	c.emit(ProgressEvent{Name: "Export", Progress: 0, Total: c.total})

	var errs error
	for _, inst := range instances {
		if ctx.Err() != nil {
			c.log.Info("Compose cancelled", zap.Int64("done", c.done.Load()), zap.Int("total", c.total))
			return s, nil
		}
		node, err := c.composeInstance(ctx, s, inst)
		if err != nil && ctx.Err() == nil {
			c.log.Error("Failed to compose instance",
				zap.Uint64("id", inst.ID), zap.String("type", string(inst.Type)), zap.Error(err))
			errs = multierr.Append(errs, errors.Wrapf(err, "Instance %d (%s)", inst.ID, inst.Type))
		}
		if node != nil {
			s.AddNode(node)
		}
		c.emit(ProgressEvent{Name: "Export", Progress: int(c.done.Add(1)), Total: c.total})
	}
	return s, errs
}

func fileBase(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *Composer) rootName(inst *records.Instance) string {
	switch {
	case inst.Type == records.InstanceCharacter:
		name := inst.Name
		if inst.Kind == "Pc" && strings.TrimSpace(c.opts.PlayerNameOverride) != "" {
			name = c.opts.PlayerNameOverride
		}
		if name == "" {
			name = c.names.RandomName()
		}
		return fmt.Sprintf("%s_%s_%s", inst.Type, inst.Kind, name)
	case inst.Type == records.InstanceLight || inst.Path == "":
		return fmt.Sprintf("%s_%d", inst.Type, inst.ID)
	default:
		return fmt.Sprintf("%s_%s", inst.Type, fileBase(inst.Path))
	}
}

// composeInstance returns nil when the instance produced nothing.
func (c *Composer) composeInstance(ctx context.Context, s *scene.Scene, inst *records.Instance) (*scene.Node, error) {
	if ctx.Err() != nil {
		return nil, nil
	}
	root := scene.NewNode(c.rootName(inst), inst.Transform)

	added := false
	var err error
	switch inst.Type {
	case records.InstanceBgPart:
		if inst.Path != "" {
			added = true
			err = c.composeBgPart(ctx, s, inst, root)
		}
	case records.InstanceCharacter:
		if inst.Character != nil {
			added = true
			err = c.composeCharacter(ctx, s, inst.Character, root)
		}
	case records.InstanceLight:
		added = true
		light := map[string]interface{}{}
		if inst.Light != nil {
			light["Color"] = inst.Light.Color
			light["Range"] = inst.Light.Range
		}
		root.SetExtra("Light", light)
	case records.InstanceSharedGroup, records.InstanceHousing:
		for i, child := range inst.Children {
			if ctx.Err() != nil {
				break
			}
			childNode, childErr := c.composeInstance(ctx, s, child)
			if childErr != nil {
				c.log.Error("Failed to compose child instance",
					zap.String("parent", root.Name), zap.Uint64("id", child.ID), zap.Error(childErr))
				err = multierr.Append(err, errors.Wrapf(childErr, "Child %d (%s)", child.ID, child.Type))
			}
			if childNode != nil {
				root.AddChild(childNode)
				added = true
			}
			c.emitChild("Shared Instance", ProgressEvent{Name: root.Name, Progress: i + 1, Total: len(inst.Children)})
		}
	default:
		c.log.Debug("Skipping unsupported instance", zap.Uint64("id", inst.ID), zap.String("type", string(inst.Type)))
	}

	if !added {
		return nil, err
	}
	return root, err
}

func (c *Composer) composeBgPart(ctx context.Context, s *scene.Scene, inst *records.Instance, root *scene.Node) error {
	model, err := c.cache.Model(inst.Path)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			c.log.Warn("Model not found", zap.String("path", inst.Path))
			return nil
		}
		return errors.Wrapf(err, "Failed to load model %q", inst.Path)
	}

	infos := make([]records.MaterialInfo, len(model.MaterialPaths))
	for i, p := range model.MaterialPaths {
		infos[i] = records.MaterialInfo{Path: records.ResourcePath{GamePath: p, FullPath: p}, PathFromModel: p}
	}
	refs, err := c.composeMaterials(ctx, s, infos, materialContext{stain: inst.Stain})
	if err != nil {
		return err
	}
	meshes, err := mesh.Build(model, refs, &skeleton.Forest{}, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to build meshes of %q", inst.Path)
	}
	addMeshNodes(root, meshes, nil)
	return nil
}
