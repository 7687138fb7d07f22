package composer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/deform"
	"github.com/mogaika/scene_composer/mesh"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/scene"
	"github.com/mogaika/scene_composer/skeleton"
)

// models containing this are hidden by the game
const SKIPPED_MODEL_MARKER = "b0003_top"

// rig is a character forest with the meshes bound to it, attaches included.
type rig struct {
	forest *skeleton.Forest
	meshes []*mesh.Mesh
}

func (c *Composer) composeCharacter(ctx context.Context, s *scene.Scene, info *records.CharacterInfo, root *scene.Node) error {
	r, err := c.composeRig(ctx, s, info, root.Name, skeleton.NewSuffixCounter())
	if r == nil {
		return err
	}
	skin := &scene.Skin{Name: root.Name, Forest: r.forest}
	if r.forest.Len() != 0 {
		root.Skeleton = skin
	}
	addMeshNodes(root, r.meshes, skin)
	return err
}

func addMeshNodes(parent *scene.Node, meshes []*mesh.Mesh, skin *scene.Skin) {
	for _, m := range meshes {
		node := scene.NewNode(m.Name, records.IdentityTransform())
		node.Mesh = m
		if m.Skinned() {
			node.Skin = skin
		}
		parent.AddChild(node)
	}
}

func (c *Composer) buildForest(info *records.CharacterInfo) (*skeleton.Forest, error) {
	if info.Skeleton == nil {
		return &skeleton.Forest{}, nil
	}
	return skeleton.BuildForest(info.Skeleton, skeleton.ReconcileOptions{PoseMode: c.opts.PoseMode})
}

// composeRig returns a nil rig only when the skeleton could not be built. Model and
// attach failures are returned alongside the partial rig.
func (c *Composer) composeRig(ctx context.Context, s *scene.Scene, info *records.CharacterInfo, name string, counter *skeleton.SuffixCounter) (*rig, error) {
	forest, err := c.buildForest(info)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to build skeleton of %q", name)
	}
	r := &rig{forest: forest}

	var errs error
	for i := range info.Models {
		if ctx.Err() != nil {
			return r, errs
		}
		mi := &info.Models[i]
		meshes, err := c.composeModel(ctx, s, info, mi, forest)
		if err != nil {
			c.log.Error("Failed to compose model",
				zap.String("character", name), zap.String("model", resourcePath(mi.Path)), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		r.meshes = append(r.meshes, meshes...)
		c.emitChild("Character Instance", ProgressEvent{Name: name, Progress: i + 1, Total: len(info.Models)})
	}

	for i := range info.Attaches {
		if ctx.Err() != nil {
			return r, errs
		}
		child := &info.Attaches[i]
		if err := c.attach(ctx, s, info, r, child, name, counter); err != nil {
			c.log.Error("Failed to compose attach",
				zap.String("character", name), zap.String("attach", child.Name), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return r, errs
}

// attach composes child as its own rig and grafts it into parent. Child meshes are
// moved into the bind space of the grafted bones.
func (c *Composer) attach(ctx context.Context, s *scene.Scene, parentInfo *records.CharacterInfo, parent *rig, child *records.AttachedChild, name string, counter *skeleton.SuffixCounter) error {
	if child.Character == nil {
		return errors.Errorf("Attach %q has no character", child.Name)
	}
	sub, err := c.composeRig(ctx, s, child.Character, name+"/"+child.Name, counter)
	if sub == nil {
		return err
	}

	childRoot, rootErr := sub.forest.PreferredRoot()
	if rootErr != nil {
		return multierr.Append(err, errors.Wrapf(rootErr, "Failed to attach %q", child.Name))
	}
	before := sub.forest.BindMatrix(childRoot)

	result, attachErr := skeleton.Attach(parent.forest, parentInfo.Skeleton, sub.forest, child.Attach, counter)
	if attachErr != nil {
		return multierr.Append(err, errors.Wrapf(attachErr, "Failed to attach %q", child.Name))
	}
	toParent := parent.forest.BindMatrix(result.Root).Mul4(before.Inv())

	for _, m := range sub.meshes {
		if remapErr := m.RemapJoints(result.RemapBone); remapErr != nil {
			c.log.Warn("Dropping attached mesh", zap.String("attach", child.Name), zap.Error(remapErr))
			continue
		}
		m.ApplyMatrix(toParent)
		parent.meshes = append(parent.meshes, m)
	}
	c.log.Debug("Attached",
		zap.String("character", name),
		zap.String("attach", child.Name),
		zap.String("bone", result.BoneName),
		zap.Bool("toRoot", result.AttachedToRoot))
	return err
}

func (c *Composer) composeModel(ctx context.Context, s *scene.Scene, info *records.CharacterInfo, mi *records.ModelInfo, forest *skeleton.Forest) ([]*mesh.Mesh, error) {
	path := resourcePath(mi.Path)
	if strings.Contains(mi.PathFromCharacter, SKIPPED_MODEL_MARKER) || strings.Contains(mi.Path.GamePath, SKIPPED_MODEL_MARKER) {
		c.log.Debug("Skipping model", zap.String("model", path))
		return nil, nil
	}

	model, err := c.cache.Model(path)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			c.log.Warn("Model not found", zap.String("model", path))
			return nil, nil
		}
		return nil, errors.Wrapf(err, "Failed to load model %q", path)
	}
	if mi.ShapeAttributes != nil {
		// cached model is shared
		withAttributes := *model
		withAttributes.ShapeAttributes = mi.ShapeAttributes
		model = &withAttributes
	}

	infos := mi.Materials
	if len(infos) == 0 {
		for _, p := range model.MaterialPaths {
			infos = append(infos, records.MaterialInfo{Path: records.ResourcePath{GamePath: p, FullPath: p}, PathFromModel: p})
		}
	}
	refs, err := c.composeMaterials(ctx, s, infos, materialContext{character: info})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to compose materials of %q", path)
	}

	if err := mesh.EnsureBonesExist(model, forest); err != nil {
		return nil, err
	}

	dc, err := c.deformContext(info, mi, forest)
	if err != nil {
		return nil, err
	}

	meshes, err := mesh.Build(model, refs, forest, dc)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to build meshes of %q", path)
	}
	c.log.Info("Composed model", zap.String("model", path), zap.Int("meshes", len(meshes)))
	return meshes, nil
}

// deformContext picks the body conversion for a model. Models for the character's own
// body type and models without a known race code are not deformed. A conversion the
// pbd has no path for fails the model.
func (c *Composer) deformContext(info *records.CharacterInfo, mi *records.ModelInfo, forest *skeleton.Forest) (*mesh.DeformContext, error) {
	var pbdPath string
	var from, to uint16
	if mi.Deformer != nil {
		pbdPath = mi.Deformer.PbdPath
		from, to = mi.Deformer.DeformerID, mi.Deformer.RaceSexID
	} else {
		racePath := mi.PathFromCharacter
		if racePath == "" {
			racePath = mi.Path.GamePath
		}
		code := deform.ParseRaceCode(racePath)
		if !deform.KnownGenderRace(code) || info.GenderRace == uint16(deform.GenderRaceUnknown) {
			return nil, nil
		}
		from, to = uint16(code), info.GenderRace
	}
	if from == to {
		return nil, nil
	}

	pbd, err := c.cache.Deformer(pbdPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load deformer for %q", resourcePath(mi.Path))
	}
	chain, err := pbd.Deformers(from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to resolve deformer %s -> %s for %q",
			deform.GenderRace(from), deform.GenderRace(to), resourcePath(mi.Path))
	}
	c.log.Debug("Deforming model",
		zap.String("model", resourcePath(mi.Path)),
		zap.Stringer("from", deform.GenderRace(from)),
		zap.Stringer("to", deform.GenderRace(to)),
		zap.Int("steps", len(chain)))
	return &mesh.DeformContext{Deformer: deform.New(pbd, forest), Chain: chain}, nil
}
