package material

import (
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scene_composer/logger"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/utils"
)

// Descriptor is the resolved view of a material file combined with its shader package.
// It is immutable after NewDescriptor returns.
type Descriptor struct {
	MtrlPath string
	ShpkName string

	shaderKeys map[records.ShaderCategory]uint32
	constants  map[records.ConstantID][]float32
	textures   map[records.TextureUsage]records.TexturePath
	flags      uint32

	colorTable    *records.ColorTable
	stainColor    *mgl32.Vec4
	customize     *records.CustomizeParameter
	customizeData *records.CustomizeData

	uid uint32
}

type options struct {
	colorTable       *records.ColorTable
	stainColor       *mgl32.Vec4
	customize        *records.CustomizeParameter
	customizeData    *records.CustomizeData
	texturePathsByID []records.TexturePath
}

type Option func(*options)

// WithColorTable replaces the table stored in the material file.
func WithColorTable(table *records.ColorTable) Option {
	return func(o *options) { o.colorTable = table }
}

func WithStainColor(c mgl32.Vec4) Option {
	return func(o *options) { o.stainColor = &c }
}

func WithCustomize(param records.CustomizeParameter, data records.CustomizeData) Option {
	return func(o *options) {
		o.customize = &param
		o.customizeData = &data
	}
}

// WithTexturePathOverride redirects textures by texture index. Entries with an empty
// game path keep the path from the material.
func WithTexturePathOverride(paths []records.TexturePath) Option {
	return func(o *options) { o.texturePathsByID = paths }
}

func NewDescriptor(mtrlPath string, mtrl *records.Material, shpk *records.ShaderPackage, opts ...Option) (*Descriptor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d := &Descriptor{
		MtrlPath:      mtrlPath,
		ShpkName:      mtrl.ShaderPackageName,
		shaderKeys:    make(map[records.ShaderCategory]uint32, len(shpk.DefaultKeyValues)+len(mtrl.ShaderKeys)),
		constants:     make(map[records.ConstantID][]float32, len(shpk.MaterialConstants)+len(mtrl.Constants)),
		textures:      make(map[records.TextureUsage]records.TexturePath, len(mtrl.Samplers)),
		flags:         mtrl.ShaderFlags,
		colorTable:    mtrl.ColorTable,
		stainColor:    o.stainColor,
		customize:     o.customize,
		customizeData: o.customizeData,
	}
	if d.ShpkName == "" {
		d.ShpkName = shpk.Name
	}
	if o.colorTable != nil {
		d.colorTable = o.colorTable
	}

	for category, value := range shpk.DefaultKeyValues {
		d.shaderKeys[category] = value
	}
	for _, key := range mtrl.ShaderKeys {
		d.shaderKeys[key.Category] = key.Value
	}

	for id, value := range shpk.MaterialConstants {
		d.constants[id] = value
	}
	log := logger.Named("material")
	for _, constant := range mtrl.Constants {
		index := int(constant.ValueOffset / 4)
		count := int(constant.ValueSize / 4)
		values := make([]float32, 0, count)
		for j := 0; j < count; j++ {
			if index+j >= len(mtrl.ShaderValues) {
				log.Warn("Material constant out of bounds",
					zap.Stringer("constant", constant.ID),
					zap.String("material", mtrlPath),
					zap.Int("index", index),
					zap.Int("count", count),
					zap.Int("len", len(mtrl.ShaderValues)))
				break
			}
			values = append(values, math.Float32frombits(mtrl.ShaderValues[index+j]))
		}
		// duplicates: last one wins
		d.constants[constant.ID] = values
	}

	for _, sampler := range mtrl.Samplers {
		if sampler.TextureIndex == records.SAMPLER_NO_TEXTURE {
			continue
		}
		if int(sampler.TextureIndex) >= len(mtrl.TextureOffsets) {
			return nil, errors.Errorf("Texture index %d out of bounds for %q", sampler.TextureIndex, mtrlPath)
		}
		offset := mtrl.TextureOffsets[sampler.TextureIndex]
		gamePath, ok := mtrl.TexturePaths[offset]
		if !ok {
			return nil, errors.Errorf("Texture offset %d not found in %q", offset, mtrlPath)
		}
		usage, ok := shpk.TextureLookup[sampler.SamplerID]
		if !ok {
			log.Debug("Sampler is not bound in shader package",
				zap.String("material", mtrlPath), zap.Uint32("sampler", sampler.SamplerID))
			continue
		}

		path := records.TexturePath{GamePath: gamePath, FullPath: gamePath}
		if int(sampler.TextureIndex) < len(o.texturePathsByID) {
			if override := o.texturePathsByID[sampler.TextureIndex]; override.GamePath != "" {
				path = override
				if path.FullPath == "" {
					path.FullPath = path.GamePath
				}
			}
		}
		d.textures[usage] = path
	}

	d.uid = d.computeUid()
	if ce := log.Check(zap.DebugLevel, "Material descriptor"); ce != nil {
		ce.Write(zap.String("material", mtrlPath), zap.String("dump", utils.SDump(d.Extras())))
	}
	return d, nil
}

func (d *Descriptor) RenderBackfaces() bool {
	return d.flags&records.SHADER_FLAG_HIDE_BACKFACES == 0
}

func (d *Descriptor) IsTransparent() bool {
	return d.flags&records.SHADER_FLAG_ENABLE_TRANSLUCENCY != 0
}

func (d *Descriptor) ColorTable() *records.ColorTable { return d.colorTable }

func (d *Descriptor) StainColor() (mgl32.Vec4, bool) {
	if d.stainColor == nil {
		return mgl32.Vec4{}, false
	}
	return *d.stainColor, true
}

// Customize returns character parameters, zero values when none were set.
func (d *Descriptor) Customize() (records.CustomizeParameter, records.CustomizeData) {
	var p records.CustomizeParameter
	var c records.CustomizeData
	if d.customize != nil {
		p = *d.customize
	}
	if d.customizeData != nil {
		c = *d.customizeData
	}
	return p, c
}

func (d *Descriptor) Family() Family {
	return FamilyFor(d.ShpkName)
}

func (d *Descriptor) Constant(id records.ConstantID) ([]float32, bool) {
	v, ok := d.constants[id]
	return v, ok
}

func valueAt(values []float32, i int) float32 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func (d *Descriptor) ConstantFloatOrDefault(id records.ConstantID, def float32) float32 {
	if v, ok := d.constants[id]; ok {
		return valueAt(v, 0)
	}
	return def
}

func (d *Descriptor) ConstantVec3OrDefault(id records.ConstantID, def mgl32.Vec3) mgl32.Vec3 {
	if v, ok := d.constants[id]; ok {
		return mgl32.Vec3{valueAt(v, 0), valueAt(v, 1), valueAt(v, 2)}
	}
	return def
}

func (d *Descriptor) ConstantVec4OrDefault(id records.ConstantID, def mgl32.Vec4) mgl32.Vec4 {
	if v, ok := d.constants[id]; ok {
		return mgl32.Vec4{valueAt(v, 0), valueAt(v, 1), valueAt(v, 2), valueAt(v, 3)}
	}
	return def
}

func (d *Descriptor) ConstantFloatOrError(id records.ConstantID) (float32, error) {
	v, ok := d.constants[id]
	if !ok {
		return 0, errors.Errorf("Missing constant %v in %q", id, d.MtrlPath)
	}
	return valueAt(v, 0), nil
}

func (d *Descriptor) ConstantVec3OrError(id records.ConstantID) (mgl32.Vec3, error) {
	v, ok := d.constants[id]
	if !ok {
		return mgl32.Vec3{}, errors.Errorf("Missing constant %v in %q", id, d.MtrlPath)
	}
	return mgl32.Vec3{valueAt(v, 0), valueAt(v, 1), valueAt(v, 2)}, nil
}

func (d *Descriptor) ShaderKey(category records.ShaderCategory) (uint32, bool) {
	v, ok := d.shaderKeys[category]
	return v, ok
}

func (d *Descriptor) ShaderKeyOrDefault(category records.ShaderCategory, def uint32) uint32 {
	if v, ok := d.shaderKeys[category]; ok {
		return v
	}
	return def
}

func (d *Descriptor) ShaderKeyOrError(category records.ShaderCategory) (uint32, error) {
	v, ok := d.shaderKeys[category]
	if !ok {
		return 0, errors.Errorf("Shader key %v not found in %q", category, d.MtrlPath)
	}
	return v, nil
}

func (d *Descriptor) TexturePath(usage records.TextureUsage) (records.TexturePath, bool) {
	p, ok := d.textures[usage]
	return p, ok
}

// TextureUsages returns bound usages in ascending id order.
func (d *Descriptor) TextureUsages() []records.TextureUsage {
	usages := make([]records.TextureUsage, 0, len(d.textures))
	for u := range d.textures {
		usages = append(usages, u)
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i] < usages[j] })
	return usages
}

func (d *Descriptor) Uid() uint32 {
	return d.uid
}

func (d *Descriptor) HashStr() string {
	return fmt.Sprintf("%08X", d.uid)
}

func baseName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ComputedTextureName identifies a synthesized texture; the hash makes any parameter
// change produce a new name.
func (d *Descriptor) ComputedTextureName(name string) string {
	return fmt.Sprintf("%s_%s_%s_%s", baseName(d.MtrlPath), baseName(d.ShpkName), name, d.HashStr())
}

func (d *Descriptor) MaterialName() string {
	return fmt.Sprintf("%s_%s_%s", baseName(d.MtrlPath), baseName(d.ShpkName), d.HashStr())
}

func (d *Descriptor) computeUid() uint32 {
	h := fnv.New32a()
	writeString := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	writeString(d.MtrlPath)
	writeString(d.ShpkName)
	if d.stainColor != nil {
		h.Write(utils.AsBytes(*d.stainColor))
	}
	if d.customize != nil {
		h.Write(utils.AsBytes(*d.customize))
	}
	if d.customizeData != nil {
		h.Write(utils.AsBytes(*d.customizeData))
	}

	constantIds := make([]records.ConstantID, 0, len(d.constants))
	for id := range d.constants {
		constantIds = append(constantIds, id)
	}
	sort.Slice(constantIds, func(i, j int) bool { return constantIds[i] < constantIds[j] })
	for _, id := range constantIds {
		h.Write(utils.AsBytes(uint32(id), d.constants[id]))
	}

	for _, usage := range d.TextureUsages() {
		h.Write(utils.AsBytes(uint32(usage)))
		writeString(d.textures[usage].GamePath)
		writeString(d.textures[usage].FullPath)
	}

	categories := make([]records.ShaderCategory, 0, len(d.shaderKeys))
	for c := range d.shaderKeys {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, c := range categories {
		h.Write(utils.AsBytes(uint32(c), d.shaderKeys[c]))
	}
	return h.Sum32()
}
