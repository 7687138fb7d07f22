// Package deform reshapes vertices between body types using pre-bone deformer (pbd) tables.
package deform

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_composer/utils"
)

const (
	HEADER_SIZE = 12
	LINK_SIZE   = 8
	LINK_NULL   = 0xFFFF

	DEFAULT_PBD_PATH = "chara/xls/boneDeformer/human.pbd"
)

type Header struct {
	ID         uint16
	DeformerID uint16
	Offset     int32
	Unk        float32
}

type Link struct {
	Parent      uint16
	FirstChild  uint16
	NextSibling uint16
	HeaderIdx   uint16
}

// Matrix holds the three rows of an affine transform; w is the translation.
type Matrix [3]mgl32.Vec4

func IdentityMatrix() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

type Deformer struct {
	BoneNames []string
	Matrices  []Matrix
	byName    map[string]int
}

func (d *Deformer) Matrix(bone string) (Matrix, bool) {
	if i, ok := d.byName[bone]; ok {
		return d.Matrices[i], true
	}
	return Matrix{}, false
}

type Pbd struct {
	Headers   []Header
	Links     []Link
	deformers map[int32]*Deformer
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos < 0 || r.pos+n > len(r.buf) {
		return errors.Errorf("Read of %d bytes at %#x out of bounds (%#x)", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *reader) cstring(at int) (string, error) {
	if at < 0 || at >= len(r.buf) {
		return "", errors.Errorf("String offset %#x out of bounds (%#x)", at, len(r.buf))
	}
	return utils.BytesToString(r.buf[at:])
}

func Parse(data []byte) (*Pbd, error) {
	r := &reader{buf: data}
	count, err := r.u32()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read entry count")
	}
	entryCount := int(int32(count))
	if entryCount < 0 || entryCount*(HEADER_SIZE+LINK_SIZE) > len(data)-4 {
		return nil, errors.Errorf("Invalid entry count %d", entryCount)
	}

	p := &Pbd{
		Headers:   make([]Header, entryCount),
		Links:     make([]Link, entryCount),
		deformers: make(map[int32]*Deformer, entryCount),
	}
	for i := range p.Headers {
		h := &p.Headers[i]
		h.ID, _ = r.u16()
		h.DeformerID, _ = r.u16()
		offset, _ := r.u32()
		h.Offset = int32(offset)
		h.Unk, _ = r.f32()
	}
	for i := range p.Links {
		l := &p.Links[i]
		l.Parent, _ = r.u16()
		l.FirstChild, _ = r.u16()
		l.NextSibling, _ = r.u16()
		l.HeaderIdx, _ = r.u16()
	}

	for _, h := range p.Headers {
		if h.Offset == 0 {
			continue
		}
		if _, ok := p.deformers[h.Offset]; ok {
			continue
		}
		d, err := readDeformer(data, int(h.Offset))
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read deformer %d at %#x", h.ID, h.Offset)
		}
		p.deformers[h.Offset] = d
	}
	return p, nil
}

func readDeformer(data []byte, start int) (*Deformer, error) {
	r := &reader{buf: data, pos: start}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	boneCount := int(int32(count))
	if boneCount < 0 || boneCount > len(data) {
		return nil, errors.Errorf("Invalid bone count %d", boneCount)
	}

	d := &Deformer{
		BoneNames: make([]string, boneCount),
		Matrices:  make([]Matrix, boneCount),
		byName:    make(map[string]int, boneCount),
	}
	for i := 0; i < boneCount; i++ {
		offset, err := r.u16()
		if err != nil {
			return nil, err
		}
		name, err := r.cstring(start + int(int16(offset)))
		if err != nil {
			return nil, err
		}
		d.BoneNames[i] = name
	}
	r.pos += boneCount * 2 % 4

	for i := 0; i < boneCount; i++ {
		if err := r.need(12 * 4); err != nil {
			return nil, err
		}
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				d.Matrices[i][row][col], _ = r.f32()
			}
		}
	}
	for i, name := range d.BoneNames {
		if _, ok := d.byName[name]; !ok {
			d.byName[name] = i
		}
	}
	return d, nil
}

func (p *Pbd) header(id uint16) (Header, bool) {
	for _, h := range p.Headers {
		if h.ID == id {
			return h, true
		}
	}
	return Header{}, false
}

// Deformers returns the chain of deformers converting a model made for body type
// from to body type to, ordered from the root of the chain to the target.
func (p *Pbd) Deformers(from, to uint16) ([]*Deformer, error) {
	if from == to {
		return nil, nil
	}
	var chain []*Deformer
	current := to
	for current != from {
		if len(chain) > len(p.Headers) {
			return nil, errors.Errorf("Deformer chain from %d to %d loops", from, to)
		}
		h, ok := p.header(current)
		if !ok {
			return nil, errors.Errorf("Header does not exist for %d", current)
		}
		d, ok := p.deformers[h.Offset]
		if !ok {
			return nil, errors.Errorf("Deformer does not exist for %d", current)
		}
		chain = append(chain, d)

		if int(h.DeformerID) >= len(p.Links) {
			return nil, errors.Errorf("Link %d out of range for %d", h.DeformerID, current)
		}
		link := p.Links[h.DeformerID]
		if link.Parent == LINK_NULL || int(link.Parent) >= len(p.Links) {
			return nil, errors.Errorf("Parent link does not exist for %d", current)
		}
		parent := p.Links[link.Parent]
		if int(parent.HeaderIdx) >= len(p.Headers) {
			return nil, errors.Errorf("Header index %d out of range for %d", parent.HeaderIdx, current)
		}
		current = p.Headers[parent.HeaderIdx].ID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
