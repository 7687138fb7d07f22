package deform

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDeformer struct {
	bones    []string
	matrices []Matrix
}

func (td testDeformer) bytes() []byte {
	var names bytes.Buffer
	offsets := make([]int16, len(td.bones))
	namesStart := 4 + len(td.bones)*2 + len(td.bones)*2%4 + len(td.bones)*48
	for i, name := range td.bones {
		offsets[i] = int16(namesStart + names.Len())
		names.WriteString(name)
		names.WriteByte(0)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(len(td.bones)))
	binary.Write(&buf, binary.LittleEndian, offsets)
	buf.Write(make([]byte, len(td.bones)*2%4))
	for _, m := range td.matrices {
		binary.Write(&buf, binary.LittleEndian, m)
	}
	buf.Write(names.Bytes())
	return buf.Bytes()
}

func buildPbd(headers []Header, links []Link, deformers map[int]testDeformer) []byte {
	var buf bytes.Buffer
	offset := 4 + len(headers)*HEADER_SIZE + len(links)*LINK_SIZE
	var body bytes.Buffer
	for i := range headers {
		d, ok := deformers[i]
		if !ok {
			continue
		}
		headers[i].Offset = int32(offset + body.Len())
		body.Write(d.bytes())
	}
	binary.Write(&buf, binary.LittleEndian, int32(len(headers)))
	binary.Write(&buf, binary.LittleEndian, headers)
	binary.Write(&buf, binary.LittleEndian, links)
	buf.Write(body.Bytes())
	return buf.Bytes()
}

var (
	translateX = Matrix{{1, 0, 0, 1}, {0, 1, 0, 0}, {0, 0, 1, 0}}
	scale2     = Matrix{{2, 0, 0, 0}, {0, 2, 0, 0}, {0, 0, 2, 0}}
)

func testPbd(t *testing.T) *Pbd {
	data := buildPbd(
		[]Header{
			{ID: 101, DeformerID: 0},
			{ID: 201, DeformerID: 1},
			{ID: 1401, DeformerID: 2},
		},
		[]Link{
			{Parent: LINK_NULL, FirstChild: 1, NextSibling: LINK_NULL, HeaderIdx: 0},
			{Parent: 0, FirstChild: 2, NextSibling: LINK_NULL, HeaderIdx: 1},
			{Parent: 1, FirstChild: LINK_NULL, NextSibling: LINK_NULL, HeaderIdx: 2},
		},
		map[int]testDeformer{
			1: {bones: []string{"j_kosi"}, matrices: []Matrix{translateX}},
			2: {bones: []string{"j_kosi", "j_sebo_a"}, matrices: []Matrix{scale2, scale2}},
		})
	pbd, err := Parse(data)
	require.NoError(t, err)
	return pbd
}

type parents map[string]string

func (p parents) ParentBone(name string) (string, bool) {
	parent, ok := p[name]
	return parent, ok
}

func TestParse(t *testing.T) {
	pbd := testPbd(t)
	require.Len(t, pbd.Headers, 3)
	require.Len(t, pbd.Links, 3)
	assert.Equal(t, uint16(1401), pbd.Headers[2].ID)
	assert.Len(t, pbd.deformers, 2)
	d := pbd.deformers[pbd.Headers[2].Offset]
	assert.Equal(t, []string{"j_kosi", "j_sebo_a"}, d.BoneNames)
	m, ok := d.Matrix("j_sebo_a")
	assert.True(t, ok)
	assert.Equal(t, scale2, m)
}

func TestParseOutOfBounds(t *testing.T) {
	raw := buildPbd(
		[]Header{{ID: 101, DeformerID: 0}},
		[]Link{{Parent: LINK_NULL, HeaderIdx: 0}},
		map[int]testDeformer{0: {bones: []string{"j_kosi"}, matrices: []Matrix{translateX}}})
	_, err := Parse(raw[:len(raw)-20])
	assert.Error(t, err)

	_, err = Parse([]byte{1, 0})
	assert.Error(t, err)

	_, err = Parse([]byte{0xff, 0xff, 0, 0})
	assert.Error(t, err)
}

func TestDeformersChain(t *testing.T) {
	pbd := testPbd(t)

	chain, err := pbd.Deformers(101, 101)
	require.NoError(t, err)
	assert.Empty(t, chain)

	chain, err = pbd.Deformers(101, 1401)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	// root to target
	assert.Equal(t, []string{"j_kosi"}, chain[0].BoneNames)
	assert.Equal(t, []string{"j_kosi", "j_sebo_a"}, chain[1].BoneNames)

	// walking past 101 reaches a header without deformer data
	_, err = pbd.Deformers(404, 1401)
	assert.Error(t, err)

	_, err = pbd.Deformers(101, 9999)
	assert.Error(t, err)
}

func TestDeformersLoopGuard(t *testing.T) {
	data := buildPbd(
		[]Header{
			{ID: 201, DeformerID: 0},
			{ID: 1401, DeformerID: 1},
		},
		[]Link{
			{Parent: 1, HeaderIdx: 0},
			{Parent: 0, HeaderIdx: 1},
		},
		map[int]testDeformer{
			0: {bones: []string{"j_kosi"}, matrices: []Matrix{translateX}},
			1: {bones: []string{"j_kosi"}, matrices: []Matrix{scale2}},
		})
	pbd, err := Parse(data)
	require.NoError(t, err)
	_, err = pbd.Deformers(101, 1401)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loops")
}

func TestDeformVertex(t *testing.T) {
	pbd := testPbd(t)
	rd := New(pbd, parents{"j_kosi_child": "j_kosi"})
	chain, err := pbd.Deformers(101, 1401)
	require.NoError(t, err)

	pos := mgl32.Vec3{1, 1, 1}
	assert.Equal(t, mgl32.Vec3{4, 2, 2}, rd.DeformVertex(chain, pos, []string{"j_kosi"}, []float32{1}))
	// falls back to the parent deformation
	assert.Equal(t, mgl32.Vec3{4, 2, 2}, rd.DeformVertex(chain, pos, []string{"j_kosi_child"}, []float32{1}))
	// unknown bones keep the position
	assert.Equal(t, pos, rd.DeformVertex(chain, pos, []string{"n_hara"}, []float32{1}))
	// zero weights are ignored
	assert.Equal(t, mgl32.Vec3{4, 2, 2}, rd.DeformVertex(chain, pos, []string{"j_kosi", "n_hara"}, []float32{1, 0}))
	assert.Equal(t, pos, rd.DeformVertex(nil, pos, []string{"j_kosi"}, []float32{1}))
}

func TestTransformCoordinate(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, TransformCoordinate(mgl32.Vec3{1, 2, 3}, IdentityMatrix()))
	assert.Equal(t, mgl32.Vec3{2, 2, 3}, TransformCoordinate(mgl32.Vec3{1, 2, 3}, translateX))
}

var raceCodeTests = []struct {
	path string
	code GenderRace
}{
	{"chara/human/c0101/obj/body/b0001/model/c0101b0001_top.mdl", 101},
	{"chara/equipment/e6001/model/c1801e6001_met.mdl", 1801},
	{"c0201e0001_top.mdl", 201},
	{"chara/equipment/abc0101/model.mdl", GenderRaceUnknown},
	{"bgcommon/hou/indoor/general/0001/bgparts/fun_b0_m0001.mdl", GenderRaceUnknown},
	{"", GenderRaceUnknown},
}

func TestParseRaceCode(t *testing.T) {
	for _, test := range raceCodeTests {
		assert.Equal(t, test.code, ParseRaceCode(test.path), test.path)
	}
}

func TestKnownGenderRace(t *testing.T) {
	assert.True(t, KnownGenderRace(101))
	assert.True(t, KnownGenderRace(1804))
	assert.False(t, KnownGenderRace(GenderRaceUnknown))
	assert.False(t, KnownGenderRace(1901))
	assert.Equal(t, "VieraFemale", GenderRace(1801).String())
	assert.Equal(t, "1901", GenderRace(1901).String())
}
