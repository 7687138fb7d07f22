// Package skeleton reconciles partial skeleton fragments into a bone forest
// and grafts attached skeletons onto it.
package skeleton

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"

	"github.com/mogaika/scene_composer/records"
)

var ErrNoRoot = errors.New("skeleton has no root bone")

const PREFERRED_ROOT_NAME = "n_root"

type BoneID int

const NoBone BoneID = -1

type BoneNode struct {
	ID            BoneID
	// Name is BaseName with the attach suffix, if any
	Name          string
	BaseName      string
	BoneIndex     int
	PartialHandle string
	PartialIndex  int
	Local         records.Transform
	// reference pose, Local may be replaced by a sampled pose
	Bind          records.Transform
	Parent        BoneID
	Children      []BoneID
}

// Forest is an arena of bones. Ids index Nodes and stay valid while the forest grows.
type Forest struct {
	Nodes []BoneNode
	Roots []BoneID
}

// Casers keep state, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(name)
}

func (f *Forest) Node(id BoneID) *BoneNode {
	if id < 0 || int(id) >= len(f.Nodes) {
		return nil
	}
	return &f.Nodes[id]
}

func (f *Forest) Len() int {
	return len(f.Nodes)
}

// ByName finds a bone by its current name (ordinal comparison).
func (f *Forest) ByName(name string) (BoneID, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].Name == name {
			return BoneID(i), true
		}
	}
	return NoBone, false
}

// Lookup resolves mesh bone table names.
func (f *Forest) Lookup(name string) (BoneID, bool) {
	return f.ByName(name)
}

// ParentBone reports the base name of the parent of the bone with the given base name.
func (f *Forest) ParentBone(name string) (string, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].BaseName != name {
			continue
		}
		if parent := f.Node(f.Nodes[i].Parent); parent != nil {
			return parent.BaseName, true
		}
		return "", false
	}
	return "", false
}

// AddBone appends a bone under parent, or as a new root when parent is NoBone.
func (f *Forest) AddBone(name string, parent BoneID, local records.Transform) BoneID {
	id := BoneID(len(f.Nodes))
	f.Nodes = append(f.Nodes, BoneNode{
		ID:        id,
		Name:      name,
		BaseName:  name,
		BoneIndex: -1,
		Local:     local,
		Bind:      local,
		Parent:    parent,
	})
	if p := f.Node(parent); p != nil {
		p.Children = append(p.Children, id)
	} else {
		f.Nodes[id].Parent = NoBone
		f.Roots = append(f.Roots, id)
	}
	return id
}

// PreferredRoot picks n_root when present, otherwise the first root.
func (f *Forest) PreferredRoot() (BoneID, error) {
	if len(f.Roots) == 0 {
		return NoBone, ErrNoRoot
	}
	for _, root := range f.Roots {
		if strings.EqualFold(f.Nodes[root].BaseName, PREFERRED_ROOT_NAME) {
			return root, nil
		}
	}
	return f.Roots[0], nil
}

// Flatten lists the subtree of id depth first, id included.
func (f *Forest) Flatten(id BoneID) []BoneID {
	var result []BoneID
	var walk func(id BoneID)
	walk = func(id BoneID) {
		result = append(result, id)
		for _, child := range f.Nodes[id].Children {
			walk(child)
		}
	}
	if f.Node(id) != nil {
		walk(id)
	}
	return result
}

func (f *Forest) FlattenAll() []BoneID {
	result := make([]BoneID, 0, len(f.Nodes))
	for _, root := range f.Roots {
		result = append(result, f.Flatten(root)...)
	}
	return result
}

// Edges lists (parent, child) name pairs in depth first order.
func (f *Forest) Edges() [][2]string {
	var edges [][2]string
	for _, id := range f.FlattenAll() {
		for _, child := range f.Nodes[id].Children {
			edges = append(edges, [2]string{f.Nodes[id].Name, f.Nodes[child].Name})
		}
	}
	return edges
}

// Validate checks that every bone is reachable from exactly one root and that
// parent and child links agree.
func (f *Forest) Validate() error {
	visited := make([]bool, len(f.Nodes))
	var walk func(id, parent BoneID, depth int) error
	walk = func(id, parent BoneID, depth int) error {
		node := f.Node(id)
		if node == nil {
			return errors.Errorf("Bone id %d out of range", id)
		}
		if visited[id] {
			return errors.Errorf("Bone %q is reachable twice", node.Name)
		}
		if depth > len(f.Nodes) {
			return errors.Errorf("Bone %q is part of a cycle", node.Name)
		}
		visited[id] = true
		if node.Parent != parent {
			return errors.Errorf("Bone %q parent mismatch", node.Name)
		}
		for _, child := range node.Children {
			if err := walk(child, id, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range f.Roots {
		if err := walk(root, NoBone, 0); err != nil {
			return err
		}
	}
	for i, ok := range visited {
		if !ok {
			return errors.Errorf("Bone %q is not reachable from any root", f.Nodes[i].Name)
		}
	}
	return nil
}

// SetSuffixRecursively renames the subtree of id to {BaseName}_{suffix}.
// Bones already renamed by an earlier attach keep their names. An empty suffix
// restores the base names of the whole subtree.
func (f *Forest) SetSuffixRecursively(id BoneID, suffix string) {
	for _, bone := range f.Flatten(id) {
		node := &f.Nodes[bone]
		switch {
		case suffix == "":
			node.Name = node.BaseName
		case node.Name == node.BaseName:
			node.Name = node.BaseName + "_" + suffix
		}
	}
}

// WorldMatrix multiplies local matrices from the root down to id.
func (f *Forest) WorldMatrix(id BoneID) mgl32.Mat4 {
	return f.chainMatrix(id, func(n *BoneNode) records.Transform { return n.Local })
}

// BindMatrix is WorldMatrix of the reference pose.
func (f *Forest) BindMatrix(id BoneID) mgl32.Mat4 {
	return f.chainMatrix(id, func(n *BoneNode) records.Transform { return n.Bind })
}

func (f *Forest) chainMatrix(id BoneID, transform func(*BoneNode) records.Transform) mgl32.Mat4 {
	m := mgl32.Ident4()
	for depth := 0; depth <= len(f.Nodes); depth++ {
		node := f.Node(id)
		if node == nil {
			break
		}
		m = transform(node).Matrix().Mul4(m)
		id = node.Parent
	}
	return m
}
