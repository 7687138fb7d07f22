// Package scene is the composed node graph handed to exporters.
package scene

import (
	"sync"

	"github.com/mogaika/scene_composer/mesh"
	"github.com/mogaika/scene_composer/records"
	"github.com/mogaika/scene_composer/skeleton"
	"github.com/mogaika/scene_composer/synth"
)

type Material struct {
	Name   string
	Output *synth.Output
}

// Skin is a bone forest shared by every mesh that references it.
type Skin struct {
	Name   string
	Forest *skeleton.Forest
}

type Node struct {
	Name      string
	Transform records.Transform
	Mesh      *mesh.Mesh
	// skin the mesh is bound to
	Skin *Skin
	// bones of Skeleton are exported as children of this node
	Skeleton *Skin
	Extras   map[string]interface{}
	Children []*Node
}

func NewNode(name string, transform records.Transform) *Node {
	return &Node{
		Name:      name,
		Transform: transform.Normalized(),
	}
}

func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

func (n *Node) SetExtra(key string, value interface{}) {
	if n.Extras == nil {
		n.Extras = make(map[string]interface{})
	}
	n.Extras[key] = value
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Find returns the first descendant (or n itself) with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) {
		if found == nil && node.Name == name {
			found = node
		}
	})
	return found
}

// Scene is safe for concurrent material registration, node mutation is single threaded.
type Scene struct {
	Nodes []*Node

	mu            sync.Mutex
	Materials     []*Material
	materialIndex map[string]int
}

func New() *Scene {
	return &Scene{materialIndex: make(map[string]int)}
}

func (s *Scene) AddNode(n *Node) {
	s.Nodes = append(s.Nodes, n)
}

// AddMaterial registers a material once per name and returns its index.
func (s *Scene) AddMaterial(m *Material) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.materialIndex[m.Name]; ok {
		return idx
	}
	idx := len(s.Materials)
	s.Materials = append(s.Materials, m)
	s.materialIndex[m.Name] = idx
	return idx
}

func (s *Scene) Find(name string) *Node {
	for _, n := range s.Nodes {
		if found := n.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node of the scene.
func (s *Scene) Walk(fn func(node *Node, depth int)) {
	for _, n := range s.Nodes {
		n.Walk(fn)
	}
}
