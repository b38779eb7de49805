package material

import (
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-enhanced-svg/pkg/core"
)

// NodeKind identifies the type of a shader node
type NodeKind string

const (
	NodeTransparentBSDF NodeKind = "ShaderNodeBsdfTransparent"
	NodeEmission        NodeKind = "ShaderNodeEmission"
	NodeMixShader       NodeKind = "ShaderNodeMixShader"
	NodeOutputMaterial  NodeKind = "ShaderNodeOutputMaterial"
	NodeAttribute       NodeKind = "ShaderNodeAttribute"
)

// AttributeType selects where an attribute node reads its value from
type AttributeType string

const (
	AttributeGeometry AttributeType = "GEOMETRY"
	AttributeObject   AttributeType = "OBJECT"
)

// Location is a node's position in the node editor
type Location struct {
	X, Y float32
}

// Node is a single shader node. Only the fields relevant to Kind are set.
type Node struct {
	Name     string
	Kind     NodeKind
	Location Location

	// Emission inputs
	Color    core.Color
	Strength float32

	// Attribute settings
	AttributeName string
	AttributeType AttributeType
}

// Socket addresses an input or output socket of a node by node name
type Socket struct {
	Node string
	Name string
}

// Link connects an output socket to an input socket
type Link struct {
	From Socket
	To   Socket
}

// Graph is an immutable node-and-link structure. Build one with Synthesize.
type Graph struct {
	nodes []Node
	links []Link
}

// Nodes returns a copy of the graph's nodes
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Links returns a copy of the graph's links
func (g *Graph) Links() []Link {
	return append([]Link(nil), g.links...)
}

// Node returns the first node of the given kind
func (g *Graph) Node(kind NodeKind) (Node, bool) {
	for _, n := range g.nodes {
		if n.Kind == kind {
			return n, true
		}
	}
	return Node{}, false
}

// Equal reports whether two graphs are structurally identical: the same nodes
// (kind and parameters) and the same link topology. Node order and node names do
// not matter.
func (g *Graph) Equal(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	a, b := g.signature(), other.signature()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// signature returns a sorted, name-independent description of nodes and links
func (g *Graph) signature() []string {
	byName := make(map[string]Node, len(g.nodes))
	var sig []string
	for _, n := range g.nodes {
		byName[n.Name] = n
		sig = append(sig, "node "+describeNode(n))
	}
	for _, l := range g.links {
		from, to := byName[l.From.Node], byName[l.To.Node]
		sig = append(sig, fmt.Sprintf("link %s.%s -> %s.%s", describeNode(from), l.From.Name, describeNode(to), l.To.Name))
	}
	sort.Strings(sig)
	return sig
}

func describeNode(n Node) string {
	switch n.Kind {
	case NodeEmission:
		return fmt.Sprintf("%s(color=%v strength=%g)", n.Kind, n.Color.Array(), n.Strength)
	case NodeAttribute:
		return fmt.Sprintf("%s(%s:%s)", n.Kind, n.AttributeType, n.AttributeName)
	default:
		return string(n.Kind)
	}
}

// Validate checks that the graph has exactly the opacity-driven emission
// topology produced by Synthesize.
func (g *Graph) Validate() error {
	counts := make(map[NodeKind]int)
	for _, n := range g.nodes {
		counts[n.Kind]++
	}
	for _, kind := range []NodeKind{NodeTransparentBSDF, NodeEmission, NodeMixShader, NodeOutputMaterial, NodeAttribute} {
		if counts[kind] != 1 {
			return fmt.Errorf("expected exactly one %s node, found %d", kind, counts[kind])
		}
	}
	if len(g.nodes) != 5 {
		return fmt.Errorf("expected 5 nodes, found %d", len(g.nodes))
	}

	attr, _ := g.Node(NodeAttribute)
	if attr.AttributeName != OpacityAttribute || attr.AttributeType != AttributeObject {
		return fmt.Errorf("attribute node reads %s:%s, expected %s:%s",
			attr.AttributeType, attr.AttributeName, AttributeObject, OpacityAttribute)
	}
	emission, _ := g.Node(NodeEmission)
	if emission.Strength != EmissionStrength {
		return fmt.Errorf("emission strength is %g, expected %g", emission.Strength, EmissionStrength)
	}

	want := expectedLinks()
	have := make([]string, 0, len(g.links))
	byName := make(map[string]NodeKind, len(g.nodes))
	for _, n := range g.nodes {
		byName[n.Name] = n.Kind
	}
	for _, l := range g.links {
		have = append(have, fmt.Sprintf("%s.%s->%s.%s", byName[l.From.Node], l.From.Name, byName[l.To.Node], l.To.Name))
	}
	sort.Strings(have)
	if strings.Join(have, ",") != strings.Join(want, ",") {
		return fmt.Errorf("unexpected link topology: %v", have)
	}
	return nil
}

func expectedLinks() []string {
	links := []string{
		string(NodeAttribute) + ".Fac->" + string(NodeMixShader) + ".Fac",
		string(NodeTransparentBSDF) + ".BSDF->" + string(NodeMixShader) + ".Shader",
		string(NodeEmission) + ".Emission->" + string(NodeMixShader) + ".Shader.001",
		string(NodeMixShader) + ".Shader->" + string(NodeOutputMaterial) + ".Surface",
	}
	sort.Strings(links)
	return links
}
