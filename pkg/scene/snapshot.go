package scene

import "github.com/df07/go-enhanced-svg/pkg/material"

// Snapshot is a JSON-friendly view of a scene
type Snapshot struct {
	Groups    []GroupSnapshot    `json:"groups"`
	Materials []MaterialSnapshot `json:"materials"`
}

// GroupSnapshot describes one group
type GroupSnapshot struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Variant          string           `json:"variant,omitempty"`
	HasProcessedText bool             `json:"hasProcessedText"`
	Objects          []ObjectSnapshot `json:"objects"`
}

// ObjectSnapshot describes one object
type ObjectSnapshot struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Kind       string                   `json:"kind"`
	Location   [3]float64               `json:"location"`
	Scale      [3]float64               `json:"scale"`
	Materials  []string                 `json:"materials"`
	Attributes map[string]FloatProperty `json:"attributes,omitempty"`
}

// MaterialSnapshot describes one registered material
type MaterialSnapshot struct {
	Name      string     `json:"name"`
	Color     string     `json:"color"` // #rrggbb
	Diffuse   [4]float32 `json:"diffuse"`
	BlendMode string     `json:"blendMode"`
	Users     int        `json:"users"`
	HasGraph  bool       `json:"hasGraph"`
	NodeKinds []string   `json:"nodeKinds,omitempty"`
}

// Snapshot captures the current state of the scene
func (s *Scene) Snapshot() Snapshot {
	snap := Snapshot{
		Groups:    make([]GroupSnapshot, 0, len(s.groups)),
		Materials: make([]MaterialSnapshot, 0, s.Materials.Len()),
	}
	for _, g := range s.groups {
		snap.Groups = append(snap.Groups, SnapshotGroup(g))
	}
	for _, m := range s.Materials.Materials() {
		snap.Materials = append(snap.Materials, SnapshotMaterial(m))
	}
	return snap
}

// SnapshotGroup captures one group
func SnapshotGroup(g *Group) GroupSnapshot {
	gs := GroupSnapshot{
		ID:               g.ID,
		Name:             g.name,
		Variant:          g.Variant,
		HasProcessedText: g.ProcessedText != nil,
		Objects:          make([]ObjectSnapshot, 0, len(g.objects)),
	}
	for _, obj := range g.objects {
		snapObj := ObjectSnapshot{
			ID:        obj.ID,
			Name:      obj.name,
			Kind:      obj.Kind.String(),
			Location:  obj.Transform.Location.Array(),
			Scale:     obj.Transform.Scale.Array(),
			Materials: make([]string, 0, len(obj.materials)),
		}
		for _, m := range obj.materials {
			snapObj.Materials = append(snapObj.Materials, m.Name)
		}
		if len(obj.attributes) > 0 {
			snapObj.Attributes = make(map[string]FloatProperty, len(obj.attributes))
			for name, prop := range obj.attributes {
				snapObj.Attributes[name] = prop
			}
		}
		gs.Objects = append(gs.Objects, snapObj)
	}
	return gs
}

// SnapshotMaterial captures one material
func SnapshotMaterial(m *material.Material) MaterialSnapshot {
	ms := MaterialSnapshot{
		Name:      m.Name,
		Color:     "#" + m.DiffuseColor.Hex(),
		Diffuse:   m.DiffuseColor.Array(),
		BlendMode: m.BlendMode.String(),
		Users:     m.Users(),
		HasGraph:  m.Graph != nil,
	}
	if m.Graph != nil {
		for _, n := range m.Graph.Nodes() {
			ms.NodeKinds = append(ms.NodeKinds, string(n.Kind))
		}
	}
	return ms
}
