package server

import (
	"net/http"

	"github.com/df07/go-enhanced-svg/pkg/material"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

// MaterialInfo is the detailed view of one material
type MaterialInfo struct {
	scene.MaterialSnapshot
	MaterialType string                 `json:"materialType"`
	Properties   map[string]interface{} `json:"properties"`
}

// handleMaterials lists every registered material
func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mats := s.scene.Materials.Materials()
	out := make([]scene.MaterialSnapshot, 0, len(mats))
	for _, m := range mats {
		out = append(out, scene.SnapshotMaterial(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMaterial inspects one material by name
func (s *Server) handleMaterial(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.scene.Materials.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown material: "+name)
		return
	}
	materialType, props := extractMaterialInfo(m)
	writeJSON(w, http.StatusOK, MaterialInfo{
		MaterialSnapshot: scene.SnapshotMaterial(m),
		MaterialType:     materialType,
		Properties:       props,
	})
}

// extractMaterialInfo describes a material's node graph
func extractMaterialInfo(m *material.Material) (string, map[string]interface{}) {
	properties := make(map[string]interface{})
	properties["color"] = "#" + m.DiffuseColor.Hex()

	if m.Graph == nil {
		properties["diffuse"] = m.DiffuseColor.Array()
		return "diffuse", properties
	}

	nodes := make([]map[string]interface{}, 0, len(m.Graph.Nodes()))
	for _, n := range m.Graph.Nodes() {
		node := map[string]interface{}{
			"name":     n.Name,
			"kind":     string(n.Kind),
			"location": [2]float32{n.Location.X, n.Location.Y},
		}
		switch n.Kind {
		case material.NodeEmission:
			node["color"] = "#" + n.Color.Hex()
			node["strength"] = n.Strength
			properties["emission"] = n.Color.Array()
			properties["strength"] = n.Strength
		case material.NodeAttribute:
			node["attribute"] = n.AttributeName
			node["attributeType"] = string(n.AttributeType)
			properties["opacityAttribute"] = n.AttributeName
		}
		nodes = append(nodes, node)
	}
	properties["nodes"] = nodes

	links := make([]string, 0, len(m.Graph.Links()))
	for _, l := range m.Graph.Links() {
		links = append(links, l.From.Node+"."+l.From.Name+" -> "+l.To.Node+"."+l.To.Name)
	}
	properties["links"] = links

	if err := m.Graph.Validate(); err != nil {
		properties["validationError"] = err.Error()
		return "custom", properties
	}
	return "emissive_opacity_mix", properties
}
