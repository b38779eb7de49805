package material

import "github.com/df07/go-enhanced-svg/pkg/core"

// BlendMode controls how a material's alpha is composited
type BlendMode int

const (
	// BlendOpaque ignores alpha
	BlendOpaque BlendMode = iota
	// BlendAlpha composites the surface with alpha-blended translucency
	BlendAlpha
)

// String returns the host name of the blend mode
func (b BlendMode) String() string {
	switch b {
	case BlendAlpha:
		return "BLEND"
	default:
		return "OPAQUE"
	}
}

// Material is a named surface description held by the scene's material registry.
// Materials created by an importer carry only a diffuse color; canonical
// materials also carry a shader graph.
type Material struct {
	Name         string
	DiffuseColor core.Color
	BlendMode    BlendMode
	Graph        *Graph // nil when the material has no node tree

	users int
}

// New creates a plain opaque material without a node tree
func New(name string, diffuse core.Color) *Material {
	return &Material{Name: name, DiffuseColor: diffuse, BlendMode: BlendOpaque}
}

// Users returns the number of material slots referencing this material
func (m *Material) Users() int {
	return m.users
}

// AddUser records one more referencing slot
func (m *Material) AddUser() {
	m.users++
}

// RemoveUser drops one referencing slot
func (m *Material) RemoveUser() {
	if m.users > 0 {
		m.users--
	}
}

// Key returns the deduplication key of the material's diffuse color
func (m *Material) Key() core.ColorKey {
	return m.DiffuseColor.Key()
}
