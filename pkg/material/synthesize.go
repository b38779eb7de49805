package material

import "github.com/df07/go-enhanced-svg/pkg/core"

const (
	// OpacityAttribute is the per-object attribute that drives the mix factor
	OpacityAttribute = "opacity"
	// EmissionStrength is the fixed strength of the emission node
	EmissionStrength float32 = 1.0
)

// Synthesize builds a canonical emissive material: a transparent BSDF and an
// emission shader blended by the object's opacity attribute. The topology is
// fixed; only the emission color and the material name vary.
func Synthesize(color core.Color, name string) *Material {
	g := &Graph{
		nodes: []Node{
			{Name: "Transparent BSDF", Kind: NodeTransparentBSDF, Location: Location{-300, 100}},
			{Name: "Emission", Kind: NodeEmission, Location: Location{-300, 0}, Color: color, Strength: EmissionStrength},
			{Name: "Mix Shader", Kind: NodeMixShader, Location: Location{0, 100}},
			{Name: "Material Output", Kind: NodeOutputMaterial, Location: Location{300, 100}},
			{Name: "Attribute", Kind: NodeAttribute, Location: Location{-300, 300}, AttributeName: OpacityAttribute, AttributeType: AttributeObject},
		},
		links: []Link{
			{From: Socket{"Transparent BSDF", "BSDF"}, To: Socket{"Mix Shader", "Shader"}},
			{From: Socket{"Emission", "Emission"}, To: Socket{"Mix Shader", "Shader.001"}},
			{From: Socket{"Mix Shader", "Shader"}, To: Socket{"Material Output", "Surface"}},
			{From: Socket{"Attribute", "Fac"}, To: Socket{"Mix Shader", "Fac"}},
		},
	}

	return &Material{
		Name:         name,
		DiffuseColor: color,
		BlendMode:    BlendAlpha,
		Graph:        g,
	}
}
