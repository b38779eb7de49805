package scene

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/df07/go-enhanced-svg/pkg/core"
	"github.com/df07/go-enhanced-svg/pkg/material"
)

// Kind is the type of a scene object
type Kind int

const (
	KindMesh Kind = iota
	KindCurve
	KindEmpty
	KindOther
)

// String returns the host name of the kind
func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "MESH"
	case KindCurve:
		return "CURVE"
	case KindEmpty:
		return "EMPTY"
	default:
		return "OTHER"
	}
}

// ParseKind parses a host kind name, case-insensitively
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(s) {
	case "MESH":
		return KindMesh, nil
	case "CURVE":
		return KindCurve, nil
	case "EMPTY":
		return KindEmpty, nil
	case "OTHER":
		return KindOther, nil
	}
	return KindOther, fmt.Errorf("unknown object kind: %s", s)
}

// Transform holds an object's placement
type Transform struct {
	Location core.Vec3
	Scale    core.Vec3
}

// FloatProperty is a custom per-object scalar with UI bounds
type FloatProperty struct {
	Value   float64 `json:"value"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

// Object is a single scene object
type Object struct {
	ID        string
	Kind      Kind
	Transform Transform

	name       string
	materials  []*material.Material
	attributes map[string]FloatProperty
}

func newObject(name string, kind Kind) *Object {
	return &Object{
		ID:         uuid.NewString(),
		Kind:       kind,
		Transform:  Transform{Scale: core.One()},
		name:       name,
		attributes: make(map[string]FloatProperty),
	}
}

// Name returns the object's unique name within its scene
func (o *Object) Name() string {
	return o.name
}

// Materials returns the object's material slots
func (o *Object) Materials() []*material.Material {
	return append([]*material.Material(nil), o.materials...)
}

// HasMaterial reports whether at least one material is assigned
func (o *Object) HasMaterial() bool {
	return len(o.materials) > 0
}

// SetMaterials replaces every material slot. New references are counted before
// old ones are released, so reassigning a material to itself never drops its
// user count to zero.
func (o *Object) SetMaterials(mats ...*material.Material) {
	for _, m := range mats {
		m.AddUser()
	}
	for _, m := range o.materials {
		m.RemoveUser()
	}
	o.materials = append([]*material.Material(nil), mats...)
}

// ClearMaterials releases every material slot
func (o *Object) ClearMaterials() {
	o.SetMaterials()
}

// SetAttribute stores a custom scalar; the value is clamped to the bounds
func (o *Object) SetAttribute(name string, prop FloatProperty) {
	if prop.Min <= prop.Max {
		prop.Value = math.Max(prop.Min, math.Min(prop.Max, prop.Value))
	}
	o.attributes[name] = prop
}

// Attribute returns a custom scalar by name
func (o *Object) Attribute(name string) (FloatProperty, bool) {
	prop, ok := o.attributes[name]
	return prop, ok
}

// AttributeNames returns the names of the object's custom scalars, sorted
func (o *Object) AttributeNames() []string {
	names := make([]string, 0, len(o.attributes))
	for name := range o.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Opacity returns the object's opacity attribute, 1.0 when unset
func (o *Object) Opacity() float64 {
	if prop, ok := o.attributes[material.OpacityAttribute]; ok {
		return prop.Value
	}
	return 1.0
}

// Stackable reports whether the object takes part in elevation layout
func (o *Object) Stackable() bool {
	return o.Kind == KindMesh || o.Kind == KindCurve || o.Kind == KindEmpty
}
