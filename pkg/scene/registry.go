package scene

import (
	"errors"
	"fmt"

	"github.com/df07/go-enhanced-svg/pkg/core"
	"github.com/df07/go-enhanced-svg/pkg/material"
)

// ErrMaterialExists is returned when adding a material whose name is taken
var ErrMaterialExists = errors.New("material name already in use")

// Registry is the scene-wide material store, keyed by unique name and kept in
// insertion order.
type Registry struct {
	materials []*material.Material
	byName    map[string]*material.Material
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*material.Material)}
}

// New creates a plain material under a unique name and registers it
func (r *Registry) New(name string, diffuse core.Color) *material.Material {
	m := material.New(uniqueName(name, r.taken), diffuse)
	r.materials = append(r.materials, m)
	r.byName[m.Name] = m
	return m
}

// Add registers a material under its own name
func (r *Registry) Add(m *material.Material) error {
	if m == nil {
		return errors.New("cannot register nil material")
	}
	if r.taken(m.Name) {
		return fmt.Errorf("%w: %s", ErrMaterialExists, m.Name)
	}
	r.materials = append(r.materials, m)
	r.byName[m.Name] = m
	return nil
}

// Lookup returns a material by exact name
func (r *Registry) Lookup(name string) (*material.Material, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Remove unregisters a material
func (r *Registry) Remove(m *material.Material) error {
	for i, existing := range r.materials {
		if existing == m {
			r.materials = append(r.materials[:i], r.materials[i+1:]...)
			delete(r.byName, m.Name)
			return nil
		}
	}
	return fmt.Errorf("material %q is not registered", m.Name)
}

// Materials returns the registered materials in insertion order
func (r *Registry) Materials() []*material.Material {
	return append([]*material.Material(nil), r.materials...)
}

// Len returns the number of registered materials
func (r *Registry) Len() int {
	return len(r.materials)
}

// Orphans returns the materials no slot references
func (r *Registry) Orphans() []*material.Material {
	var orphans []*material.Material
	for _, m := range r.materials {
		if m.Users() == 0 {
			orphans = append(orphans, m)
		}
	}
	return orphans
}

// PurgeOrphans removes every material with zero users and returns their names
func (r *Registry) PurgeOrphans() ([]string, error) {
	var removed []string
	kept := r.materials[:0]
	for _, m := range r.materials {
		if m.Users() == 0 {
			delete(r.byName, m.Name)
			removed = append(removed, m.Name)
			continue
		}
		kept = append(kept, m)
	}
	r.materials = kept
	return removed, nil
}

func (r *Registry) taken(name string) bool {
	_, ok := r.byName[name]
	return ok
}
