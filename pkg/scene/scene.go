package scene

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Scene is the in-memory stand-in for the authoring environment's scene: an
// ordered list of groups, the objects they hold and the material registry.
// Group and object names are unique within the scene; clashing names get a
// ".001"-style suffix like the host applies.
//
// Scene is not safe for concurrent use. Callers that serve concurrent requests
// must serialize access, since name lookup followed by mutation is racy.
type Scene struct {
	Materials *Registry

	groups      []*Group
	objectNames map[string]*Object
}

// New creates an empty scene
func New() *Scene {
	return &Scene{
		Materials:   NewRegistry(),
		objectNames: make(map[string]*Object),
	}
}

// Groups returns the scene's groups in creation order
func (s *Scene) Groups() []*Group {
	return append([]*Group(nil), s.groups...)
}

// Group looks up a group by exact name
func (s *Scene) Group(name string) (*Group, bool) {
	for _, g := range s.groups {
		if g.name == name {
			return g, true
		}
	}
	return nil, false
}

// Contains reports whether the group is still part of the scene
func (s *Scene) Contains(g *Group) bool {
	if g == nil {
		return false
	}
	for _, existing := range s.groups {
		if existing == g {
			return true
		}
	}
	return false
}

// NewGroup appends an empty group. The returned group's name may differ from
// the requested one if that name is already taken.
func (s *Scene) NewGroup(name string) *Group {
	g := &Group{
		ID:   uuid.NewString(),
		name: uniqueName(name, s.groupNameTaken),
	}
	s.groups = append(s.groups, g)
	return g
}

// RenameGroup renames a group and returns the name it actually received
func (s *Scene) RenameGroup(g *Group, name string) string {
	if g.name == name {
		return name
	}
	g.name = uniqueName(name, s.groupNameTaken)
	return g.name
}

// RemoveGroup deletes a group and its objects from the scene. Material slots of
// the removed objects are released; the materials themselves stay in the
// registry until an orphan sweep.
func (s *Scene) RemoveGroup(g *Group) error {
	for i, existing := range s.groups {
		if existing != g {
			continue
		}
		for _, obj := range g.objects {
			obj.ClearMaterials()
			delete(s.objectNames, obj.name)
		}
		g.objects = nil
		s.groups = append(s.groups[:i], s.groups[i+1:]...)
		return nil
	}
	return fmt.Errorf("group %q is not part of the scene", g.name)
}

// NewObject creates an object and appends it to the group
func (s *Scene) NewObject(g *Group, name string, kind Kind) *Object {
	obj := newObject(uniqueName(name, s.objectNameTaken), kind)
	s.objectNames[obj.name] = obj
	g.objects = append(g.objects, obj)
	return obj
}

// RenameObject renames an object and returns the name it actually received
func (s *Scene) RenameObject(obj *Object, name string) string {
	if obj.name == name {
		return name
	}
	delete(s.objectNames, obj.name)
	obj.name = uniqueName(name, s.objectNameTaken)
	s.objectNames[obj.name] = obj
	return obj.name
}

// Object looks up an object by exact name
func (s *Scene) Object(name string) (*Object, bool) {
	obj, ok := s.objectNames[name]
	return obj, ok
}

func (s *Scene) groupNameTaken(name string) bool {
	_, ok := s.Group(name)
	return ok
}

func (s *Scene) objectNameTaken(name string) bool {
	_, ok := s.objectNames[name]
	return ok
}

// uniqueName returns base if it is free, otherwise the first free base.NNN.
// A numeric suffix already on base is replaced, not extended: a clashing
// "n.001" becomes "n.002", never "n.001.001".
func uniqueName(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	base = trimNumericSuffix(base)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// trimNumericSuffix strips a trailing ".NNN" (three or more digits)
func trimNumericSuffix(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || len(name)-dot-1 < 3 {
		return name
	}
	for _, r := range name[dot+1:] {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:dot]
}
