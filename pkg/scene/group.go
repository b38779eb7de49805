package scene

// Group is a named, ordered collection of objects produced by one import
type Group struct {
	ID      string
	Variant string // import variant label, empty for groups not created by an import

	// ProcessedText holds the preprocessed markup the group was imported from,
	// nil when the import did not preprocess.
	ProcessedText *string

	name    string
	objects []*Object
}

// Name returns the group's unique name within its scene
func (g *Group) Name() string {
	return g.name
}

// Objects returns the group's objects in stored order
func (g *Group) Objects() []*Object {
	return append([]*Object(nil), g.objects...)
}

// Len returns the number of objects in the group
func (g *Group) Len() int {
	return len(g.objects)
}
